package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-booking-bot/internal/domain"
	"github.com/tbourn/go-booking-bot/internal/search"
	"github.com/tbourn/go-booking-bot/internal/services"
)

// Verifier is the confirmation-code workflow the machine drives.
type Verifier interface {
	Request(ctx context.Context, channelID int64, email string) (services.VerificationOutcome, error)
	Confirm(ctx context.Context, channelID int64, code string) (services.ConfirmResult, error)
	IsVerified(ctx context.Context, channelID int64) (bool, error)
}

// Booker is the reservation lifecycle plus availability.
type Booker interface {
	Book(ctx context.Context, channelID int64, service, date, tm string) (*domain.Reservation, error)
	ListConfirmed(ctx context.Context, channelID int64) ([]domain.Reservation, error)
	DeleteOwned(ctx context.Context, channelID int64, id string) error
	BookableDates(ctx context.Context) ([]time.Time, error)
	BookableTimes(ctx context.Context, date string) ([]string, error)
}

// DiscountGame is the daily dice game.
type DiscountGame interface {
	Play(ctx context.Context, channelID int64) (services.DiscountOutcome, error)
}

// CodeMailer delivers a confirmation code to an address.
type CodeMailer interface {
	SendCode(ctx context.Context, to, code string) error
}

// Machine routes events to the verification and booking workflows according
// to the channel's stage. Unexpected input never fails: it re-shows a menu.
type Machine struct {
	Store    StateStore
	Verifier Verifier
	Booker   Booker
	Discount DiscountGame
	Mailer   CodeMailer
	Catalog  domain.Catalog
	// Intents maps stray free text to menus. Nil disables matching.
	Intents search.Index

	Texts           Texts
	Locale          language.Tag
	DiscountPercent int
	Log             zerolog.Logger
}

// NewMachine returns a machine with English texts. Discount and Mailer are
// optional.
func NewMachine(store StateStore, v Verifier, b Booker, catalog domain.Catalog) *Machine {
	return &Machine{
		Store:    store,
		Verifier: v,
		Booker:   b,
		Catalog:  catalog,
		Intents:  search.NewIndex(DefaultIntents()),
		Texts:    DefaultTexts(),
		Locale:   language.English,
		Log:      log.With().Str("component", "conversation").Logger(),
	}
}

// Handle processes one event and returns the replies to show. Errors are
// storage failures; every other outcome is a reply.
func (m *Machine) Handle(ctx context.Context, ev Event) ([]Reply, error) {
	st, err := m.Store.Load(ctx, ev.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrStorageUnavailable, err)
	}

	var (
		replies []Reply
		next    State
	)
	if ev.IsSelection() {
		replies, next, err = m.onSelection(ctx, ev, st)
	} else {
		replies, next, err = m.onText(ctx, ev, st)
	}
	if err != nil {
		return nil, err
	}

	if next.IsIdle() {
		if !st.IsIdle() {
			err = m.Store.Reset(ctx, ev.ChannelID)
		}
	} else {
		err = m.Store.Save(ctx, ev.ChannelID, next)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrStorageUnavailable, err)
	}
	return replies, nil
}

// ---- free text ----

func (m *Machine) onText(ctx context.Context, ev Event, st State) ([]Reply, State, error) {
	text := strings.TrimSpace(ev.Text)
	switch strings.ToLower(text) {
	case "/start", "/menu":
		return []Reply{m.greeting(ev.FirstName)}, idle(), nil
	}

	switch st.Stage {
	case StageAwaitingEmail:
		return m.onEmail(ctx, ev.ChannelID, text, st)
	case StageAwaitingCode:
		return m.onCode(ctx, ev.ChannelID, text, st)
	}
	if menu := m.matchIntent(text); menu != "" {
		return m.onMenu(ctx, ev, menu, st)
	}
	return []Reply{m.mainMenu(m.Texts.Fallback)}, st, nil
}

func (m *Machine) onEmail(ctx context.Context, channelID int64, email string, st State) ([]Reply, State, error) {
	out, err := m.Verifier.Request(ctx, channelID, email)
	if err != nil {
		return nil, st, err
	}
	switch out.Result {
	case services.AlreadyConfirmed:
		return []Reply{{Text: m.Texts.AlreadyConfirmed}, m.servicesMenu()}, State{Stage: StageSelectingService}, nil
	case services.CodeSent:
		m.sendCode(ctx, channelID, out)
		return []Reply{{Text: fmt.Sprintf(m.Texts.CodeSent, out.Email)}}, State{Stage: StageAwaitingCode}, nil
	default:
		return []Reply{{Text: m.Texts.InvalidEmail}}, st, nil
	}
}

func (m *Machine) sendCode(ctx context.Context, channelID int64, out services.VerificationOutcome) {
	if m.Mailer == nil {
		m.Log.Warn().Int64("channel_id", channelID).Msg("no mailer configured; confirmation code not sent")
		return
	}
	if err := m.Mailer.SendCode(ctx, out.Email, out.Code); err != nil {
		m.Log.Error().Err(err).Int64("channel_id", channelID).Msg("send confirmation code failed")
	}
}

func (m *Machine) onCode(ctx context.Context, channelID int64, code string, st State) ([]Reply, State, error) {
	res, err := m.Verifier.Confirm(ctx, channelID, code)
	if err != nil {
		return nil, st, err
	}
	switch res {
	case services.Confirmed:
		return []Reply{{Text: m.Texts.EmailConfirmed}, m.servicesMenu()}, State{Stage: StageSelectingService}, nil
	case services.NoPendingVerification:
		return []Reply{{Text: m.Texts.NoPending}}, State{Stage: StageAwaitingEmail}, nil
	case services.MalformedCode:
		return []Reply{{Text: m.Texts.MalformedCode}}, st, nil
	default:
		return []Reply{{Text: m.Texts.WrongCode}}, st, nil
	}
}

// ---- selections ----

func (m *Machine) onSelection(ctx context.Context, ev Event, st State) ([]Reply, State, error) {
	sel, err := ParseToken(ev.Token)
	if err != nil {
		m.Log.Debug().Int64("channel_id", ev.ChannelID).Str("token", ev.Token).Msg("unrecognized token")
		return []Reply{m.mainMenu(m.Texts.Fallback)}, st, nil
	}
	switch sel.Action {
	case ActionMenu:
		return m.onMenu(ctx, ev, sel.Value, st)
	case ActionService:
		return m.onService(ctx, ev.ChannelID, sel.Value, st)
	case ActionDate:
		return m.onDate(ctx, sel.Value, st)
	case ActionTime:
		return m.onTime(ctx, sel.Value, st)
	case ActionConfirm:
		return m.onConfirm(ctx, ev.ChannelID, st)
	case ActionDelete:
		return m.onDelete(ctx, ev.ChannelID, sel.Value, st)
	}
	return []Reply{m.mainMenu(m.Texts.Fallback)}, st, nil
}

func (m *Machine) onMenu(ctx context.Context, ev Event, name string, st State) ([]Reply, State, error) {
	switch name {
	case MenuBook:
		return []Reply{{Text: m.Texts.AskEmail}}, State{Stage: StageAwaitingEmail}, nil
	case MenuServices:
		return []Reply{m.info(m.Texts.ServicesInfo)}, idle(), nil
	case MenuAbout:
		return []Reply{m.info(m.Texts.AboutInfo)}, idle(), nil
	case MenuContacts:
		return []Reply{m.info(m.Texts.ContactsInfo)}, idle(), nil
	case MenuMine:
		return m.myBookings(ctx, ev.ChannelID)
	case MenuDelete:
		return m.deletePicker(ctx, ev.ChannelID)
	case MenuDiscount:
		return []Reply{{
			Text: fmt.Sprintf(m.Texts.DiscountInfo, m.DiscountPercent),
			Buttons: [][]Button{
				{{Label: m.Texts.PlayButton, Token: MenuToken(MenuPlay)}},
				m.backRow(),
			},
		}}, idle(), nil
	case MenuPlay:
		return m.playDiscount(ctx, ev.ChannelID)
	}
	return []Reply{m.mainMenu(m.Texts.Fallback)}, idle(), nil
}

func (m *Machine) onService(ctx context.Context, channelID int64, key string, st State) ([]Reply, State, error) {
	svc, ok := m.Catalog.Lookup(key)
	if !ok {
		return []Reply{m.mainMenu(m.Texts.Fallback)}, st, nil
	}
	verified, err := m.Verifier.IsVerified(ctx, channelID)
	if err != nil {
		return nil, st, err
	}
	if !verified {
		return []Reply{{Text: m.Texts.AskEmail}}, State{Stage: StageAwaitingEmail}, nil
	}
	next := State{Stage: StageSelectingDate, SelectedService: svc.Name}
	reply, err := m.datesReply(ctx, m.Texts.ChooseDate)
	if err != nil {
		return nil, st, err
	}
	return []Reply{reply}, next, nil
}

func (m *Machine) onDate(ctx context.Context, date string, st State) ([]Reply, State, error) {
	if st.SelectedService == "" {
		return []Reply{m.mainMenu(m.Texts.Fallback)}, st, nil
	}
	sameService := State{Stage: StageSelectingDate, SelectedService: st.SelectedService}

	dates, err := m.Booker.BookableDates(ctx)
	if err != nil {
		return nil, st, err
	}
	if !containsDate(dates, date) {
		return []Reply{m.datesFrom(dates, m.Texts.DateUnavailable)}, sameService, nil
	}
	times, err := m.Booker.BookableTimes(ctx, date)
	if err != nil {
		return nil, st, err
	}
	if len(times) == 0 {
		return []Reply{m.datesFrom(dates, fmt.Sprintf(m.Texts.NoTimes, longDate(date)))}, sameService, nil
	}
	next := State{Stage: StageSelectingTime, SelectedService: st.SelectedService, SelectedDate: date}
	return []Reply{m.timesReply(times, fmt.Sprintf(m.Texts.ChooseTime, longDate(date)))}, next, nil
}

func (m *Machine) onTime(ctx context.Context, slot string, st State) ([]Reply, State, error) {
	if st.SelectedService == "" || st.SelectedDate == "" {
		return []Reply{m.mainMenu(m.Texts.Fallback)}, st, nil
	}
	times, err := m.Booker.BookableTimes(ctx, st.SelectedDate)
	if err != nil {
		return nil, st, err
	}
	if !contains(times, slot) {
		back := State{Stage: StageSelectingTime, SelectedService: st.SelectedService, SelectedDate: st.SelectedDate}
		if len(times) == 0 {
			back = State{Stage: StageSelectingDate, SelectedService: st.SelectedService}
			reply, err := m.datesReply(ctx, fmt.Sprintf(m.Texts.NoTimes, longDate(st.SelectedDate)))
			if err != nil {
				return nil, st, err
			}
			return []Reply{reply}, back, nil
		}
		return []Reply{m.timesReply(times, m.Texts.TimeUnavailable)}, back, nil
	}

	next := State{
		Stage:           StageAwaitingConfirmation,
		SelectedService: st.SelectedService,
		SelectedDate:    st.SelectedDate,
		SelectedTime:    slot,
	}
	return []Reply{{
		Text: fmt.Sprintf(m.Texts.ConfirmPrompt, st.SelectedService, longDate(st.SelectedDate), slot),
		Buttons: [][]Button{
			{{Label: m.Texts.ConfirmButton, Token: ConfirmToken()}},
			m.backRow(),
		},
	}}, next, nil
}

func (m *Machine) onConfirm(ctx context.Context, channelID int64, st State) ([]Reply, State, error) {
	if st.Stage != StageAwaitingConfirmation || st.SelectedService == "" || st.SelectedDate == "" || st.SelectedTime == "" {
		return []Reply{m.mainMenu(m.Texts.Fallback)}, st, nil
	}

	_, err := m.Booker.Book(ctx, channelID, st.SelectedService, st.SelectedDate, st.SelectedTime)
	switch {
	case err == nil:
		return []Reply{m.mainMenu(fmt.Sprintf(m.Texts.Booked, longDate(st.SelectedDate), st.SelectedTime))}, idle(), nil
	case errors.Is(err, services.ErrSlotTaken):
		times, terr := m.Booker.BookableTimes(ctx, st.SelectedDate)
		if terr != nil {
			return nil, st, terr
		}
		if len(times) == 0 {
			reply, derr := m.datesReply(ctx, m.Texts.SlotTaken)
			if derr != nil {
				return nil, st, derr
			}
			return []Reply{reply}, State{Stage: StageSelectingDate, SelectedService: st.SelectedService}, nil
		}
		back := State{Stage: StageSelectingTime, SelectedService: st.SelectedService, SelectedDate: st.SelectedDate}
		return []Reply{m.timesReply(times, m.Texts.SlotTaken)}, back, nil
	case errors.Is(err, services.ErrIdentityNotVerified):
		m.Log.Error().Int64("channel_id", channelID).Msg("invariant violated: booking confirmed without verified contact")
		return []Reply{{Text: m.Texts.AskEmail}}, State{Stage: StageAwaitingEmail}, nil
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrInvalidInput):
		return []Reply{m.mainMenu(m.Texts.BookingFailed)}, idle(), nil
	default:
		return nil, st, err
	}
}

func (m *Machine) onDelete(ctx context.Context, channelID int64, id string, st State) ([]Reply, State, error) {
	err := m.Booker.DeleteOwned(ctx, channelID, id)
	switch {
	case err == nil:
		return []Reply{m.mainMenu(m.Texts.Deleted)}, idle(), nil
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrInvalidInput):
		return []Reply{m.mainMenu(m.Texts.DeleteFailed)}, idle(), nil
	default:
		return nil, st, err
	}
}

func (m *Machine) myBookings(ctx context.Context, channelID int64) ([]Reply, State, error) {
	list, err := m.Booker.ListConfirmed(ctx, channelID)
	if err != nil {
		return nil, idle(), err
	}
	if len(list) == 0 {
		return []Reply{m.mainMenu(m.Texts.NoBookings)}, idle(), nil
	}
	var b strings.Builder
	b.WriteString(m.Texts.BookingsHeader)
	for _, r := range list {
		b.WriteByte('\n')
		fmt.Fprintf(&b, m.Texts.BookingLine, r.ServiceName, longDate(r.Date), r.Time)
	}
	return []Reply{
		{Text: b.String()},
		{Text: m.Texts.ChooseAction, Buttons: [][]Button{
			{{Label: m.Texts.DeleteButton, Token: MenuToken(MenuDelete)}},
			m.backRow(),
		}},
	}, idle(), nil
}

func (m *Machine) deletePicker(ctx context.Context, channelID int64) ([]Reply, State, error) {
	list, err := m.Booker.ListConfirmed(ctx, channelID)
	if err != nil {
		return nil, idle(), err
	}
	if len(list) == 0 {
		return []Reply{m.mainMenu(m.Texts.NoBookings)}, idle(), nil
	}
	rows := make([][]Button, 0, len(list)+1)
	for _, r := range list {
		label := fmt.Sprintf("%s %s %s", shortDate(r.Date), r.Time, r.ServiceName)
		rows = append(rows, []Button{{Label: label, Token: DeleteToken(r.ID)}})
	}
	rows = append(rows, m.backRow())
	return []Reply{{Text: m.Texts.ChooseDelete, Buttons: rows}}, idle(), nil
}

func (m *Machine) playDiscount(ctx context.Context, channelID int64) ([]Reply, State, error) {
	if m.Discount == nil {
		return []Reply{m.mainMenu(m.Texts.Fallback)}, idle(), nil
	}
	out, err := m.Discount.Play(ctx, channelID)
	switch {
	case errors.Is(err, services.ErrAlreadyPlayedToday):
		return []Reply{m.mainMenu(m.Texts.AlreadyPlayed)}, idle(), nil
	case err != nil:
		m.Log.Error().Err(err).Int64("channel_id", channelID).Msg("discount game failed")
		return []Reply{m.mainMenu(m.Texts.GenericError)}, idle(), nil
	case out.Won:
		return []Reply{m.mainMenu(fmt.Sprintf(m.Texts.DiscountWon, out.First, out.Percent))}, idle(), nil
	default:
		return []Reply{m.mainMenu(fmt.Sprintf(m.Texts.DiscountLost, out.First, out.Second))}, idle(), nil
	}
}

func (m *Machine) greeting(firstName string) Reply {
	name := strings.TrimSpace(firstName)
	if name == "" {
		return m.mainMenu(m.Texts.GreetingAny)
	}
	return m.mainMenu(fmt.Sprintf(m.Texts.Greeting, cases.Title(m.Locale).String(name)))
}

func containsDate(dates []time.Time, date string) bool {
	for _, d := range dates {
		if d.Format(domain.DateLayout) == date {
			return true
		}
	}
	return false
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}
