// Package telegram adapts the Telegram Bot API to the conversation engine.
//
// Updates arrive by long polling (Run) or by webhook (WebhookHandler). Each
// one is deduplicated by update_id, converted into a conversation.Event and
// submitted to the dispatcher. Replies come back through Notify, which
// renders inline keyboards from reply buttons.
package telegram

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-bot/internal/conversation"
	"github.com/tbourn/go-booking-bot/internal/domain"
	"github.com/tbourn/go-booking-bot/internal/repo"
)

// ErrNoDice is returned when Telegram answers a dice request without a value.
var ErrNoDice = errors.New("telegram: dice message without value")

type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Submitter accepts events for asynchronous handling.
type Submitter interface {
	Submit(ev conversation.Event) error
}

// Deduper reports whether an update was already processed, recording it
// otherwise.
type Deduper interface {
	Seen(ctx context.Context, updateID int, channelID int64) (bool, error)
}

// Bot is a Telegram transport.
type Bot struct {
	api    api
	Events Submitter
	Dedupe Deduper
	// Secret guards the webhook path. Empty disables the check.
	Secret string
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int
	Log         zerolog.Logger
}

// New authenticates against the Bot API with token.
func New(token string, debug bool) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	bot.Debug = debug
	b := newBot(bot)
	b.Log.Info().Str("bot", bot.Self.UserName).Msg("telegram authorized")
	return b, nil
}

func newBot(a api) *Bot {
	return &Bot{
		api:         a,
		PollTimeout: 30,
		Log:         log.With().Str("component", "telegram").Logger(),
	}
}

// EventFromUpdate converts text messages and button taps. Other update
// kinds report false.
func EventFromUpdate(u tgbotapi.Update) (conversation.Event, bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		ev := conversation.Event{Token: cq.Data}
		if cq.From != nil {
			ev.ChannelID = cq.From.ID
			ev.FirstName = cq.From.FirstName
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			ev.ChannelID = cq.Message.Chat.ID
		}
		return ev, ev.ChannelID != 0 && ev.Token != ""
	case u.Message != nil && u.Message.Chat != nil && u.Message.Text != "":
		ev := conversation.Event{ChannelID: u.Message.Chat.ID, Text: u.Message.Text}
		if u.Message.From != nil {
			ev.FirstName = u.Message.From.FirstName
		}
		return ev, true
	}
	return conversation.Event{}, false
}

// HandleUpdate deduplicates, acknowledges callbacks and submits the event.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	ev, ok := EventFromUpdate(u)
	if !ok {
		return
	}
	if b.Dedupe != nil {
		seen, err := b.Dedupe.Seen(ctx, u.UpdateID, ev.ChannelID)
		if err != nil {
			b.Log.Warn().Err(err).Int("update_id", u.UpdateID).Msg("dedupe check failed")
		}
		if seen {
			b.Log.Debug().Int("update_id", u.UpdateID).Msg("duplicate update skipped")
			return
		}
	}
	if u.CallbackQuery != nil {
		if _, err := b.api.Request(tgbotapi.NewCallback(u.CallbackQuery.ID, "")); err != nil {
			b.Log.Debug().Err(err).Msg("answer callback failed")
		}
	}
	if b.Events == nil {
		return
	}
	if err := b.Events.Submit(ev); err != nil {
		b.Log.Warn().Err(err).Int64("channel_id", ev.ChannelID).Msg("submit event failed")
	}
}

// Notify implements conversation.Notifier.
func (b *Bot) Notify(ctx context.Context, channelID int64, replies []conversation.Reply) error {
	for _, r := range replies {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(channelID, r.Text)
		if r.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdown
		}
		if len(r.Buttons) > 0 {
			msg.ReplyMarkup = Keyboard(r.Buttons)
		}
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

// Keyboard renders button rows as an inline keyboard.
func Keyboard(rows [][]conversation.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Token))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(btns...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

// RollDice sends an animated die and returns its value. It satisfies
// services.DiceRoller.
func (b *Bot) RollDice(ctx context.Context, channelID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg, err := b.api.Send(tgbotapi.NewDice(channelID))
	if err != nil {
		return 0, fmt.Errorf("telegram dice: %w", err)
	}
	if msg.Dice == nil {
		return 0, ErrNoDice
	}
	return msg.Dice.Value, nil
}

// Run long-polls until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = b.PollTimeout
	updates := b.api.GetUpdatesChan(cfg)
	b.Log.Info().Msg("telegram long polling started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, u)
		}
	}
}

// SetWebhook registers url with Telegram.
func (b *Bot) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("telegram webhook url: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("telegram set webhook: %w", err)
	}
	return nil
}

// SecretHeader carries the webhook secret when Telegram is configured with
// one. Without the header the secret is taken from the :secret path segment.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler serves POST /telegram/webhook[/:secret]. Telegram retries
// on non-2xx, so malformed bodies are acknowledged with 200.
func (b *Bot) WebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(SecretHeader)
		if got == "" {
			got = c.Param("secret")
		}
		if b.Secret != "" && subtle.ConstantTimeCompare([]byte(got), []byte(b.Secret)) != 1 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		var u tgbotapi.Update
		if err := c.ShouldBindJSON(&u); err != nil {
			b.Log.Debug().Err(err).Msg("webhook: bad update body")
			c.Status(http.StatusOK)
			return
		}
		b.HandleUpdate(c.Request.Context(), u)
		c.Status(http.StatusOK)
	}
}

// StoreDeduper records update ids in the processed_events table.
type StoreDeduper struct {
	DB  *gorm.DB
	TTL time.Duration
}

// Seen implements Deduper.
func (d StoreDeduper) Seen(ctx context.Context, updateID int, channelID int64) (bool, error) {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	_, err := repo.CreateProcessedEvent(ctx, d.DB, domain.SourceTelegram, strconv.Itoa(updateID), channelID, "", ttl)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, repo.ErrDuplicate):
		return true, nil
	default:
		return false, err
	}
}
