package conversation

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-booking-bot/internal/domain"
)

// Action identifies what a selection token does.
type Action string

const (
	ActionService Action = "svc"
	ActionDate    Action = "date"
	ActionTime    Action = "time"
	ActionConfirm Action = "confirm"
	ActionDelete  Action = "del"
	ActionMenu    Action = "menu"
)

// Menu entries addressed by ActionMenu tokens.
const (
	MenuMain     = "main"
	MenuBook     = "book"
	MenuServices = "services"
	MenuAbout    = "about"
	MenuContacts = "contacts"
	MenuMine     = "mine"
	MenuDelete   = "delete"
	MenuDiscount = "discount"
	MenuPlay     = "play"
)

var menus = map[string]bool{
	MenuMain: true, MenuBook: true, MenuServices: true, MenuAbout: true, MenuContacts: true,
	MenuMine: true, MenuDelete: true, MenuDiscount: true, MenuPlay: true,
}

// ErrBadToken is returned by ParseToken for anything it does not recognize.
var ErrBadToken = errors.New("unrecognized selection token")

// Selection is a decoded button payload.
type Selection struct {
	Action Action
	Value  string
}

// Token encodes s as "<action>:<value>", or just "confirm".
func (s Selection) Token() string {
	if s.Action == ActionConfirm {
		return string(ActionConfirm)
	}
	return string(s.Action) + ":" + s.Value
}

// ParseToken decodes a transport payload. Values are validated per action:
// ISO dates, HH:MM times and UUIDs must parse, menus must be known.
func ParseToken(tok string) (Selection, error) {
	tok = strings.TrimSpace(tok)
	if tok == string(ActionConfirm) {
		return Selection{Action: ActionConfirm}, nil
	}
	prefix, value, ok := strings.Cut(tok, ":")
	if !ok || value == "" {
		return Selection{}, ErrBadToken
	}
	sel := Selection{Action: Action(prefix), Value: value}
	switch sel.Action {
	case ActionService:
	case ActionDate:
		if _, err := time.Parse(domain.DateLayout, value); err != nil {
			return Selection{}, ErrBadToken
		}
	case ActionTime:
		if _, err := time.Parse(domain.TimeLayout, value); err != nil || len(value) != len(domain.TimeLayout) {
			return Selection{}, ErrBadToken
		}
	case ActionDelete:
		if _, err := uuid.Parse(value); err != nil {
			return Selection{}, ErrBadToken
		}
	case ActionMenu:
		if !menus[value] {
			return Selection{}, ErrBadToken
		}
	default:
		return Selection{}, ErrBadToken
	}
	return sel, nil
}

// Convenience constructors used when building keyboards.

func ServiceToken(key string) string { return Selection{Action: ActionService, Value: key}.Token() }
func DateToken(d time.Time) string { return Selection{Action: ActionDate, Value: d.Format(domain.DateLayout)}.Token() }
func TimeToken(slot string) string { return Selection{Action: ActionTime, Value: slot}.Token() }
func DeleteToken(id string) string { return Selection{Action: ActionDelete, Value: id}.Token() }
func MenuToken(name string) string { return Selection{Action: ActionMenu, Value: name}.Token() }
func ConfirmToken() string { return Selection{Action: ActionConfirm}.Token() }
