package conversation

import (
	"context"
	"strings"
)

// Event is one inbound user action. Exactly one of Text and Token is set:
// Text for typed messages, Token for button taps.
type Event struct {
	ChannelID int64  `json:"channel_id"`
	FirstName string `json:"first_name,omitempty"`
	Text      string `json:"text,omitempty"`
	Token     string `json:"token,omitempty"`
}

// IsSelection reports whether the event is a button tap.
func (e Event) IsSelection() bool { return strings.TrimSpace(e.Token) != "" }

// Button is a selectable option rendered by the transport.
type Button struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Reply is one outbound message with an optional keyboard.
type Reply struct {
	Text     string     `json:"text"`
	Buttons  [][]Button `json:"buttons,omitempty"`
	Markdown bool       `json:"markdown,omitempty"`
}

// Notifier delivers replies to a channel. Transports implement it.
type Notifier interface {
	Notify(ctx context.Context, channelID int64, replies []Reply) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, channelID int64, replies []Reply) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, channelID int64, replies []Reply) error {
	return f(ctx, channelID, replies)
}
