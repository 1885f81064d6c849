package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-booking-bot/internal/conversation"
	"github.com/tbourn/go-booking-bot/internal/domain"
)

// ----- Fakes -----

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	dice     int
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	if _, ok := c.(tgbotapi.DiceConfig); ok && f.dice > 0 {
		return tgbotapi.Message{Dice: &tgbotapi.Dice{Emoji: "🎲", Value: f.dice}}, nil
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

type captureSubmitter struct {
	mu  sync.Mutex
	evs []conversation.Event
}

func (c *captureSubmitter) Submit(ev conversation.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evs = append(c.evs, ev)
	return nil
}

func (c *captureSubmitter) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.evs)
}

func textUpdate(id int, chat int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: chat},
			From: &tgbotapi.User{ID: chat, FirstName: "ann"},
			Text: text,
		},
	}
}

func callbackUpdate(id int, chat int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			From:    &tgbotapi.User{ID: chat, FirstName: "ann"},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chat}},
			Data:    data,
		},
	}
}

// ----- Tests -----

func TestEventFromUpdate(t *testing.T) {
	ev, ok := EventFromUpdate(textUpdate(1, 5, "hello"))
	if !ok || ev.ChannelID != 5 || ev.Text != "hello" || ev.FirstName != "ann" || ev.IsSelection() {
		t.Fatalf("text update = %+v, %v", ev, ok)
	}
	ev, ok = EventFromUpdate(callbackUpdate(2, 6, "menu:book"))
	if !ok || ev.ChannelID != 6 || ev.Token != "menu:book" || !ev.IsSelection() {
		t.Fatalf("callback update = %+v, %v", ev, ok)
	}
	if _, ok := EventFromUpdate(tgbotapi.Update{UpdateID: 3}); ok {
		t.Fatalf("empty update must be ignored")
	}
	if _, ok := EventFromUpdate(textUpdate(4, 5, "")); ok {
		t.Fatalf("non-text message must be ignored")
	}
}

func TestHandleUpdate_AnswersCallbackAndSubmits(t *testing.T) {
	fa := &fakeAPI{}
	sub := &captureSubmitter{}
	b := newBot(fa)
	b.Events = sub

	b.HandleUpdate(context.Background(), callbackUpdate(10, 7, "confirm"))
	if sub.len() != 1 || sub.evs[0].Token != "confirm" {
		t.Fatalf("submitted = %+v", sub.evs)
	}
	if len(fa.requests) != 1 {
		t.Fatalf("callback not answered")
	}
	if cb, ok := fa.requests[0].(tgbotapi.CallbackConfig); !ok || cb.CallbackQueryID != "cb-1" {
		t.Fatalf("request = %#v", fa.requests[0])
	}
}

func newDedupeDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.ProcessedEvent{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestHandleUpdate_DropsRedeliveries(t *testing.T) {
	sub := &captureSubmitter{}
	b := newBot(&fakeAPI{})
	b.Events = sub
	b.Dedupe = StoreDeduper{DB: newDedupeDB(t)}

	u := textUpdate(99, 1, "a@b.com")
	b.HandleUpdate(context.Background(), u)
	b.HandleUpdate(context.Background(), u)
	b.HandleUpdate(context.Background(), textUpdate(100, 1, "1234"))

	if sub.len() != 2 {
		t.Fatalf("submitted %d events; want 2", sub.len())
	}
}

func TestNotify_RendersKeyboardAndMarkdown(t *testing.T) {
	fa := &fakeAPI{}
	b := newBot(fa)
	replies := []conversation.Reply{
		{Text: "plain"},
		{Text: "*bold*", Markdown: true, Buttons: [][]conversation.Button{
			{{Label: "03.06", Token: "date:2024-06-03"}, {Label: "04.06", Token: "date:2024-06-04"}},
			{{Label: "Back", Token: "menu:main"}},
		}},
	}
	if err := b.Notify(context.Background(), 12, replies); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(fa.sent) != 2 {
		t.Fatalf("sent %d messages", len(fa.sent))
	}
	first := fa.sent[0].(tgbotapi.MessageConfig)
	if first.ChatID != 12 || first.Text != "plain" || first.ParseMode != "" || first.ReplyMarkup != nil {
		t.Fatalf("first = %+v", first)
	}
	second := fa.sent[1].(tgbotapi.MessageConfig)
	if second.ParseMode != tgbotapi.ModeMarkdown {
		t.Fatalf("parse mode = %q", second.ParseMode)
	}
	kb, ok := second.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 2 || len(kb.InlineKeyboard[0]) != 2 {
		t.Fatalf("keyboard = %#v", second.ReplyMarkup)
	}
	if d := kb.InlineKeyboard[0][1].CallbackData; d == nil || *d != "date:2024-06-04" {
		t.Fatalf("callback data = %v", d)
	}
}

func TestNotify_PropagatesSendError(t *testing.T) {
	b := newBot(&fakeAPI{sendErr: errors.New("429 too many requests")})
	if err := b.Notify(context.Background(), 1, []conversation.Reply{{Text: "x"}}); err == nil {
		t.Fatalf("expected send error")
	}
}

func TestRollDice(t *testing.T) {
	b := newBot(&fakeAPI{dice: 5})
	v, err := b.RollDice(context.Background(), 1)
	if err != nil || v != 5 {
		t.Fatalf("RollDice = %d, %v", v, err)
	}
	b = newBot(&fakeAPI{})
	if _, err := b.RollDice(context.Background(), 1); !errors.Is(err, ErrNoDice) {
		t.Fatalf("err = %v; want ErrNoDice", err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	fa := &fakeAPI{updates: make(chan tgbotapi.Update, 1)}
	sub := &captureSubmitter{}
	b := newBot(fa)
	b.Events = sub
	fa.updates <- textUpdate(1, 3, "/start")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for sub.len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if !fa.stopped {
		t.Fatalf("polling not stopped")
	}
}

func TestWebhookHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sub := &captureSubmitter{}
	b := newBot(&fakeAPI{})
	b.Events = sub
	b.Secret = "s3cret"

	r := gin.New()
	r.POST("/telegram/webhook/:secret", b.WebhookHandler())

	body := `{"update_id":5,"message":{"message_id":1,"date":0,"chat":{"id":77,"type":"private"},"from":{"id":77,"is_bot":false,"first_name":"ann"},"text":"hi"}}`

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/telegram/webhook/wrong", strings.NewReader(body)))
	if w.Code != http.StatusUnauthorized || sub.len() != 0 {
		t.Fatalf("bad secret: code=%d submitted=%d", w.Code, sub.len())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/telegram/webhook/s3cret", strings.NewReader(body)))
	if w.Code != http.StatusOK || sub.len() != 1 || sub.evs[0].ChannelID != 77 {
		t.Fatalf("good secret: code=%d evs=%+v", w.Code, sub.evs)
	}

	r.POST("/telegram/webhook", b.WebhookHandler())
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	req.Header.Set(SecretHeader, "s3cret")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || sub.len() != 2 {
		t.Fatalf("header secret: code=%d submitted=%d", w.Code, sub.len())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/telegram/webhook/s3cret", strings.NewReader("{")))
	if w.Code != http.StatusOK {
		t.Fatalf("malformed body must be acknowledged, got %d", w.Code)
	}
}
