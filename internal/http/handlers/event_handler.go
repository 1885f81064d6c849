// Conversation event HTTP handler.
//
// POST /channels/{channel_id}/events feeds one typed message or button tap into
// the booking engine and returns the replies synchronously. It shares the
// per-channel ordering of the Telegram transport.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous request with
// the same key for the same channel completed, the stored replies are
// returned with `Idempotency-Replayed: true` and the engine is not invoked.
// A key whose first request is still running yields 409.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-booking-bot/internal/conversation"
	"github.com/tbourn/go-booking-bot/internal/domain"
	"github.com/tbourn/go-booking-bot/internal/http/middleware"
	"github.com/tbourn/go-booking-bot/internal/repo"
)

// HeaderIdempotencyReplayed marks a response served from the idempotency store.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// PostEventRequest is the JSON payload for one conversation event.
// The binding tags require exactly one of Text and Token. Limits follow
// Telegram: 4096 characters per message, 64 bytes of callback data.
type PostEventRequest struct {
	// FirstName is used for the greeting.
	FirstName string `json:"first_name" binding:"max=255" example:"anna"`
	// Text is a typed message, e.g. an email address or a code.
	Text string `json:"text" binding:"required_without=Token,excluded_with=Token,max=4096" example:"/start"`
	// Token is a button selection, e.g. "svc:manicure".
	Token string `json:"token" binding:"required_without=Text,excluded_with=Text,max=64" example:"menu:book"`
}

// PostEventResponse carries the replies produced for the event.
type PostEventResponse struct {
	Replies []conversation.Reply `json:"replies"`
}

// PostEvent godoc
// @ID          postEvent
// @Summary     Drive the booking conversation
// @Description Runs one event for the channel and returns the bot replies.
// @Description Supports idempotency via the Idempotency-Key header (same key → same replies).
// @Tags        Conversation
// @Accept      json
// @Produce     json
//
// @Param       channel_id       path    int     true  "Channel ID"  example(42)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.PostEventRequest  true  "Event payload"
//
// @Success     200  {object}  handlers.PostEventResponse
// @Header      200  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Same key still in progress"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable or shutting down"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /channels/{channel_id}/events [post]
func (h *Handlers) PostEvent(c *gin.Context) {
	ctx := c.Request.Context()
	channelID, okID := channelParam(c)
	if !okID {
		return
	}

	var req PostEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "exactly one of text or token is required")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	text, token := strings.TrimSpace(req.Text), strings.TrimSpace(req.Token)
	if text == "" && token == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text or token must not be blank")
		return
	}
	ev := conversation.Event{ChannelID: channelID, FirstName: req.FirstName, Text: text, Token: token}

	// Idempotency (claim or replay) – only when a store is configured.
	var claimKey string
	if key, has := middleware.GetIdempotencyKey(c); has && h.DB != nil {
		claimKey = middleware.ScopedIdempotencyKey(middleware.IdempotencyScope(c), key)
		if rec, err := repo.GetProcessedEvent(ctx, h.DB, domain.SourceHTTP, claimKey, time.Now().UTC()); err == nil {
			h.replay(c, rec)
			return
		}
		_, err := repo.CreateProcessedEvent(ctx, h.DB, domain.SourceHTTP, claimKey, channelID, "", h.ttl())
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			fail(c, http.StatusConflict, ErrCodeConflict, "request with this Idempotency-Key is in progress")
			return
		case err != nil:
			// Best effort: serve without replay support.
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency claim failed")
			claimKey = ""
		}
	}

	replies, err := h.engine.Do(ctx, ev)
	if err != nil {
		if claimKey != "" {
			_ = repo.DeleteProcessedEvent(ctx, h.DB, domain.SourceHTTP, claimKey)
		}
		failService(c, err, ErrCodeEventFailed)
		return
	}
	if replies == nil {
		replies = []conversation.Reply{}
	}

	// Idempotency (store path) – best effort.
	if claimKey != "" {
		if raw, err := json.Marshal(replies); err == nil {
			_ = repo.UpdateProcessedResponse(ctx, h.DB, domain.SourceHTTP, claimKey, string(raw))
		}
	}

	ok(c, http.StatusOK, PostEventResponse{Replies: replies})
}

func (h *Handlers) replay(c *gin.Context, rec *domain.ProcessedEvent) {
	if rec.Response == "" {
		fail(c, http.StatusConflict, ErrCodeConflict, "request with this Idempotency-Key is in progress")
		return
	}
	var replies []conversation.Reply
	if err := json.Unmarshal([]byte(rec.Response), &replies); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "stored response unreadable")
		return
	}
	c.Header(HeaderIdempotencyReplayed, "true")
	ok(c, http.StatusOK, PostEventResponse{Replies: replies})
}

func (h *Handlers) ttl() time.Duration {
	if h.IdempotencyTTL > 0 {
		return h.IdempotencyTTL
	}
	return DefaultIdempotencyTTL
}
