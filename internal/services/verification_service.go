// Package services – VerificationService
//
// This file implements the confirmation-code workflow that binds a messaging
// channel to a verified email address. Outcomes are typed results rather
// than errors; only persistence failures are returned as errors, wrapped in
// ErrStorageUnavailable.
//
// There is no retry limit on wrong codes: the user simply re-submits.
package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-booking-bot/internal/domain"
	"github.com/tbourn/go-booking-bot/internal/identity"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	emailRe = regexp.MustCompile(`^[A-Za-z0-9]+([._%+-]?[A-Za-z0-9]+)*@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	codeRe  = regexp.MustCompile(`^[0-9]{4}$`)
)

// VerificationResult is the outcome of submitting an email.
type VerificationResult int

const (
	CodeSent VerificationResult = iota + 1
	AlreadyConfirmed
	InvalidEmail
)

func (r VerificationResult) String() string {
	switch r {
	case CodeSent:
		return "code_sent"
	case AlreadyConfirmed:
		return "already_confirmed"
	case InvalidEmail:
		return "invalid_email"
	default:
		return "unknown"
	}
}

// VerificationOutcome carries the result of Request. Code and Email are set
// only for CodeSent; the caller is responsible for mailing the code.
type VerificationOutcome struct {
	Result VerificationResult
	Code   string
	Email  string
}

// ConfirmResult is the outcome of submitting a code.
type ConfirmResult int

const (
	Confirmed ConfirmResult = iota + 1
	WrongCode
	MalformedCode
	NoPendingVerification
)

func (r ConfirmResult) String() string {
	switch r {
	case Confirmed:
		return "confirmed"
	case WrongCode:
		return "wrong_code"
	case MalformedCode:
		return "malformed_code"
	case NoPendingVerification:
		return "no_pending_verification"
	default:
		return "unknown"
	}
}

// VerificationRepo defines the repository contract required by
// VerificationService.
type VerificationRepo interface {
	GetVerification(ctx context.Context, db *gorm.DB, channelID int64) (*domain.ContactVerification, error)
	UpsertVerification(ctx context.Context, db *gorm.DB, v *domain.ContactVerification) error
	MarkVerificationConfirmed(ctx context.Context, db *gorm.DB, channelID int64, at time.Time) error
}

// VerificationService generates, stores and checks confirmation codes.
type VerificationService struct {
	DB   *gorm.DB
	Repo VerificationRepo

	// NewCode returns a fresh 4-digit code. Defaults to GenerateCode.
	NewCode func() (string, error)
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewVerificationService wires the default code generator and clock.
func NewVerificationService(db *gorm.DB, r VerificationRepo) *VerificationService {
	return &VerificationService{DB: db, Repo: r, NewCode: GenerateCode, Now: time.Now}
}

// ValidEmail reports whether s looks like local@domain with a dotted domain.
func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// GenerateCode returns a uniformly random code in 0000..9999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// Request starts (or restarts) verification of email for channelID.
//
// A channel that already confirmed this exact address gets AlreadyConfirmed
// and nothing is written. Otherwise the single record of the channel is
// upserted with a fresh code and reset to unconfirmed.
func (s *VerificationService) Request(ctx context.Context, channelID int64, email string) (VerificationOutcome, error) {
	ctx, span := otel.Tracer("services/VerificationService").Start(ctx, "Request",
		trace.WithAttributes(attribute.Int64("channel.id", channelID)),
	)
	defer span.End()

	email = strings.TrimSpace(email)
	if !emailRe.MatchString(email) {
		verificationOutcomes.WithLabelValues(InvalidEmail.String()).Inc()
		return VerificationOutcome{Result: InvalidEmail}, nil
	}
	id := identity.Of(channelID, email).String()

	existing, err := s.Repo.GetVerification(ctx, s.DB, channelID)
	switch {
	case err == nil:
		if existing.Confirmed && existing.Identity == id {
			verificationOutcomes.WithLabelValues(AlreadyConfirmed.String()).Inc()
			return VerificationOutcome{Result: AlreadyConfirmed, Email: existing.Email}, nil
		}
	case isNotFound(err):
	default:
		return VerificationOutcome{}, storageErr(err)
	}

	gen := s.NewCode
	if gen == nil {
		gen = GenerateCode
	}
	code, err := gen()
	if err != nil {
		return VerificationOutcome{}, fmt.Errorf("generate code: %w", err)
	}

	rec := &domain.ContactVerification{
		ChannelID:        channelID,
		Identity:         id,
		Email:            email,
		ConfirmationCode: code,
	}
	if existing != nil {
		rec.CreatedAt = existing.CreatedAt
	}
	if err := s.Repo.UpsertVerification(ctx, s.DB, rec); err != nil {
		return VerificationOutcome{}, storageErr(err)
	}
	verificationOutcomes.WithLabelValues(CodeSent.String()).Inc()
	return VerificationOutcome{Result: CodeSent, Code: code, Email: email}, nil
}

// Confirm checks a submitted code. Anything that is not exactly four ASCII
// digits is MalformedCode and never reaches storage.
func (s *VerificationService) Confirm(ctx context.Context, channelID int64, code string) (ConfirmResult, error) {
	code = strings.TrimSpace(code)
	if !codeRe.MatchString(code) {
		confirmOutcomes.WithLabelValues(MalformedCode.String()).Inc()
		return MalformedCode, nil
	}

	ctx, span := otel.Tracer("services/VerificationService").Start(ctx, "Confirm",
		trace.WithAttributes(attribute.Int64("channel.id", channelID)),
	)
	defer span.End()

	rec, err := s.Repo.GetVerification(ctx, s.DB, channelID)
	if err != nil {
		if isNotFound(err) {
			confirmOutcomes.WithLabelValues(NoPendingVerification.String()).Inc()
			return NoPendingVerification, nil
		}
		return 0, storageErr(err)
	}
	if subtle.ConstantTimeCompare([]byte(rec.ConfirmationCode), []byte(code)) != 1 {
		confirmOutcomes.WithLabelValues(WrongCode.String()).Inc()
		return WrongCode, nil
	}
	if rec.Confirmed {
		confirmOutcomes.WithLabelValues(Confirmed.String()).Inc()
		return Confirmed, nil
	}
	if err := s.Repo.MarkVerificationConfirmed(ctx, s.DB, channelID, s.now().UTC()); err != nil {
		if isNotFound(err) {
			return NoPendingVerification, nil
		}
		return 0, storageErr(err)
	}
	confirmOutcomes.WithLabelValues(Confirmed.String()).Inc()
	return Confirmed, nil
}

// Verified returns the channel's record when it is confirmed. ok is false
// when the channel has no record or has not confirmed yet.
func (s *VerificationService) Verified(ctx context.Context, channelID int64) (rec *domain.ContactVerification, ok bool, err error) {
	rec, err = s.Repo.GetVerification(ctx, s.DB, channelID)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, storageErr(err)
	}
	return rec, rec.Confirmed, nil
}

// IsVerified reports whether channelID has a confirmed contact.
func (s *VerificationService) IsVerified(ctx context.Context, channelID int64) (bool, error) {
	_, ok, err := s.Verified(ctx, channelID)
	return ok, err
}

func (s *VerificationService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
