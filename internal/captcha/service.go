package captcha

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/phytul/nightingale-platform/pkg/crypto"
	"github.com/phytul/nightingale-platform/pkg/logger"
	"github.com/phytul/nightingale-platform/pkg/mail"
	"github.com/phytul/nightingale-platform/pkg/metrics"
)

const (
	defaultCodeLength = 6
	defaultMaxSends   = 5
	defaultSendWindow = time.Hour
)

// ErrSendFailed signals that the outbound mail channel rejected the message.
var ErrSendFailed = errors.New("captcha: send failed")

// ErrRateLimited signals that the identifier requested too many codes recently.
var ErrRateLimited = errors.New("captcha: rate limited")

// Option customises the Service.
type Option func(*Service)

// WithCodeLength adjusts the number of digits in generated codes.
func WithCodeLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.codeLength = n
		}
	}
}

// WithSendLimit overrides how many codes an identifier may request per window.
func WithSendLimit(maxSends int, window time.Duration) Option {
	return func(s *Service) {
		if maxSends > 0 {
			s.maxSends = maxSends
		}
		if window > 0 {
			s.sendWindow = window
		}
	}
}

// Service issues verification codes: it generates a code, dispatches it over
// email, and persists it with a purpose-scoped TTL. Re-issuing overwrites the
// previous live code for the same (purpose, identifier).
type Service struct {
	store      Store
	mailer     mail.Mailer
	codeLength int
	maxSends   int
	sendWindow time.Duration
	log        *zap.Logger
}

// NewService constructs a captcha Service with the provided dependencies.
func NewService(store Store, mailer mail.Mailer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("captcha service: store is required")
	}

	service := &Service{
		store:      store,
		mailer:     mailer,
		codeLength: defaultCodeLength,
		maxSends:   defaultMaxSends,
		sendWindow: defaultSendWindow,
		log:        logger.WithModule("captcha"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Issue generates and dispatches a fresh code for (identifier, purpose).
// The code is stored only after the mail channel accepts the message, so a
// failed send never leaves a dangling valid code.
func (s *Service) Issue(ctx context.Context, identifier string, purpose Purpose) error {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return errors.New("captcha service: identifier is required")
	}

	count, err := s.store.Increment(ctx, rateKey(purpose, identifier), s.sendWindow)
	if err != nil {
		// Fail open on counter trouble; the code path itself still works.
		s.log.Warn("send counter unavailable", zap.Error(err))
	} else if count > int64(s.maxSends) {
		return ErrRateLimited
	}

	code, err := crypto.GenerateNumericCode(s.codeLength)
	if err != nil {
		return fmt.Errorf("captcha service: generate code: %w", err)
	}

	ttl := purpose.TTL()

	if s.mailer != nil {
		msg := mail.Message{
			To:      []string{identifier},
			Subject: "Your Nightingale verification code",
			Body: fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
				code, int(ttl.Minutes())),
		}
		if sendErr := s.mailer.Send(ctx, msg); sendErr != nil && !errors.Is(sendErr, mail.ErrSMTPDisabled) {
			return fmt.Errorf("%w: %v", ErrSendFailed, sendErr)
		}
	}

	if err := s.store.Put(ctx, purpose, identifier, code, ttl); err != nil {
		return err
	}

	metrics.CodesIssued.WithLabelValues(purpose.String()).Inc()
	s.log.Info("verification code issued",
		zap.String("purpose", purpose.String()),
		zap.String("identifier", identifier),
	)

	return nil
}

// Verify checks a candidate code, consuming it on success.
func (s *Service) Verify(ctx context.Context, identifier string, purpose Purpose, candidate string) error {
	identifier = strings.ToLower(strings.TrimSpace(identifier))

	err := s.store.Verify(ctx, purpose, identifier, candidate)
	switch {
	case err == nil:
		metrics.CodeVerifications.WithLabelValues(purpose.String(), "success").Inc()
	case errors.Is(err, ErrCodeExpired):
		metrics.CodeVerifications.WithLabelValues(purpose.String(), "expired").Inc()
	case errors.Is(err, ErrCodeMismatch), errors.Is(err, ErrTooManyAttempts):
		metrics.CodeVerifications.WithLabelValues(purpose.String(), "mismatch").Inc()
	default:
		metrics.CodeVerifications.WithLabelValues(purpose.String(), "error").Inc()
	}
	return err
}
