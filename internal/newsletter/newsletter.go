// Package newsletter handles storefront newsletter signups with a per-key
// signup throttle. The throttle counter store is injected so it can be
// swapped for a shared cache without touching the service.
package newsletter

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidEmail is returned when the address fails RFC 5322 parsing.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrRateLimited is returned when the signup key has exceeded its quota.
	ErrRateLimited = errors.New("too many signup attempts")
)

// SubscriberStore persists confirmed signups.
type SubscriberStore interface {
	Subscribe(ctx context.Context, email, source string) error
}

// CounterStore tracks signup attempt timestamps per key (typically client
// IP). Count returns how many attempts fall inside the window ending now;
// Add records one more attempt. Implementations expire old timestamps.
type CounterStore interface {
	Count(key string, now time.Time, window time.Duration) int
	Add(key string, now time.Time)
}

// Service validates and throttles newsletter signups.
type Service struct {
	subscribers SubscriberStore
	counters    CounterStore
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewService creates a newsletter Service allowing maxAttempts signups per
// key per window.
func NewService(subscribers SubscriberStore, counters CounterStore, maxAttempts int, window time.Duration) *Service {
	return &Service{
		subscribers: subscribers,
		counters:    counters,
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// Signup validates the email, checks the throttle for key, and persists the
// subscription. Throttled and malformed requests are counted so a client
// cannot probe the limit for free.
func (s *Service) Signup(ctx context.Context, email, source, key string) error {
	now := s.now()
	if s.counters.Count(key, now, s.window) >= s.maxAttempts {
		return ErrRateLimited
	}
	s.counters.Add(key, now)

	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return ErrInvalidEmail
	}

	if err := s.subscribers.Subscribe(ctx, addr.Address, source); err != nil {
		return errors.Wrap(err, "subscribe")
	}
	return nil
}
