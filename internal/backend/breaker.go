package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings configures the circuit breaker placed in front of the
// backend.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive infrastructure failures
	// that opens the breaker.
	MaxFailures uint32

	// OpenTimeout is how long the breaker stays open before letting a
	// probe request through.
	OpenTimeout time.Duration
}

// Breaker guards backend calls so an unreachable database or Redis fails
// fast with CodeUnavailable instead of stacking up slow requests. Domain
// rejections such as a wrong password count as successes.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker named after the backend it protects.
func NewBreaker(name string, s BreakerSettings) *Breaker {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isInfrastructureFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("backend circuit breaker state changed",
				slog.String("backend", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})}
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Auth wraps an Auth implementation.
func (b *Breaker) Auth(next Auth) Auth {
	return &breakerAuth{b: b, next: next}
}

// Store wraps a Store implementation.
func (b *Breaker) Store(next Store) Store {
	return &breakerStore{b: b, next: next}
}

// isInfrastructureFailure separates broken infrastructure from ordinary
// answers like "no such user".
func isInfrastructureFailure(err error) bool {
	switch ErrorCode(err) {
	case CodeInternal, CodeUnavailable:
		return !errors.Is(err, context.Canceled)
	default:
		return false
	}
}

// execute runs fn through the breaker and maps breaker rejections to
// CodeUnavailable.
func execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	out, err := b.cb.Execute(func() (any, error) {
		v, err := fn()
		return v, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, newError(CodeUnavailable, err)
	}
	v, _ := out.(T)
	return v, err
}

type breakerAuth struct {
	b    *Breaker
	next Auth
}

func (a *breakerAuth) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return execute(a.b, func() (*Session, error) { return a.next.SignInWithPassword(ctx, email, password) })
}

func (a *breakerAuth) CreateUserWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return execute(a.b, func() (*Session, error) { return a.next.CreateUserWithPassword(ctx, email, password) })
}

func (a *breakerAuth) ResolveSession(ctx context.Context, token string) (*Session, error) {
	return execute(a.b, func() (*Session, error) { return a.next.ResolveSession(ctx, token) })
}

func (a *breakerAuth) SignOut(ctx context.Context, token string) error {
	_, err := execute(a.b, func() (struct{}, error) { return struct{}{}, a.next.SignOut(ctx, token) })
	return err
}

type breakerStore struct {
	b    *Breaker
	next Store
}

func (s *breakerStore) Get(ctx context.Context, collection, id string) (Document, error) {
	return execute(s.b, func() (Document, error) { return s.next.Get(ctx, collection, id) })
}

func (s *breakerStore) Set(ctx context.Context, collection, id string, doc Document, merge bool) error {
	_, err := execute(s.b, func() (struct{}, error) { return struct{}{}, s.next.Set(ctx, collection, id, doc, merge) })
	return err
}
