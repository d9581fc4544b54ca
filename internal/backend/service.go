package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// minBackendPasswordLength is the shortest password the backend accepts.
// Forms enforce a stricter rule set before a request ever gets here.
const minBackendPasswordLength = 6

// AccountRepository is the data access contract for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByEmail(ctx context.Context, email string) (*Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, uid string, at time.Time) error
}

// SessionStore keeps live sessions keyed by token.
type SessionStore interface {
	Put(ctx context.Context, session *Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

// AttemptCounter tracks failed sign-ins per email within a window.
type AttemptCounter interface {
	Failures(ctx context.Context, email string) (int, error)
	RecordFailure(ctx context.Context, email string, window time.Duration) error
	Reset(ctx context.Context, email string) error
}

// Options tunes the Service.
type Options struct {
	// SessionTTL is how long a session lives after sign-in.
	SessionTTL time.Duration

	// MaxAttempts is the number of failed sign-ins allowed per email
	// within Lockout before CodeTooManyRequests is returned.
	MaxAttempts int

	// Lockout is the window failed attempts are counted over.
	Lockout time.Duration

	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Service implements Auth on top of an account repository, a session
// store and an attempt counter.
type Service struct {
	accounts AccountRepository
	sessions SessionStore
	attempts AttemptCounter
	opts     Options
}

var _ Auth = (*Service)(nil)

// NewService wires a Service. Zero-valued options fall back to defaults.
func NewService(accounts AccountRepository, sessions SessionStore, attempts AttemptCounter, opts Options) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 720 * time.Hour
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Lockout <= 0 {
		opts.Lockout = 15 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Service{
		accounts: accounts,
		sessions: sessions,
		attempts: attempts,
		opts:     opts,
	}
}

// SignInWithPassword authenticates by email and password and opens a new
// session. Repeated failures for the same email lock it out for the
// configured window.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeAddress(email)
	if err != nil {
		return nil, err
	}

	failures, err := s.attempts.Failures(ctx, email)
	if err != nil {
		return nil, internalError("reading failed attempts: %w", err)
	}
	if failures >= s.opts.MaxAttempts {
		return nil, newError(CodeTooManyRequests, nil)
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if IsCode(err, CodeUserNotFound) {
			s.recordFailure(ctx, email)
			return nil, err
		}
		return nil, internalError("finding account: %w", err)
	}

	if !verifyPassword(password, account.PasswordHash) {
		s.recordFailure(ctx, email)
		return nil, newError(CodeWrongPassword, nil)
	}

	if err := s.attempts.Reset(ctx, email); err != nil {
		slog.Warn("failed to reset sign-in attempts",
			slog.String("email", email),
			slog.Any("error", err),
		)
	}

	session, err := s.openSession(ctx, account)
	if err != nil {
		return nil, err
	}

	// Non-critical; a stale last-login timestamp does not fail the sign-in.
	if err := s.accounts.UpdateLastLogin(ctx, account.UID, s.opts.Clock.Now().UTC()); err != nil {
		slog.Warn("failed to update last login",
			slog.String("uid", account.UID),
			slog.Any("error", err),
		)
	}

	slog.Info("account signed in", slog.String("uid", account.UID))
	return session, nil
}

// CreateUserWithPassword creates a new account and signs it in.
func (s *Service) CreateUserWithPassword(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeAddress(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minBackendPasswordLength {
		return nil, newError(CodeWeakPassword, nil)
	}

	// Check before hashing; argon2 is deliberately expensive.
	exists, err := s.accounts.EmailExists(ctx, email)
	if err != nil {
		return nil, internalError("checking email: %w", err)
	}
	if exists {
		return nil, newError(CodeEmailAlreadyInUse, nil)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, internalError("hashing password: %w", err)
	}

	account := &Account{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.opts.Clock.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if IsCode(err, CodeEmailAlreadyInUse) {
			return nil, err
		}
		return nil, internalError("creating account: %w", err)
	}

	slog.Info("account created", slog.String("uid", account.UID))
	return s.openSession(ctx, account)
}

// ResolveSession looks up a live session by token.
func (s *Service) ResolveSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, newError(CodeNoSession, nil)
	}
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		if IsCode(err, CodeNoSession) {
			return nil, err
		}
		return nil, internalError("reading session: %w", err)
	}
	return session, nil
}

// SignOut deletes the session.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return internalError("deleting session: %w", err)
	}
	return nil
}

// openSession generates a token and stores a session for the account.
func (s *Service) openSession(ctx context.Context, account *Account) (*Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, internalError("generating session token: %w", err)
	}

	session := &Session{
		Token:     token,
		UID:       account.UID,
		Email:     account.Email,
		CreatedAt: s.opts.Clock.Now().UTC(),
	}
	if err := s.sessions.Put(ctx, session, s.opts.SessionTTL); err != nil {
		return nil, internalError("storing session: %w", err)
	}
	return session, nil
}

// recordFailure counts a failed sign-in. Counter errors are logged only.
func (s *Service) recordFailure(ctx context.Context, email string) {
	if err := s.attempts.RecordFailure(ctx, email, s.opts.Lockout); err != nil {
		slog.Warn("failed to record sign-in failure",
			slog.String("email", email),
			slog.Any("error", err),
		)
	}
}

// normalizeAddress lowercases and trims the email and rejects anything
// that is not a bare RFC 5322 address.
func normalizeAddress(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", newError(CodeInvalidEmail, fmt.Errorf("parsing %q: %v", email, err))
	}
	return email, nil
}
