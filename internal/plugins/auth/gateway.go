package auth

import (
	"context"
	"log/slog"

	"github.com/abuobaidahamim/Unify/internal/backend"
	"github.com/abuobaidahamim/Unify/internal/metrics"
	"github.com/abuobaidahamim/Unify/internal/sanitize"
)

// profilesCollection is the document collection profiles live in, keyed
// by session UID.
const profilesCollection = "users"

// User-facing messages. Login and registration have different generic
// failure messages.
const (
	msgInvalidCredentials = "Invalid email or password."
	msgRateLimited        = "Too many failed attempts. Try again later."
	msgLoginFailed        = "Login failed. Please check your credentials."
	msgEmailInUse         = "This email is already registered."
	msgInvalidEmail       = "Invalid email address."
	msgWeakPassword       = "Password is too weak. Use at least 6 characters."
	msgRegisterFailed     = "Registration failed."
	msgNoSession          = "No authenticated user found."
	msgSaveFailed         = "Failed to save profile. Please try again."
)

// Gateway is the only path from the web layer to the backend. Every
// method converts backend failures into a result value; none of them
// returns a raw backend error.
type Gateway interface {
	LoginUser(ctx context.Context, email, password string) AuthResult
	RegisterUser(ctx context.Context, email, password string) AuthResult

	// SaveProfile requires a session in ctx.
	SaveProfile(ctx context.Context, data Profile) SaveResult

	// GetCurrentUserProfile returns nil when there is no session in ctx or
	// no profile document for it.
	GetCurrentUserProfile(ctx context.Context) Profile
	UserHasProfile(ctx context.Context) bool

	// GetCurrentUser returns the session carried by ctx. No I/O.
	GetCurrentUser(ctx context.Context) *Session

	// ResolveSession turns a cookie token into a session, or nil.
	ResolveSession(ctx context.Context, token string) *Session
	Logout(ctx context.Context, token string)
}

// gateway implements Gateway on the backend's Auth and Store.
type gateway struct {
	auth  backend.Auth
	store backend.Store
}

// NewGateway creates a gateway over the given backend.
func NewGateway(auth backend.Auth, store backend.Store) Gateway {
	return &gateway{auth: auth, store: store}
}

// --- Session context ---

type sessionCtxKey struct{}

// WithSession returns a copy of ctx carrying session as the current user.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, session)
}

// sessionFrom returns the session in ctx, or nil.
func sessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return s
}

// --- Login / registration ---

// LoginUser signs in with email and password.
func (g *gateway) LoginUser(ctx context.Context, email, password string) AuthResult {
	session, err := g.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		kind, msg := mapLoginError(err)
		logFailure("login", err)
		record("login", kind)
		return AuthResult{Kind: kind, Message: msg}
	}
	record("login", KindNone)
	return AuthResult{Success: true, User: session}
}

// RegisterUser creates an account, which also signs it in.
func (g *gateway) RegisterUser(ctx context.Context, email, password string) AuthResult {
	session, err := g.auth.CreateUserWithPassword(ctx, email, password)
	if err != nil {
		kind, msg := mapRegisterError(err)
		logFailure("register", err)
		record("register", kind)
		return AuthResult{Kind: kind, Message: msg}
	}
	record("register", KindNone)
	return AuthResult{Success: true, User: session}
}

// mapLoginError maps sign-in backend codes to a kind and message.
func mapLoginError(err error) (ErrorKind, string) {
	switch backend.ErrorCode(err) {
	case backend.CodeUserNotFound, backend.CodeWrongPassword:
		return KindInvalidCredentials, msgInvalidCredentials
	case backend.CodeTooManyRequests:
		return KindRateLimited, msgRateLimited
	default:
		return KindGeneric, msgLoginFailed
	}
}

// mapRegisterError maps account-creation backend codes to a kind and message.
func mapRegisterError(err error) (ErrorKind, string) {
	switch backend.ErrorCode(err) {
	case backend.CodeEmailAlreadyInUse:
		return KindEmailInUse, msgEmailInUse
	case backend.CodeInvalidEmail:
		return KindInvalidEmail, msgInvalidEmail
	case backend.CodeWeakPassword:
		return KindWeakPassword, msgWeakPassword
	default:
		return KindGeneric, msgRegisterFailed
	}
}

// --- Profiles ---

// SaveProfile writes data merged with the session's email and a server
// creation timestamp, keyed by the session UID. The write replaces any
// previous profile document.
func (g *gateway) SaveProfile(ctx context.Context, data Profile) SaveResult {
	session := sessionFrom(ctx)
	if session == nil {
		record("save_profile", KindNoSession)
		return SaveResult{Kind: KindNoSession, Message: msgNoSession}
	}

	doc := make(backend.Document, len(data)+2)
	for k, v := range data {
		if s, ok := v.(string); ok {
			v = sanitize.Text(s)
		}
		doc[k] = v
	}
	doc["email"] = session.Email
	doc["createdAt"] = backend.ServerTimestamp

	if err := g.store.Set(ctx, profilesCollection, session.UID, doc, false); err != nil {
		slog.Error("failed to save profile",
			slog.String("uid", session.UID),
			slog.Any("error", err),
		)
		record("save_profile", KindGeneric)
		return SaveResult{Kind: KindGeneric, Message: msgSaveFailed}
	}

	record("save_profile", KindNone)
	return SaveResult{Success: true}
}

// profileLookup distinguishes the reasons a profile lookup came back
// empty. Callers outside this file only ever see nil.
type profileLookup int

const (
	profileFound profileLookup = iota
	profileNoSession
	profileNotFound
	profileUnavailable
)

func (l profileLookup) String() string {
	switch l {
	case profileFound:
		return "found"
	case profileNoSession:
		return "no_session"
	case profileNotFound:
		return "not_found"
	default:
		return "unavailable"
	}
}

// lookupProfile reads the profile document for the session in ctx.
func (g *gateway) lookupProfile(ctx context.Context) (Profile, profileLookup) {
	session := sessionFrom(ctx)
	if session == nil {
		return nil, profileNoSession
	}

	doc, err := g.store.Get(ctx, profilesCollection, session.UID)
	if err != nil {
		if backend.IsCode(err, backend.CodeNotFound) {
			return nil, profileNotFound
		}
		slog.Error("error fetching user profile",
			slog.String("uid", session.UID),
			slog.Any("error", err),
		)
		return nil, profileUnavailable
	}
	return Profile(doc), profileFound
}

// GetCurrentUserProfile returns the current session's profile or nil.
func (g *gateway) GetCurrentUserProfile(ctx context.Context) Profile {
	profile, status := g.lookupProfile(ctx)
	if status != profileFound {
		slog.Debug("no profile for current user", slog.String("reason", status.String()))
	}
	return profile
}

// UserHasProfile reports whether the current session has a profile.
func (g *gateway) UserHasProfile(ctx context.Context) bool {
	return g.GetCurrentUserProfile(ctx) != nil
}

// --- Sessions ---

// GetCurrentUser returns the session carried by ctx.
func (g *gateway) GetCurrentUser(ctx context.Context) *Session {
	return sessionFrom(ctx)
}

// ResolveSession looks the token up in the backend. Expired, unknown and
// unreadable sessions all resolve to nil.
func (g *gateway) ResolveSession(ctx context.Context, token string) *Session {
	if token == "" {
		return nil
	}
	session, err := g.auth.ResolveSession(ctx, token)
	if err != nil {
		if !backend.IsCode(err, backend.CodeNoSession) {
			slog.Error("failed to resolve session", slog.Any("error", err))
		}
		return nil
	}
	return session
}

// Logout ends the session. Failures are logged; the caller clears the
// cookie regardless.
func (g *gateway) Logout(ctx context.Context, token string) {
	if err := g.auth.SignOut(ctx, token); err != nil {
		slog.Warn("failed to sign out", slog.Any("error", err))
	}
}

// --- Helpers ---

// logFailure logs a backend failure with its code. Expected rejections go
// to info, infrastructure trouble to error.
func logFailure(op string, err error) {
	code := backend.ErrorCode(err)
	level := slog.LevelInfo
	if code == backend.CodeInternal || code == backend.CodeUnavailable {
		level = slog.LevelError
	}
	slog.Log(context.Background(), level, "gateway operation failed",
		slog.String("op", op),
		slog.String("code", string(code)),
		slog.Any("error", err),
	)
}

// record counts a gateway outcome.
func record(op string, kind ErrorKind) {
	outcome := string(kind)
	if kind == KindNone {
		outcome = "success"
	}
	metrics.GatewayRequests.WithLabelValues(op, outcome).Inc()
}
