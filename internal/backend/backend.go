// Package backend is the authentication and document-store service that
// owns every piece of durable state in Unify: accounts, sessions and
// profile documents. The gateway in plugins/auth talks to it only through
// the Auth and Store interfaces, so the MariaDB/Redis implementation and
// the in-memory one are interchangeable.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Code is a machine-readable backend failure code. Auth codes use the
// "auth/" prefix so callers can map them to user-facing messages.
type Code string

const (
	CodeUserNotFound      Code = "auth/user-not-found"
	CodeWrongPassword     Code = "auth/wrong-password"
	CodeTooManyRequests   Code = "auth/too-many-requests"
	CodeEmailAlreadyInUse Code = "auth/email-already-in-use"
	CodeInvalidEmail      Code = "auth/invalid-email"
	CodeWeakPassword      Code = "auth/weak-password"
	CodeNoSession         Code = "auth/no-session"
	CodeNotFound          Code = "store/not-found"
	CodeUnavailable       Code = "unavailable"
	CodeInternal          Code = "internal"
)

// Error is the error type returned by every backend operation.
type Error struct {
	Code Code

	// Err is the underlying cause, if any. Never shown to users.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds an *Error with the given code and cause.
func newError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// internalError wraps an infrastructure failure with a short description.
func internalError(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Err: fmt.Errorf(format, args...)}
}

// ErrorCode extracts the Code from err. Errors that are not *Error report
// CodeInternal; a nil error reports the empty code.
func ErrorCode(err error) Code {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && ErrorCode(err) == code
}

// Session is an authenticated identity. The Token is the opaque handle
// stored in the browser cookie; it is never serialized with the session.
type Session struct {
	Token     string    `json:"-"`
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is a stored user account.
type Account struct {
	UID          string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Document is a schemaless key-value record in the document store.
type Document map[string]any

// FieldValue is a placeholder written into a Document that the store
// replaces with a value it computes itself.
type FieldValue int

// ServerTimestamp is replaced by the store's clock when the document is
// written.
const ServerTimestamp FieldValue = 1

// Auth is the account and session half of the backend.
type Auth interface {
	// SignInWithPassword verifies the credentials and opens a session.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// CreateUserWithPassword creates an account and opens a session for it.
	CreateUserWithPassword(ctx context.Context, email, password string) (*Session, error)

	// ResolveSession returns the session for a token, or CodeNoSession.
	ResolveSession(ctx context.Context, token string) (*Session, error)

	// SignOut ends the session. Unknown tokens are not an error.
	SignOut(ctx context.Context, token string) error
}

// Store is the keyed document half of the backend.
type Store interface {
	// Get returns the document, or CodeNotFound if none exists.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Set writes the document. With merge, existing fields not present in
	// doc are kept; without it the document is replaced.
	Set(ctx context.Context, collection, id string, doc Document, merge bool) error
}

// resolveFieldValues returns a copy of doc with every FieldValue replaced.
func resolveFieldValues(doc Document, now time.Time) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if fv, ok := v.(FieldValue); ok && fv == ServerTimestamp {
			out[k] = now.UTC()
			continue
		}
		out[k] = v
	}
	return out
}

// mergeDocuments overlays src onto dst and returns dst.
func mergeDocuments(dst, src Document) Document {
	if dst == nil {
		dst = make(Document, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
