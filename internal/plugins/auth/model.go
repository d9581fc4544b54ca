// Package auth is the credential and session gateway for Unify plus the
// login and signup form controllers that drive it. Handlers validate input
// locally with the validation package, then call the Gateway, which wraps
// the backend and turns every backend failure into a result value.
package auth

import (
	"context"

	"github.com/abuobaidahamim/Unify/internal/backend"
	"github.com/abuobaidahamim/Unify/internal/validation"
)

// Session is the opaque handle for an authenticated student.
type Session = backend.Session

// Profile is the student's profile document, keyed by session identity.
type Profile map[string]any

// Account activity actions.
const (
	ActivitySignup       = "account.signup"
	ActivityLogin        = "account.login"
	ActivityLogout       = "account.logout"
	ActivityProfileSaved = "profile.saved"
)

// ActivityRecorder receives account events. Recording never fails the
// request that triggered it.
type ActivityRecorder interface {
	Record(ctx context.Context, userID, action, ip string)
}

// --- Request DTOs (bound from HTTP requests) ---

// Credential holds the data submitted by the login and signup forms. It
// lives for one submission only.
type Credential struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// --- Error taxonomy ---

// Field names the form field an error message is shown next to.
type Field string

const (
	FieldNone     Field = ""
	FieldEmail    Field = "email"
	FieldPassword Field = "password"
	FieldForm     Field = "form"
)

// ErrorKind classifies a gateway failure. Each kind carries the field its
// message belongs to, so controllers never inspect message text.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindRateLimited        ErrorKind = "rate_limited"
	KindEmailInUse         ErrorKind = "email_in_use"
	KindInvalidEmail       ErrorKind = "invalid_email"
	KindWeakPassword       ErrorKind = "weak_password"
	KindNoSession          ErrorKind = "no_session"
	KindGeneric            ErrorKind = "generic"
)

// Field returns the form field the kind's message is routed to.
func (k ErrorKind) Field() Field {
	switch k {
	case KindNone:
		return FieldNone
	case KindInvalidCredentials, KindEmailInUse, KindInvalidEmail:
		return FieldEmail
	case KindNoSession:
		return FieldForm
	default:
		return FieldPassword
	}
}

// AuthResult is the outcome of a login or registration. It is consumed
// once by the caller and never stored.
type AuthResult struct {
	Success bool
	Kind    ErrorKind
	Message string

	// User is set only on success.
	User *Session
}

// Field returns the form field the failure message belongs to.
func (r AuthResult) Field() Field {
	return r.Kind.Field()
}

// SaveResult is the outcome of SaveProfile.
type SaveResult struct {
	Success bool
	Kind    ErrorKind
	Message string
}

// --- Form state ---

// FormState is everything a login or signup page needs to re-render
// itself in the editing state.
type FormState struct {
	CSRFToken     string
	Email         string
	EmailError    string
	PasswordError string
	FormError     string

	// Report drives the password requirement indicators on the signup form.
	Report           validation.PasswordStrengthReport
	ShowRequirements bool
}

// SetError places message on the field the kind routes to.
func (s *FormState) SetError(kind ErrorKind, message string) {
	switch kind.Field() {
	case FieldEmail:
		s.EmailError = message
	case FieldPassword:
		s.PasswordError = message
	case FieldForm:
		s.FormError = message
	}
}

// EmailValidationResponse is the JSON body of the email validation API.
type EmailValidationResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// PasswordValidationResponse is the JSON body of the password validation API.
type PasswordValidationResponse struct {
	Strong bool                              `json:"strong"`
	Checks validation.PasswordStrengthReport `json:"checks"`
}
