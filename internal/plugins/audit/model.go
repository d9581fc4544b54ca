// Package audit keeps the account activity log: sign-ups, logins, logouts
// and profile saves, with the client IP. Students see their recent
// activity on the dashboard. Recording is best-effort and never fails the
// request that triggered it.
package audit

import (
	"time"

	"github.com/abuobaidahamim/Unify/internal/plugins/auth"
)

// Entry is a single recorded account action.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	IP        string    `json:"ip,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// actionLabels are the display names for known actions.
var actionLabels = map[string]string{
	auth.ActivitySignup:       "Account created",
	auth.ActivityLogin:        "Logged in",
	auth.ActivityLogout:       "Logged out",
	auth.ActivityProfileSaved: "Profile updated",
}

// Label returns a human-readable description of the entry's action.
func (e Entry) Label() string {
	if l, ok := actionLabels[e.Action]; ok {
		return l
	}
	return e.Action
}
