// Package validation holds the client-facing credential rules for Unify:
// the student email domain check and the password strength rules. Every
// function here is pure, so forms can call them on each keystroke.
package validation

import (
	"strings"
	"unicode/utf16"
)

// StudentDomainMarker must appear somewhere in the domain part of an email
// for it to count as a student address. Matching anywhere in the domain
// admits country-level academic domains such as ".edu.bd" and ".edu.au".
const StudentDomainMarker = ".edu"

// MinPasswordLength is the minimum number of characters a strong password has.
const MinPasswordLength = 8

// PasswordStrengthReport records which password rules a candidate satisfies.
// Each field is an independent predicate.
type PasswordStrengthReport struct {
	Length  bool `json:"length"`
	Lower   bool `json:"lower"`
	Upper   bool `json:"upper"`
	Number  bool `json:"number"`
	Special bool `json:"special"`
}

// Strong reports whether every rule in the report is satisfied.
func (r PasswordStrengthReport) Strong() bool {
	return r.Length && r.Lower && r.Upper && r.Number && r.Special
}

// Failing returns the names of the rules that are not satisfied, in a
// stable order. Names match the JSON field names.
func (r PasswordStrengthReport) Failing() []string {
	var out []string
	for _, rule := range r.Rules() {
		if !rule.Met {
			out = append(out, rule.Name)
		}
	}
	return out
}

// Rule is one row of the requirement list shown next to a password field.
type Rule struct {
	Name  string
	Label string
	Met   bool
}

// Rules returns the report as an ordered list of labelled rules.
func (r PasswordStrengthReport) Rules() []Rule {
	return []Rule{
		{Name: "length", Label: "At least 8 characters", Met: r.Length},
		{Name: "lower", Label: "One lowercase letter", Met: r.Lower},
		{Name: "upper", Label: "One uppercase letter", Met: r.Upper},
		{Name: "number", Label: "One number", Met: r.Number},
		{Name: "special", Label: "One special character", Met: r.Special},
	}
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidStudentEmail reports whether email has exactly one "@" and a
// domain part containing ".edu". Anything else, including the empty
// string, is rejected.
func IsValidStudentEmail(email string) bool {
	parts := strings.Split(NormalizeEmail(email), "@")
	if len(parts) != 2 {
		return false
	}
	return strings.Contains(parts[1], StudentDomainMarker)
}

// CheckPasswordStrength evaluates the five password rules.
func CheckPasswordStrength(password string) PasswordStrengthReport {
	report := PasswordStrengthReport{
		Length: passwordLength(password) >= MinPasswordLength,
	}
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			report.Lower = true
		case r >= 'A' && r <= 'Z':
			report.Upper = true
		case r >= '0' && r <= '9':
			report.Number = true
		default:
			report.Special = true
		}
	}
	return report
}

// passwordLength counts UTF-16 code units, so a character outside the
// Basic Multilingual Plane (most emoji) counts as two, the same as a
// browser's String.length.
func passwordLength(password string) int {
	return len(utf16.Encode([]rune(password)))
}

// IsPasswordStrong reports whether password satisfies all five rules.
func IsPasswordStrong(password string) bool {
	return CheckPasswordStrength(password).Strong()
}
