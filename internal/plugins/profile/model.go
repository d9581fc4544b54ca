// Package profile serves the profile setup form and the dashboard. A
// student lands here after signing up, or after logging in without a
// profile document. Profiles are read and written only through the auth
// Gateway.
package profile

import (
	"strconv"
	"strings"

	"github.com/abuobaidahamim/Unify/internal/plugins/auth"
)

// Field length limits.
const (
	maxNameLength  = 120
	maxShortLength = 64
	minYear        = 1
	maxYear        = 8
)

// SetupForm is the data submitted by the profile setup form.
type SetupForm struct {
	FullName   string `form:"full_name"`
	StudentID  string `form:"student_id"`
	University string `form:"university"`
	Department string `form:"department"`
	Year       string `form:"year"`
}

// FormErrors maps a form field name to its error message.
type FormErrors map[string]string

// normalize trims every field.
func (f *SetupForm) normalize() {
	f.FullName = strings.TrimSpace(f.FullName)
	f.StudentID = strings.TrimSpace(f.StudentID)
	f.University = strings.TrimSpace(f.University)
	f.Department = strings.TrimSpace(f.Department)
	f.Year = strings.TrimSpace(f.Year)
}

// Validate checks required fields and limits. An empty map means valid.
func (f *SetupForm) Validate() FormErrors {
	f.normalize()
	errs := FormErrors{}

	if f.FullName == "" {
		errs["full_name"] = "Full name is required."
	} else if len([]rune(f.FullName)) > maxNameLength {
		errs["full_name"] = "Full name is too long."
	}
	if f.University == "" {
		errs["university"] = "University is required."
	}
	for name, v := range map[string]string{
		"student_id": f.StudentID,
		"university": f.University,
		"department": f.Department,
	} {
		if len([]rune(v)) > maxShortLength && errs[name] == "" {
			errs[name] = "Too long."
		}
	}
	if f.Year != "" {
		if y, err := strconv.Atoi(f.Year); err != nil || y < minYear || y > maxYear {
			errs["year"] = "Year must be a number from 1 to 8."
		}
	}
	return errs
}

// Profile converts a validated form into the document saved for the
// student. Empty optional fields are left out; year is stored as a number.
func (f *SetupForm) Profile() auth.Profile {
	p := auth.Profile{
		"full_name":  f.FullName,
		"university": f.University,
	}
	if f.StudentID != "" {
		p["student_id"] = f.StudentID
	}
	if f.Department != "" {
		p["department"] = f.Department
	}
	if y, err := strconv.Atoi(f.Year); err == nil {
		p["year"] = y
	}
	return p
}

// formFromProfile pre-fills the form from a stored profile.
func formFromProfile(p auth.Profile) SetupForm {
	return SetupForm{
		FullName:   stringField(p, "full_name"),
		StudentID:  stringField(p, "student_id"),
		University: stringField(p, "university"),
		Department: stringField(p, "department"),
		Year:       stringField(p, "year"),
	}
}

// stringField renders a profile value for display. Numbers read back from
// the store as float64.
func stringField(p auth.Profile, key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// SetupState is what the setup page renders.
type SetupState struct {
	CSRFToken string
	Form      SetupForm
	Errors    FormErrors
	FormError string
}
