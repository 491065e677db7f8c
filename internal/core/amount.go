package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a user-entered cost string into a float64. Commas are
// accepted as decimal separators. The empty string and non-numeric input are
// rejected; the sign is preserved so form validation can distinguish "not a
// number" from "not positive".
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// FormValidation captures the per-field validity of an add/edit form.
type FormValidation struct {
	TextValid   bool
	NumberValid bool
}

// Valid reports whether the submit action is enabled.
func (v FormValidation) Valid() bool { return v.TextValid && v.NumberValid }

// ValidateForm applies the form rules shared by both entity forms: the text
// field is valid iff its trimmed value is non-empty, the numeric field is
// valid iff it parses to a number strictly greater than zero.
func ValidateForm(text, number string) FormValidation {
	v := FormValidation{
		TextValid: strings.TrimSpace(text) != "",
	}
	if n, err := ParseAmount(number); err == nil && n > 0 {
		v.NumberValid = true
	}
	return v
}
