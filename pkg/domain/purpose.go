package domain

import (
	"strings"
	"unicode/utf8"

	dErrors "agegate/pkg/domain-errors"
)

// Purpose is the human readable reason shown to the shopper by their bank when
// it asks for consent to share the age claim.
// Invariant: between 3 and 300 characters after trimming.
type Purpose string

// DefaultPurpose is used when the deployment does not configure one.
const DefaultPurpose Purpose = "verifying you are over 18 to purchase age restricted items"

// ParsePurpose constructs a Purpose from configuration or request input.
//
// Errors: returns CodeValidation when the value is outside the length bounds.
func ParsePurpose(s string) (Purpose, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < 3 || n > 300 {
		return "", dErrors.New(dErrors.CodeValidation, "purpose must be between 3 and 300 characters")
	}
	return Purpose(s), nil
}

func (p Purpose) String() string { return string(p) }
