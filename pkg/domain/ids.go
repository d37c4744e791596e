// Package domain holds the shared value types that every component keys on.
// Values are parsed once at trust boundaries; direct casting bypasses validation.
package domain

import (
	"strings"

	dErrors "agegate/pkg/domain-errors"
)

const maxIDLength = 128

// CartID identifies a storefront cart. It is supplied by the browser on every
// request and is the correlation key for all verification state.
type CartID string

// AuthServerID identifies the bank authorisation server a shopper picked.
type AuthServerID string

func (c CartID) String() string       { return string(c) }
func (a AuthServerID) String() string { return string(a) }

// ParseCartID constructs a CartID from external input.
//
// Errors: returns CodeValidation when the value is empty, too long, or
// contains a byte that is not valid in a cookie value.
func ParseCartID(s string) (CartID, error) {
	v, err := parseOpaqueID(s, "cartId")
	if err != nil {
		return "", err
	}
	return CartID(v), nil
}

// ParseAuthServerID constructs an AuthServerID from external input.
func ParseAuthServerID(s string) (AuthServerID, error) {
	v, err := parseOpaqueID(s, "authorisationServerId")
	if err != nil {
		return "", err
	}
	return AuthServerID(v), nil
}

func parseOpaqueID(s, field string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if len(s) > maxIDLength {
		return "", dErrors.New(dErrors.CodeValidation, field+" is too long")
	}
	for i := 0; i < len(s); i++ {
		if !cookieSafe(s[i]) {
			return "", dErrors.New(dErrors.CodeValidation, field+" contains invalid characters")
		}
	}
	return s, nil
}

// cookieSafe reports whether b survives a round trip through a cookie value
// unchanged. Ids are echoed back to the browser as cookies.
func cookieSafe(b byte) bool {
	return b > 0x20 && b < 0x7f && b != '"' && b != ';' && b != '\\' && b != ','
}
