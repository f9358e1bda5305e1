package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidEIN indicates the supplied identifier is not a well-formed
	// employer identification number.
	ErrInvalidEIN = errors.New("invalid EIN")

	// ErrInvalidDepth indicates the requested traversal depth is negative.
	ErrInvalidDepth = errors.New("invalid depth")
)

var einPattern = regexp.MustCompile(`^\d{9}$`)

// NormalizeEIN canonicalizes an EIN to its bare nine-digit form. It accepts
// the hyphenated filing format ("34-0714585") as well as plain digits, and
// rejects anything else before an upstream call is ever made.
func NormalizeEIN(ein string) (string, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(ein), "-", "")
	if !einPattern.MatchString(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEIN, ein)
	}
	return cleaned, nil
}

// FormatEIN renders a canonical nine-digit EIN in the hyphenated form used on
// filings. Inputs that are not nine digits are returned unchanged.
func FormatEIN(ein string) string {
	if len(ein) != 9 {
		return ein
	}
	return ein[:2] + "-" + ein[2:]
}
