// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a number carries no country prefix.
const DefaultRegion = "MX"

// NormalizeE164 formats a phone number to E.164 using region for numbers
// without a country prefix. If parsing fails, it returns the trimmed input.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// Plausible reports whether input parses as a number of possible length.
// It is looser than validity so that numbers from new ranges pass.
func Plausible(input, region string) bool {
	if region == "" {
		region = DefaultRegion
	}
	number, err := phonenumbers.Parse(strings.TrimSpace(input), region)
	if err != nil {
		return false
	}
	return phonenumbers.IsPossibleNumber(number)
}
