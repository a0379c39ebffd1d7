package utils

import (
	"regexp"
	"strings"
)

var nonDigit = regexp.MustCompile(`\D`)

// NormalizePhoneNumber strips formatting and prefixes the Ethiopian country
// code when missing, so OTP delivery and lookups always see one shape.
func NormalizePhoneNumber(phoneNumber string) string {
	digits := nonDigit.ReplaceAllString(phoneNumber, "")
	if len(digits) > 0 && !strings.HasPrefix(digits, "251") {
		digits = strings.TrimLeft(digits, "0")
		digits = "251" + digits
	}
	return digits
}

// ValidatePhoneNumber accepts local 9-digit mobile numbers starting with 9 or 7.
func ValidatePhoneNumber(phoneNumber string) bool {
	cleaned := nonDigit.ReplaceAllString(phoneNumber, "")
	cleaned = strings.TrimPrefix(cleaned, "251")
	cleaned = strings.TrimLeft(cleaned, "0")
	if len(cleaned) != 9 {
		return false
	}
	return cleaned[0] == '9' || cleaned[0] == '7'
}
