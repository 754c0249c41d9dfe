package utils

import (
	"errors"
	"regexp"
	"strings"
)

var (
	nonDigits  = regexp.MustCompile(`\D`)
	msisdnKE   = regexp.MustCompile(`^254\d{9}$`)
	whitespace = regexp.MustCompile(`\s+`)
)

var ErrInvalidPhone = errors.New("invalid phone number")

// FormatMpesaPhone turns a Kenyan phone number into the 2547XXXXXXXX form the
// Daraja API expects: 07.. -> 2547.., +254.. -> 254.., anything else is prefixed with 254.
func FormatMpesaPhone(phoneNumber string) (string, error) {
	formatted := whitespace.ReplaceAllString(phoneNumber, "")
	switch {
	case strings.HasPrefix(formatted, "0"):
		formatted = "254" + formatted[1:]
	case strings.HasPrefix(formatted, "+254"):
		formatted = formatted[1:]
	case !strings.HasPrefix(formatted, "254"):
		formatted = "254" + formatted
	}

	if !msisdnKE.MatchString(formatted) {
		return "", ErrInvalidPhone
	}
	return formatted, nil
}

// NormalizePhoneNumber normalizes a phone number for database storage. Numbers
// that are not Kenyan mobile numbers are stored as bare digits.
func NormalizePhoneNumber(phoneNumber string) string {
	if formatted, err := FormatMpesaPhone(phoneNumber); err == nil {
		return formatted
	}
	return nonDigits.ReplaceAllString(phoneNumber, "")
}

// DisplayPhoneNumber formats phone number for display as +254 7XX XXX XXX.
func DisplayPhoneNumber(phoneNumber string) string {
	formatted, err := FormatMpesaPhone(phoneNumber)
	if err != nil {
		return phoneNumber
	}
	return "+" + formatted[:3] + " " + formatted[3:6] + " " + formatted[6:9] + " " + formatted[9:]
}
