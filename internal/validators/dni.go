// Package validators holds the pure field checks shared by the patient,
// encounter and import flows: Spanish identity documents and clinical codes.
package validators

import (
	"fmt"
	"strconv"
	"strings"
)

// DocumentType classifies a Spanish identity document.
type DocumentType string

const (
	DocumentDNI     DocumentType = "DNI"
	DocumentNIE     DocumentType = "NIE"
	DocumentUnknown DocumentType = "UNKNOWN"
)

// checkLetters is indexed by number mod 23.
const checkLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

var niePrefixes = map[byte]byte{'X': '0', 'Y': '1', 'Z': '2'}

// FormatDocument returns the canonical stored form of a document number.
func FormatDocument(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// ValidateDocument reports whether value is a valid DNI or NIE and which of
// the two it looks like. Anything that is neither is DocumentUnknown.
func ValidateDocument(value string) (bool, DocumentType) {
	v := FormatDocument(value)
	if v == "" {
		return false, DocumentUnknown
	}

	switch {
	case isDigit(v[0]):
		return ValidateDNI(v), DocumentDNI
	case niePrefixes[v[0]] != 0:
		return ValidateNIE(v), DocumentNIE
	default:
		return false, DocumentUnknown
	}
}

// ValidateDNI checks an eight digit number followed by its check letter.
func ValidateDNI(value string) bool {
	v := FormatDocument(value)
	if len(v) != 9 {
		return false
	}
	return letterMatches(v[:8], v[8])
}

// ValidateNIE checks an X/Y/Z prefixed foreigner number. The prefix stands
// in for the leading digit of the check computation.
func ValidateNIE(value string) bool {
	v := FormatDocument(value)
	if len(v) != 9 {
		return false
	}
	digit, ok := niePrefixes[v[0]]
	if !ok {
		return false
	}
	return letterMatches(string(digit)+v[1:8], v[8])
}

// CheckLetter returns the check letter for an eight digit number.
func CheckLetter(digits string) (byte, error) {
	if len(digits) != 8 || !allDigits(digits) {
		return 0, fmt.Errorf("exactly 8 digits are required, got %q", digits)
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("parse digits: %w", err)
	}
	return checkLetters[n%23], nil
}

// MaskDocument hides everything but the first four characters so document
// numbers can appear in logs and import reports.
func MaskDocument(value string) string {
	if len(value) < 4 {
		return "****"
	}
	return value[:4] + "****"
}

func letterMatches(digits string, letter byte) bool {
	expected, err := CheckLetter(digits)
	if err != nil {
		return false
	}
	return expected == letter
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
