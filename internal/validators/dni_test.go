package validators

import (
	"fmt"
	"strings"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantType  DocumentType
	}{
		{"valid dni", "12345678Z", true, DocumentDNI},
		{"zero dni", "00000000T", true, DocumentDNI},
		{"wrong letter", "12345678A", false, DocumentDNI},
		{"lowercase letter", "12345678z", true, DocumentDNI},
		{"surrounding spaces", " 12345678Z ", true, DocumentDNI},
		{"valid nie X", "X0000000T", true, DocumentNIE},
		{"nie wrong letter", "X0000000A", false, DocumentNIE},
		{"valid nie X1234567L", "X1234567L", true, DocumentNIE},
		{"valid nie Y", "Y0000000Z", true, DocumentNIE},
		{"lowercase nie", "x1234567l", true, DocumentNIE},
		{"too short", "1234567Z", false, DocumentDNI},
		{"too long", "123456789Z", false, DocumentDNI},
		{"letters in digits", "1234A678Z", false, DocumentDNI},
		{"unknown prefix", "A1234567L", false, DocumentUnknown},
		{"free text", "INVALIDO", false, DocumentUnknown},
		{"empty", "", false, DocumentUnknown},
		{"blank", "   ", false, DocumentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, kind := ValidateDocument(tt.input)
			if valid != tt.wantValid {
				t.Errorf("ValidateDocument(%q) valid = %v, want %v", tt.input, valid, tt.wantValid)
			}
			if kind != tt.wantType {
				t.Errorf("ValidateDocument(%q) type = %s, want %s", tt.input, kind, tt.wantType)
			}
		})
	}
}

func TestValidateDocument_CheckLetterProperty(t *testing.T) {
	for n := 0; n < 100000000; n += 7919 * 13 {
		digits := fmt.Sprintf("%08d", n)
		want := checkLetters[n%23]
		for i := 0; i < len(checkLetters); i++ {
			letter := checkLetters[i]
			valid, _ := ValidateDocument(digits + string(letter))
			if valid != (letter == want) {
				t.Fatalf("%s%c: valid=%v, expected letter %c", digits, letter, valid, want)
			}
		}
	}
}

func TestValidateNIE_MatchesDNIWithPrefixSubstituted(t *testing.T) {
	for prefix, digit := range niePrefixes {
		for n := 0; n < 10000000; n += 104729 {
			body := fmt.Sprintf("%07d", n)
			letter, err := CheckLetter(string(digit) + body)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			nie := string(prefix) + body + string(letter)
			if !ValidateNIE(nie) {
				t.Errorf("expected %s to be valid", nie)
			}
			if valid, kind := ValidateDocument(nie); !valid || kind != DocumentNIE {
				t.Errorf("ValidateDocument(%s) = %v, %s", nie, valid, kind)
			}
		}
	}
}

func TestValidateDocument_CaseAndWhitespaceInsensitive(t *testing.T) {
	inputs := []string{"12345678z", "12345678Z", " 12345678Z ", "\t12345678z\n"}
	for _, in := range inputs {
		valid, kind := ValidateDocument(in)
		if !valid || kind != DocumentDNI {
			t.Errorf("ValidateDocument(%q) = %v, %s; want true, DNI", in, valid, kind)
		}
	}
}

func TestValidateDocument_LengthOtherThanNineIsInvalid(t *testing.T) {
	base := "12345678Z12345678Z"
	for n := 0; n <= len(base); n++ {
		if n == 9 {
			continue
		}
		if valid, _ := ValidateDocument(base[:n]); valid {
			t.Errorf("expected length %d input %q to be invalid", n, base[:n])
		}
	}
}

func TestFormatDocument_Idempotent(t *testing.T) {
	inputs := []string{"12345678z", " x1234567l ", "ABC", "", "  mixed Case  "}
	for _, in := range inputs {
		once := FormatDocument(in)
		if FormatDocument(once) != once {
			t.Errorf("FormatDocument not idempotent for %q", in)
		}
		if once != strings.ToUpper(once) {
			t.Errorf("FormatDocument(%q) = %q, expected uppercase", in, once)
		}
		if once != strings.TrimSpace(once) {
			t.Errorf("FormatDocument(%q) = %q, expected trimmed", in, once)
		}
	}
	if got := FormatDocument(" x1234567l "); got != "X1234567L" {
		t.Errorf("expected X1234567L, got %s", got)
	}
}

func TestCheckLetter(t *testing.T) {
	letter, err := CheckLetter("12345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if letter != 'Z' {
		t.Errorf("expected Z, got %c", letter)
	}

	for _, bad := range []string{"1234567", "123456789", "1234567A", "", "abcdefgh"} {
		if _, err := CheckLetter(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestMaskDocument(t *testing.T) {
	if got := MaskDocument("12345678Z"); got != "1234****" {
		t.Errorf("expected 1234****, got %s", got)
	}
	if got := MaskDocument("12"); got != "****" {
		t.Errorf("expected ****, got %s", got)
	}
}
