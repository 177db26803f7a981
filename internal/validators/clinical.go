package validators

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxAgeYears         = 150
	minDosageTextLength = 3
	maxDosageTextLength = 500
)

var (
	validGenders       = []string{"male", "female", "other", "unknown"}
	validCriticalities = []string{"low", "high", "unable-to-assess"}
	validCategories    = []string{"food", "medication", "environment", "biologic"}
	validAllergyTypes  = []string{"allergy", "intolerance"}
	penicillinFamily   = []string{"penicilina", "amoxicilina", "ampicilina"}
)

// Today returns the current UTC calendar date at midnight.
func Today() time.Time {
	return DateOf(time.Now())
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AgeOn returns the age in whole years on the given day. The year is not
// counted until the birthday has been reached.
func AgeOn(birth, today time.Time) int {
	by, bm, bd := birth.Date()
	ty, tm, td := today.Date()
	age := ty - by
	if tm < bm || (tm == bm && td < bd) {
		age--
	}
	return age
}

// ValidateBirthDate rejects birth dates in the future or implying an age
// over 150 years.
func ValidateBirthDate(birth, today time.Time) (bool, string) {
	birth, today = DateOf(birth), DateOf(today)
	if birth.After(today) {
		return false, "La fecha de nacimiento no puede ser en el futuro"
	}
	age := AgeOn(birth, today)
	if age > maxAgeYears {
		return false, fmt.Sprintf("La fecha de nacimiento indica una edad mayor a %d años", maxAgeYears)
	}
	if age < 0 {
		return false, "Fecha de nacimiento inválida"
	}
	return true, ""
}

// ValidateGender accepts an absent value or one of the administrative
// gender codes, case-insensitively.
func ValidateGender(gender *string) (bool, string) {
	return validateMember(gender, validGenders, "Género inválido")
}

// ValidateCriticality checks an allergy criticality code.
func ValidateCriticality(criticality *string) (bool, string) {
	return validateMember(criticality, validCriticalities, "Criticidad inválida")
}

// ValidateAllergyCategory checks an allergy category code.
func ValidateAllergyCategory(category *string) (bool, string) {
	return validateMember(category, validCategories, "Categoría inválida")
}

// ValidateAllergyType checks the allergy/intolerance distinction.
func ValidateAllergyType(kind *string) (bool, string) {
	return validateMember(kind, validAllergyTypes, "Tipo inválido")
}

func validateMember(value *string, allowed []string, label string) (bool, string) {
	if value == nil {
		return true, ""
	}
	v := strings.ToLower(*value)
	for _, a := range allowed {
		if v == a {
			return true, ""
		}
	}
	return false, fmt.Sprintf("%s. Valores permitidos: %s", label, strings.Join(allowed, ", "))
}

// ValidateDosageFormat is a sanity check on free-text dosage instructions.
// It does not judge clinical correctness.
func ValidateDosageFormat(text string) (bool, string) {
	if len([]rune(strings.TrimSpace(text))) < minDosageTextLength {
		return false, "La pauta de dosificación es demasiado corta"
	}
	if len([]rune(text)) > maxDosageTextLength {
		return false, "La pauta de dosificación es demasiado larga"
	}
	return true, ""
}

// CheckMedicationAllergyInteraction flags a penicillin-family medication
// prescribed to a patient with a recorded penicillin allergy. The boolean is
// true when a warning applies.
func CheckMedicationAllergyInteraction(medication string, allergies []string) (bool, string) {
	med := strings.ToLower(medication)
	for _, allergy := range allergies {
		if !strings.Contains(strings.ToLower(allergy), "penicilina") {
			continue
		}
		for _, p := range penicillinFamily {
			if strings.Contains(med, p) {
				return true, fmt.Sprintf("ADVERTENCIA: El paciente es alérgico a %s. "+
					"El medicamento %s pertenece al grupo de penicilinas.", allergy, medication)
			}
		}
	}
	return false, ""
}

// NormalizeCode lowercases an optional enumerated value so it is stored in
// canonical form.
func NormalizeCode(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*value))
	return &v
}
