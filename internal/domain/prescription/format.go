package prescription

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/consultamed/consultamed/internal/domain/encounter"
)

const (
	displayDateLayout   = "02/01/2006"
	fileDateLayout      = "20060102"
	defaultDurationUnit = "d"
)

var genderLabels = map[string]string{
	"male":   "Masculino",
	"female": "Femenino",
	"other":  "Otro",
}

var durationUnits = map[string]string{
	"d":  "días",
	"wk": "semanas",
	"mo": "meses",
	"h":  "horas",
}

// GenderLabel returns the Spanish label printed for a stored gender code.
func GenderLabel(gender *string) string {
	if gender != nil {
		if label, ok := genderLabels[strings.ToLower(strings.TrimSpace(*gender))]; ok {
			return label
		}
	}
	return "No especificado"
}

// Instructions picks the patient-facing text: recommendations, then plan,
// then the free-text note. Blank values are skipped.
func Instructions(enc *encounter.Encounter) string {
	for _, candidate := range []*string{enc.RecommendationsText, enc.PlanText, enc.Note} {
		if candidate == nil {
			continue
		}
		if v := strings.TrimSpace(*candidate); v != "" {
			return v
		}
	}
	return ""
}

// Diagnosis joins the encounter's condition texts.
func Diagnosis(enc *encounter.Encounter) string {
	texts := make([]string, 0, len(enc.Conditions))
	for _, c := range enc.Conditions {
		if t := strings.TrimSpace(c.CodeText); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, ", ")
}

// FormatDuration renders a duration such as "7 días". A missing value gives
// an empty string; unknown units are printed as stored.
func FormatDuration(value *int, unit *string) string {
	if value == nil || *value == 0 {
		return ""
	}
	u := defaultDurationUnit
	if unit != nil && strings.TrimSpace(*unit) != "" {
		u = strings.TrimSpace(*unit)
	}
	if text, ok := durationUnits[u]; ok {
		u = text
	}
	return fmt.Sprintf("%d %s", *value, u)
}

// NormalizeMedications maps encounter prescriptions to printable rows and
// drops rows with nothing to print.
func NormalizeMedications(meds []*encounter.MedicationRequest) []Medication {
	rows := make([]Medication, 0, len(meds))
	for _, m := range meds {
		rows = append(rows, Medication{
			Name:     m.MedicationText,
			Dosage:   m.DosageText,
			Duration: FormatDuration(m.DurationValue, m.DurationUnit),
		})
	}
	return CleanRows(rows)
}

// CleanRows trims printable rows and drops the empty ones.
func CleanRows(rows []Medication) []Medication {
	out := make([]Medication, 0, len(rows))
	for _, r := range rows {
		r.Name = strings.TrimSpace(r.Name)
		r.Dosage = strings.TrimSpace(r.Dosage)
		r.Duration = strings.TrimSpace(r.Duration)
		if r.empty() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// foldAccents returns a fresh transformer on each call; a transform.Chain
// keeps internal buffers and must not be shared between goroutines.
func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Slug folds accents and joins the lower-case words of name with hyphens.
func Slug(name string) string {
	folded, _, err := transform.String(foldAccents(), name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	if b.Len() == 0 {
		return "paciente"
	}
	return b.String()
}

// Filename is the download name of a prescription PDF, e.g.
// receta_20260208_jose-perez-gomez.pdf.
func Filename(patientName string, issuedOn time.Time) string {
	return fmt.Sprintf("receta_%s_%s.pdf", issuedOn.Format(fileDateLayout), Slug(patientName))
}
