package encounter

import "strings"

// soapSections is the fixed order of the generated note.
var soapSections = []string{"Subjetivo", "Objetivo", "Análisis", "Plan", "Recomendaciones"}

// CleanText trims s and collapses blank values to nil.
func CleanText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// SOAP holds the structured sections of a clinical note.
type SOAP struct {
	Subjective      *string
	Objective       *string
	Assessment      *string
	Plan            *string
	Recommendations *string
}

// BuildLegacyNote returns the free-text note kept for older clients. An
// explicit note wins; otherwise the non-empty SOAP sections are rendered as
// "Section: text" lines. It returns nil when there is nothing to write.
func BuildLegacyNote(note *string, soap SOAP) *string {
	if n := CleanText(note); n != nil {
		return n
	}

	values := []*string{soap.Subjective, soap.Objective, soap.Assessment, soap.Plan, soap.Recommendations}
	var lines []string
	for i, v := range values {
		if c := CleanText(v); c != nil {
			lines = append(lines, soapSections[i]+": "+*c)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	out := strings.Join(lines, "\n")
	return &out
}
