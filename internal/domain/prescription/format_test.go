package prescription

import (
	"sync"
	"testing"
	"time"

	"github.com/consultamed/consultamed/internal/domain/encounter"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestGenderLabel(t *testing.T) {
	tests := []struct {
		in   *string
		want string
	}{
		{strPtr("male"), "Masculino"},
		{strPtr("female"), "Femenino"},
		{strPtr("other"), "Otro"},
		{strPtr("unknown"), "No especificado"},
		{strPtr(" Female "), "Femenino"},
		{nil, "No especificado"},
	}
	for _, tt := range tests {
		if got := GenderLabel(tt.in); got != tt.want {
			t.Errorf("GenderLabel(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInstructions_Priority(t *testing.T) {
	enc := &encounter.Encounter{
		RecommendationsText: strPtr("  Reposo relativo  "),
		PlanText:            strPtr("Control en una semana"),
		Note:                strPtr("Nota"),
	}
	if got := Instructions(enc); got != "Reposo relativo" {
		t.Errorf("expected recommendations, got %q", got)
	}

	enc.RecommendationsText = strPtr("   ")
	if got := Instructions(enc); got != "Control en una semana" {
		t.Errorf("expected plan, got %q", got)
	}

	enc.PlanText = nil
	if got := Instructions(enc); got != "Nota" {
		t.Errorf("expected note, got %q", got)
	}

	enc.Note = strPtr("")
	if got := Instructions(enc); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestDiagnosis(t *testing.T) {
	enc := &encounter.Encounter{Conditions: []*encounter.Condition{
		{CodeText: "Faringitis aguda"}, {CodeText: " "}, {CodeText: "Fiebre"},
	}}
	if got := Diagnosis(enc); got != "Faringitis aguda, Fiebre" {
		t.Errorf("unexpected diagnosis: %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		value *int
		unit  *string
		want  string
	}{
		{intPtr(7), strPtr("d"), "7 días"},
		{intPtr(2), strPtr("wk"), "2 semanas"},
		{intPtr(3), strPtr("mo"), "3 meses"},
		{intPtr(12), strPtr("h"), "12 horas"},
		{intPtr(5), nil, "5 días"},
		{intPtr(4), strPtr("ciclos"), "4 ciclos"},
		{nil, strPtr("d"), ""},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.value, tt.unit); got != tt.want {
			t.Errorf("FormatDuration = %q, want %q", got, tt.want)
		}
	}
}

func TestNormalizeMedications_EncounterRows(t *testing.T) {
	rows := NormalizeMedications([]*encounter.MedicationRequest{{
		MedicationText: "Ibuprofeno 600 mg",
		DosageText:     "1 comprimido cada 12 horas",
		DurationValue:  intPtr(7),
		DurationUnit:   strPtr("d"),
	}})
	want := Medication{Name: "Ibuprofeno 600 mg", Dosage: "1 comprimido cada 12 horas", Duration: "7 días"}
	if len(rows) != 1 || rows[0] != want {
		t.Errorf("expected %+v, got %+v", want, rows)
	}
}

func TestCleanRows(t *testing.T) {
	ready := Medication{Name: "Paracetamol 1 g", Dosage: "1 comprimido cada 8 horas", Duration: "5 días"}

	rows := CleanRows([]Medication{ready})
	if len(rows) != 1 || rows[0] != ready {
		t.Errorf("expected normalized row kept unchanged, got %+v", rows)
	}

	rows = CleanRows([]Medication{{Name: " ", Dosage: "", Duration: ""}, ready})
	if len(rows) != 1 || rows[0] != ready {
		t.Errorf("expected empty row dropped, got %+v", rows)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"José Pérez Gómez":    "jose-perez-gomez",
		"  María  Ñúñez ":     "maria-nunez",
		"Ana-Belén O'Connor":  "ana-belen-o-connor",
		"¿?":                  "paciente",
		"Zoë Lefèvre 2":       "zoe-lefevre-2",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlug_Concurrent(t *testing.T) {
	names := map[string]string{
		"José Pérez Gómez":              "jose-perez-gomez",
		"María Ñúñez":                   "maria-nunez",
		"Íñigo Álvarez de Toledo Úbeda": "inigo-alvarez-de-toledo-ubeda",
	}

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				for in, want := range names {
					if got := Slug(in); got != want {
						errs <- got
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for got := range errs {
		t.Errorf("unexpected slug under concurrent use: %q", got)
	}
}

func TestFilename(t *testing.T) {
	got := Filename("José Pérez Gómez", time.Date(2026, 2, 8, 9, 0, 0, 0, time.UTC))
	if got != "receta_20260208_jose-perez-gomez.pdf" {
		t.Errorf("unexpected filename: %s", got)
	}
}
