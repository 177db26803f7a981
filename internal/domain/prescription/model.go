package prescription

import "time"

// Preview is the structured content of a prescription, shown to the
// practitioner before printing and used to render the PDF.
type Preview struct {
	Patient      PatientInfo      `json:"patient"`
	Practitioner PractitionerInfo `json:"practitioner"`
	Date         string           `json:"date"`
	Diagnosis    string           `json:"diagnosis"`
	Medications  []Medication     `json:"medications"`
	Instructions string           `json:"instructions"`
	Warnings     []string         `json:"warnings"`

	issuedOn time.Time
}

type PatientInfo struct {
	FullName        string `json:"full_name"`
	IdentifierValue string `json:"identifier_value"`
	Age             int    `json:"age"`
	Gender          string `json:"gender"`
}

type PractitionerInfo struct {
	FullName          string  `json:"full_name"`
	IdentifierValue   string  `json:"identifier_value"`
	QualificationCode *string `json:"qualification_code"`
}

// Medication is a printable prescription row.
type Medication struct {
	Name     string `json:"name"`
	Dosage   string `json:"dosage"`
	Duration string `json:"duration"`
}

func (m Medication) empty() bool {
	return m.Name == "" && m.Dosage == "" && m.Duration == ""
}
