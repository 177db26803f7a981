package template

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultListLimit     = 50
	minMatchQueryLength  = 2
	maxNameLength        = 100
	maxDiagnosisLength   = 200
	maxDiagnosisCodeLen  = 20
	maxMedicationNameLen = 200
	maxDurationLength    = 50
)

// Medication is one line of a template's treatment, stored inside the
// medications JSONB column.
type Medication struct {
	Medication string `json:"medication"`
	Dosage     string `json:"dosage"`
	Duration   string `json:"duration"`
}

// Template maps to the treatment_templates table. A nil PractitionerID marks
// a global template shared by every practitioner.
type Template struct {
	ID             uuid.UUID    `json:"id"`
	PractitionerID *uuid.UUID   `json:"practitioner_id"`
	Name           string       `json:"name"`
	DiagnosisText  string       `json:"diagnosis_text"`
	DiagnosisCode  *string      `json:"diagnosis_code"`
	Medications    []Medication `json:"medications"`
	Instructions   *string      `json:"instructions"`
	IsFavorite     bool         `json:"is_favorite"`
	SortOrder      int          `json:"sort_order"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (t *Template) IsGlobal() bool {
	return t.PractitionerID == nil
}

// VisibleTo reports whether the practitioner may read the template.
func (t *Template) VisibleTo(practitionerID uuid.UUID) bool {
	return t.IsGlobal() || *t.PractitionerID == practitionerID
}

type Response struct {
	*Template
	IsGlobal bool `json:"is_global"`
}

func NewResponse(t *Template) *Response {
	return &Response{Template: t, IsGlobal: t.IsGlobal()}
}

type ListResponse struct {
	Items []*Response `json:"items"`
	Total int         `json:"total"`
}

type CreateRequest struct {
	Name          string       `json:"name"`
	DiagnosisText string       `json:"diagnosis_text"`
	DiagnosisCode *string      `json:"diagnosis_code"`
	Medications   []Medication `json:"medications"`
	Instructions  *string      `json:"instructions"`
	IsFavorite    bool         `json:"is_favorite"`
}

// UpdateRequest is a partial update: nil fields are left unchanged.
type UpdateRequest struct {
	Name          *string       `json:"name"`
	DiagnosisText *string       `json:"diagnosis_text"`
	DiagnosisCode *string       `json:"diagnosis_code"`
	Medications   *[]Medication `json:"medications"`
	Instructions  *string       `json:"instructions"`
	IsFavorite    *bool         `json:"is_favorite"`
}

// ListFilter scopes a listing to what one practitioner can see.
type ListFilter struct {
	PractitionerID uuid.UUID
	Search         string
	FavoritesOnly  bool
	Limit          int
	Offset         int
}
