package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/consultamed/consultamed/internal/validators"
	"github.com/consultamed/consultamed/pkg/civil"
	"github.com/consultamed/consultamed/pkg/optional"
)

const (
	// IdentifierSystem is the OID of the Spanish national identity document.
	IdentifierSystem = "urn:oid:1.3.6.1.4.1.19126.3"

	AllergyStatusActive = "active"
	defaultAllergyType  = "allergy"
)

// Patient maps to the patients table.
type Patient struct {
	ID               uuid.UUID  `json:"id"`
	IdentifierValue  string     `json:"identifier_value"`
	IdentifierSystem string     `json:"identifier_system"`
	IdentifierType   string     `json:"identifier_type"`
	NameGiven        string     `json:"name_given"`
	NameFamily       string     `json:"name_family"`
	BirthDate        civil.Date `json:"birth_date"`
	Gender           *string    `json:"gender"`
	TelecomPhone     *string    `json:"telecom_phone"`
	TelecomEmail     *string    `json:"telecom_email"`
	Active           bool       `json:"active"`
	Allergies        []*Allergy `json:"allergies"`
	CreatedAt        time.Time  `json:"meta_created_at"`
	UpdatedAt        time.Time  `json:"meta_updated_at"`
}

func (p *Patient) FullName() string {
	return p.NameGiven + " " + p.NameFamily
}

// AgeOn returns the patient's age in whole years on the given day.
func (p *Patient) AgeOn(today time.Time) int {
	return validators.AgeOn(p.BirthDate.Time(), today)
}

// HasAllergies reports whether any allergy is active.
func (p *Patient) HasAllergies() bool {
	for _, a := range p.Allergies {
		if a.ClinicalStatus == AllergyStatusActive {
			return true
		}
	}
	return false
}

// ActiveAllergyNames lists the labels of active allergies.
func (p *Patient) ActiveAllergyNames() []string {
	var names []string
	for _, a := range p.Allergies {
		if a.ClinicalStatus == AllergyStatusActive {
			names = append(names, a.CodeText)
		}
	}
	return names
}

// Allergy maps to the allergy_intolerances table.
type Allergy struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	CodeText       string    `json:"code_text"`
	Type           *string   `json:"type"`
	Category       *string   `json:"category"`
	Criticality    *string   `json:"criticality"`
	ClinicalStatus string    `json:"clinical_status"`
	RecordedDate   time.Time `json:"recorded_date"`
}

// Response is the API shape of a patient, including derived fields.
type Response struct {
	*Patient
	Age          int    `json:"age"`
	FullName     string `json:"full_name"`
	HasAllergies bool   `json:"has_allergies"`
	AllergyCount int    `json:"allergy_count"`
}

func NewResponse(p *Patient, today time.Time) *Response {
	if p.Allergies == nil {
		p.Allergies = []*Allergy{}
	}
	return &Response{
		Patient:      p,
		Age:          p.AgeOn(today),
		FullName:     p.FullName(),
		HasAllergies: p.HasAllergies(),
		AllergyCount: len(p.Allergies),
	}
}

// CreateRequest is the payload for registering a patient.
type CreateRequest struct {
	IdentifierValue string      `json:"identifier_value"`
	NameGiven       string      `json:"name_given"`
	NameFamily      string      `json:"name_family"`
	BirthDate       *civil.Date `json:"birth_date"`
	Gender          *string     `json:"gender"`
	TelecomPhone    *string     `json:"telecom_phone"`
	TelecomEmail    *string     `json:"telecom_email"`
}

// UpdateRequest carries a partial update. A key missing from the payload is
// left unchanged; an explicit null clears optional fields and is rejected for
// required ones.
type UpdateRequest struct {
	NameGiven    optional.Field[string]     `json:"name_given"`
	NameFamily   optional.Field[string]     `json:"name_family"`
	BirthDate    optional.Field[civil.Date] `json:"birth_date"`
	Gender       optional.Field[string]     `json:"gender"`
	TelecomPhone optional.Field[string]     `json:"telecom_phone"`
	TelecomEmail optional.Field[string]     `json:"telecom_email"`
}

// IsEmpty reports whether no field was sent.
func (r *UpdateRequest) IsEmpty() bool {
	return !r.NameGiven.Set && !r.NameFamily.Set && !r.BirthDate.Set &&
		!r.Gender.Set && !r.TelecomPhone.Set && !r.TelecomEmail.Set
}

// AllergyRequest is the payload for recording an allergy.
type AllergyRequest struct {
	CodeText    string  `json:"code_text"`
	Type        *string `json:"type"`
	Category    *string `json:"category"`
	Criticality *string `json:"criticality"`
}
