package encounter

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultStatus      = "finished"
	ClassAmbulatory    = "AMB"
	ICD10System        = "http://hl7.org/fhir/sid/icd-10"
	StatusActive       = "active"
	IntentOrder        = "order"
	maxReasonLength    = 500
	maxCodeTextLength  = 200
	maxCodeLength      = 50
	maxDurationUnitLen = 20
)

var validStatuses = map[string]bool{
	"planned":     true,
	"in-progress": true,
	"on-hold":     true,
	"discharged":  true,
	"finished":    true,
	"cancelled":   true,
}

// Encounter maps to the encounters table. Conditions and medications are
// owned by the encounter and share its lifetime.
type Encounter struct {
	ID                  uuid.UUID            `json:"id"`
	SubjectID           uuid.UUID            `json:"subject_id"`
	ParticipantID       uuid.UUID            `json:"participant_id"`
	Status              string               `json:"status"`
	ClassCode           string               `json:"class_code"`
	PeriodStart         time.Time            `json:"period_start"`
	PeriodEnd           *time.Time           `json:"period_end"`
	ReasonText          *string              `json:"reason_text"`
	SubjectiveText      *string              `json:"subjective_text"`
	ObjectiveText       *string              `json:"objective_text"`
	AssessmentText      *string              `json:"assessment_text"`
	PlanText            *string              `json:"plan_text"`
	RecommendationsText *string              `json:"recommendations_text"`
	Note                *string              `json:"note"`
	Conditions          []*Condition         `json:"conditions"`
	Medications         []*MedicationRequest `json:"medications"`
	CreatedAt           time.Time            `json:"meta_created_at"`
	UpdatedAt           time.Time            `json:"meta_updated_at"`
}

func (e *Encounter) soap() SOAP {
	return SOAP{
		Subjective:      e.SubjectiveText,
		Objective:       e.ObjectiveText,
		Assessment:      e.AssessmentText,
		Plan:            e.PlanText,
		Recommendations: e.RecommendationsText,
	}
}

// Condition is a diagnosis recorded during an encounter.
type Condition struct {
	ID               uuid.UUID `json:"id"`
	SubjectID        uuid.UUID `json:"subject_id"`
	EncounterID      uuid.UUID `json:"encounter_id"`
	CodeText         string    `json:"code_text"`
	CodeCodingCode   *string   `json:"code_coding_code"`
	CodeCodingSystem string    `json:"code_coding_system"`
	ClinicalStatus   string    `json:"clinical_status"`
	RecordedDate     time.Time `json:"recorded_date"`
}

// MedicationRequest is a prescription line issued during an encounter.
type MedicationRequest struct {
	ID             uuid.UUID `json:"id"`
	SubjectID      uuid.UUID `json:"subject_id"`
	EncounterID    uuid.UUID `json:"encounter_id"`
	RequesterID    uuid.UUID `json:"requester_id"`
	Status         string    `json:"status"`
	Intent         string    `json:"intent"`
	MedicationText string    `json:"medication_text"`
	DosageText     string    `json:"dosage_text"`
	DurationValue  *int      `json:"duration_value"`
	DurationUnit   *string   `json:"duration_unit"`
	AuthoredOn     time.Time `json:"authored_on"`
}

type ConditionInput struct {
	CodeText       string  `json:"code_text"`
	CodeCodingCode *string `json:"code_coding_code"`
}

type MedicationInput struct {
	MedicationText string  `json:"medication_text"`
	DosageText     string  `json:"dosage_text"`
	DurationValue  *int    `json:"duration_value"`
	DurationUnit   *string `json:"duration_unit"`
}

// Request is the payload for creating or replacing an encounter. On update,
// a nil Conditions or Medications list keeps the current children while an
// empty list removes them.
type Request struct {
	Status              *string           `json:"status"`
	PeriodStart         *time.Time        `json:"period_start"`
	PeriodEnd           *time.Time        `json:"period_end"`
	ReasonText          *string           `json:"reason_text"`
	SubjectiveText      *string           `json:"subjective_text"`
	ObjectiveText       *string           `json:"objective_text"`
	AssessmentText      *string           `json:"assessment_text"`
	PlanText            *string           `json:"plan_text"`
	RecommendationsText *string           `json:"recommendations_text"`
	Note                *string           `json:"note"`
	Conditions          []ConditionInput  `json:"conditions"`
	Medications         []MedicationInput `json:"medications"`
}
