package encounter

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/consultamed/consultamed/internal/domain/patient"
	"github.com/consultamed/consultamed/internal/platform/apperr"
	"github.com/consultamed/consultamed/internal/validators"
)

// PatientLookup is the part of the patient service encounters depend on.
type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientLookup
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, patients PatientLookup, logger zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, logger: logger, now: time.Now}
}

// Create records an encounter for an active patient, with its diagnoses and
// prescriptions, on behalf of practitionerID.
func (s *Service) Create(ctx context.Context, patientID, practitionerID uuid.UUID, req *Request) (*Encounter, error) {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, apperr.NotFound("Paciente")
	}

	enc := &Encounter{
		SubjectID:     patientID,
		ParticipantID: practitionerID,
		Status:        DefaultStatus,
		ClassCode:     ClassAmbulatory,
		PeriodStart:   s.now().UTC(),
	}
	if err := s.apply(enc, req, true); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, enc); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("encounter_id", enc.ID.String()).
		Str("patient_id", patientID.String()).
		Int("conditions", len(enc.Conditions)).
		Int("medications", len(enc.Medications)).
		Msg("encounter created")
	return enc, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByPatient returns the patient's encounters, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListBySubject(ctx, patientID, limit, offset)
}

// Update replaces the encounter's fields. Conditions and medications are
// replaced when the request carries the corresponding list.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *Request) (*Encounter, error) {
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(enc, req, false); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, enc); err != nil {
		return nil, err
	}
	s.logger.Info().Str("encounter_id", id.String()).Msg("encounter updated")
	return enc, nil
}

// Delete removes the encounter together with its conditions and
// medications.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("encounter_id", id.String()).Msg("encounter deleted")
	return nil
}

// apply validates req and copies it onto enc. On create every child list is
// taken as given; on update a nil list leaves the current children alone.
func (s *Service) apply(enc *Encounter, req *Request, creating bool) error {
	if req.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*req.Status))
		if !validStatuses[status] {
			return apperr.Validation("status", "Estado inválido: %s", *req.Status)
		}
		enc.Status = status
	}
	if req.PeriodStart != nil {
		enc.PeriodStart = req.PeriodStart.UTC()
	}
	if req.PeriodEnd != nil || !creating {
		enc.PeriodEnd = req.PeriodEnd
	}
	if enc.PeriodEnd != nil && enc.PeriodEnd.Before(enc.PeriodStart) {
		return apperr.Validation("period_end", "period_end no puede ser anterior a period_start")
	}

	reason := CleanText(req.ReasonText)
	if reason != nil && utf8.RuneCountInString(*reason) > maxReasonLength {
		return apperr.Validation("reason_text", "reason_text no puede superar %d caracteres", maxReasonLength)
	}
	enc.ReasonText = reason
	enc.SubjectiveText = CleanText(req.SubjectiveText)
	enc.ObjectiveText = CleanText(req.ObjectiveText)
	enc.AssessmentText = CleanText(req.AssessmentText)
	enc.PlanText = CleanText(req.PlanText)
	enc.RecommendationsText = CleanText(req.RecommendationsText)
	enc.Note = BuildLegacyNote(req.Note, enc.soap())

	if req.Conditions != nil || creating {
		conditions, err := buildConditions(req.Conditions)
		if err != nil {
			return err
		}
		enc.Conditions = conditions
	}
	if req.Medications != nil || creating {
		medications, err := buildMedications(req.Medications, enc.ParticipantID)
		if err != nil {
			return err
		}
		enc.Medications = medications
	}
	return nil
}

func buildConditions(in []ConditionInput) ([]*Condition, error) {
	out := make([]*Condition, 0, len(in))
	for _, c := range in {
		text := strings.TrimSpace(c.CodeText)
		if text == "" || utf8.RuneCountInString(text) > maxCodeTextLength {
			return nil, apperr.Validation("conditions.code_text",
				"El diagnóstico debe tener entre 1 y %d caracteres", maxCodeTextLength)
		}
		code := CleanText(c.CodeCodingCode)
		if code != nil && utf8.RuneCountInString(*code) > maxCodeLength {
			return nil, apperr.Validation("conditions.code_coding_code",
				"El código no puede superar %d caracteres", maxCodeLength)
		}
		out = append(out, &Condition{
			CodeText:         text,
			CodeCodingCode:   code,
			CodeCodingSystem: ICD10System,
			ClinicalStatus:   StatusActive,
		})
	}
	return out, nil
}

func buildMedications(in []MedicationInput, requesterID uuid.UUID) ([]*MedicationRequest, error) {
	out := make([]*MedicationRequest, 0, len(in))
	for _, m := range in {
		name := strings.TrimSpace(m.MedicationText)
		if name == "" || utf8.RuneCountInString(name) > maxCodeTextLength {
			return nil, apperr.Validation("medications.medication_text",
				"El medicamento debe tener entre 1 y %d caracteres", maxCodeTextLength)
		}
		dosage := strings.TrimSpace(m.DosageText)
		if ok, msg := validators.ValidateDosageFormat(dosage); !ok {
			return nil, apperr.Validation("medications.dosage_text", "%s", msg)
		}
		if m.DurationValue != nil && *m.DurationValue < 1 {
			return nil, apperr.Validation("medications.duration_value", "La duración debe ser al menos 1")
		}
		unit := CleanText(m.DurationUnit)
		if unit != nil && utf8.RuneCountInString(*unit) > maxDurationUnitLen {
			return nil, apperr.Validation("medications.duration_unit",
				"La unidad de duración no puede superar %d caracteres", maxDurationUnitLen)
		}
		out = append(out, &MedicationRequest{
			RequesterID:    requesterID,
			Status:         StatusActive,
			Intent:         IntentOrder,
			MedicationText: name,
			DosageText:     dosage,
			DurationValue:  m.DurationValue,
			DurationUnit:   unit,
		})
	}
	return out, nil
}
