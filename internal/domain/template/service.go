package template

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/consultamed/consultamed/internal/platform/apperr"
	"github.com/consultamed/consultamed/internal/validators"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns the practitioner's own templates together with the global
// ones, favorites first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*Template, int, error) {
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.List(ctx, f)
}

// Match finds the template to preload for a diagnosis.
func (s *Service) Match(ctx context.Context, practitionerID uuid.UUID, diagnosis string) (*Template, error) {
	diagnosis = strings.TrimSpace(diagnosis)
	if utf8.RuneCountInString(diagnosis) < minMatchQueryLength {
		return nil, apperr.Validation("diagnosis", "El diagnóstico debe tener al menos %d caracteres", minMatchQueryLength)
	}
	t, err := s.repo.MatchDiagnosis(ctx, practitionerID, diagnosis)
	if apperr.IsNotFound(err) {
		return nil, &apperr.NotFoundError{Message: "No se encontró template para este diagnóstico"}
	}
	return t, err
}

// Get returns a template visible to the practitioner. Templates owned by
// someone else are reported as missing.
func (s *Service) Get(ctx context.Context, practitionerID, id uuid.UUID) (*Template, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.VisibleTo(practitionerID) {
		return nil, apperr.NotFound("Template")
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, practitionerID uuid.UUID, req *CreateRequest) (*Template, error) {
	owner := practitionerID
	t := &Template{
		PractitionerID: &owner,
		DiagnosisCode:  trimmed(req.DiagnosisCode),
		Instructions:   trimmed(req.Instructions),
		IsFavorite:     req.IsFavorite,
	}
	var err error
	if t.Name, err = requiredText("name", req.Name, maxNameLength); err != nil {
		return nil, err
	}
	if t.DiagnosisText, err = requiredText("diagnosis_text", req.DiagnosisText, maxDiagnosisLength); err != nil {
		return nil, err
	}
	if err := validateCode(t.DiagnosisCode); err != nil {
		return nil, err
	}
	if t.Medications, err = cleanMedications(req.Medications); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("template_id", t.ID.String()).
		Str("practitioner_id", practitionerID.String()).
		Msg("template created")
	return t, nil
}

// Update applies a partial update to a template the practitioner owns.
func (s *Service) Update(ctx context.Context, practitionerID, id uuid.UUID, req *UpdateRequest) (*Template, error) {
	t, err := s.owned(ctx, practitionerID, id, "modificar")
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if t.Name, err = requiredText("name", *req.Name, maxNameLength); err != nil {
			return nil, err
		}
	}
	if req.DiagnosisText != nil {
		if t.DiagnosisText, err = requiredText("diagnosis_text", *req.DiagnosisText, maxDiagnosisLength); err != nil {
			return nil, err
		}
	}
	if req.DiagnosisCode != nil {
		t.DiagnosisCode = trimmed(req.DiagnosisCode)
		if err := validateCode(t.DiagnosisCode); err != nil {
			return nil, err
		}
	}
	if req.Medications != nil {
		if t.Medications, err = cleanMedications(*req.Medications); err != nil {
			return nil, err
		}
	}
	if req.Instructions != nil {
		t.Instructions = trimmed(req.Instructions)
	}
	if req.IsFavorite != nil {
		t.IsFavorite = *req.IsFavorite
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info().Str("template_id", id.String()).Msg("template updated")
	return t, nil
}

func (s *Service) Delete(ctx context.Context, practitionerID, id uuid.UUID) error {
	if _, err := s.owned(ctx, practitionerID, id, "eliminar"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("template_id", id.String()).Msg("template deleted")
	return nil
}

// owned loads a template and checks the practitioner may change it. Global
// templates are read-only for everyone.
func (s *Service) owned(ctx context.Context, practitionerID, id uuid.UUID, verb string) (*Template, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsGlobal() {
		return nil, apperr.Forbidden("No se pueden %s templates del sistema", verb)
	}
	if *t.PractitionerID != practitionerID {
		return nil, apperr.Forbidden("No tienes permiso para %s este template", verb)
	}
	return t, nil
}

func requiredText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || utf8.RuneCountInString(value) > max {
		return "", apperr.Validation(field, "%s debe tener entre 1 y %d caracteres", field, max)
	}
	return value, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func validateCode(code *string) error {
	if code != nil && utf8.RuneCountInString(*code) > maxDiagnosisCodeLen {
		return apperr.Validation("diagnosis_code", "diagnosis_code no puede superar %d caracteres", maxDiagnosisCodeLen)
	}
	if code != nil {
		*code = strings.ToUpper(*code)
	}
	return nil
}

func cleanMedications(in []Medication) ([]Medication, error) {
	out := make([]Medication, 0, len(in))
	for _, m := range in {
		m.Medication = strings.TrimSpace(m.Medication)
		m.Dosage = strings.TrimSpace(m.Dosage)
		m.Duration = strings.TrimSpace(m.Duration)
		if m.Medication == "" || utf8.RuneCountInString(m.Medication) > maxMedicationNameLen {
			return nil, apperr.Validation("medications.medication",
				"El medicamento debe tener entre 1 y %d caracteres", maxMedicationNameLen)
		}
		if ok, msg := validators.ValidateDosageFormat(m.Dosage); !ok {
			return nil, apperr.Validation("medications.dosage", "%s", msg)
		}
		if utf8.RuneCountInString(m.Duration) > maxDurationLength {
			return nil, apperr.Validation("medications.duration",
				"La duración no puede superar %d caracteres", maxDurationLength)
		}
		out = append(out, m)
	}
	return out, nil
}
