package patient

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/consultamed/consultamed/internal/platform/apperr"
	"github.com/consultamed/consultamed/internal/validators"
	"github.com/consultamed/consultamed/pkg/optional"
)

const (
	maxNameLength      = 100
	maxPhoneLength     = 20
	maxAllergyLabelLen = 200
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) today() time.Time {
	return validators.DateOf(s.now())
}

// Create registers a new patient. The document is stored in its canonical
// upper-case form and must not already be on file.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Patient, error) {
	document := validators.FormatDocument(req.IdentifierValue)
	ok, docType := validators.ValidateDocument(document)
	if !ok {
		return nil, apperr.Validation("identifier_value", "DNI/NIE inválido: la letra no corresponde")
	}

	if _, err := s.repo.GetByDocument(ctx, document); err == nil {
		return nil, duplicateDocument(document)
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	if req.BirthDate == nil || req.BirthDate.IsZero() {
		return nil, apperr.Validation("birth_date", "birth_date es obligatorio")
	}
	if ok, msg := validators.ValidateBirthDate(req.BirthDate.Time(), s.today()); !ok {
		return nil, apperr.Validation("birth_date", "%s", msg)
	}

	given, err := requiredName("name_given", req.NameGiven)
	if err != nil {
		return nil, err
	}
	family, err := requiredName("name_family", req.NameFamily)
	if err != nil {
		return nil, err
	}
	if ok, msg := validators.ValidateGender(req.Gender); !ok {
		return nil, apperr.Validation("gender", "%s", msg)
	}
	if err := validateContact(req.TelecomPhone, req.TelecomEmail); err != nil {
		return nil, err
	}

	p := &Patient{
		IdentifierValue:  document,
		IdentifierSystem: IdentifierSystem,
		IdentifierType:   string(docType),
		NameGiven:        given,
		NameFamily:       family,
		BirthDate:        *req.BirthDate,
		Gender:           validators.NormalizeCode(req.Gender),
		TelecomPhone:     req.TelecomPhone,
		TelecomEmail:     req.TelecomEmail,
		Active:           true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	p.Allergies = []*Allergy{}

	s.logger.Info().
		Str("patient_id", p.ID.String()).
		Str("document", validators.MaskDocument(document)).
		Msg("patient created")
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByDocument(ctx context.Context, document string) (*Patient, error) {
	return s.repo.GetByDocument(ctx, validators.FormatDocument(document))
}

// Update applies a partial update. Keys absent from req are left alone; an
// explicit null clears optional fields and is rejected for required ones.
// Nothing is written when validation fails or req is empty.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return p, nil
	}

	given, err := updatedName("name_given", req.NameGiven, p.NameGiven)
	if err != nil {
		return nil, err
	}
	family, err := updatedName("name_family", req.NameFamily, p.NameFamily)
	if err != nil {
		return nil, err
	}

	birth := p.BirthDate
	if req.BirthDate.Set {
		if req.BirthDate.Null || req.BirthDate.Value.IsZero() {
			return nil, apperr.Validation("birth_date", "birth_date no puede ser nulo")
		}
		if ok, msg := validators.ValidateBirthDate(req.BirthDate.Value.Time(), s.today()); !ok {
			return nil, apperr.Validation("birth_date", "%s", msg)
		}
		birth = req.BirthDate.Value
	}

	gender := p.Gender
	if req.Gender.Set {
		if ok, msg := validators.ValidateGender(req.Gender.Ptr()); !ok {
			return nil, apperr.Validation("gender", "%s", msg)
		}
		gender = validators.NormalizeCode(req.Gender.Ptr())
	}

	// stored contact data is only checked when the request replaces it
	phone, email := p.TelecomPhone, p.TelecomEmail
	if req.TelecomPhone.Set {
		phone = req.TelecomPhone.Ptr()
		if err := validatePhone(phone); err != nil {
			return nil, err
		}
	}
	if req.TelecomEmail.Set {
		email = req.TelecomEmail.Ptr()
		if err := validateEmail(email); err != nil {
			return nil, err
		}
	}

	p.NameGiven, p.NameFamily, p.BirthDate = given, family, birth
	p.Gender, p.TelecomPhone, p.TelecomEmail = gender, phone, email
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete deactivates the patient. Clinical history is kept.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("patient_id", id.String()).Msg("patient deactivated")
	return nil
}

// Search matches active patients by name or document. An empty query lists
// every active patient.
func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, strings.TrimSpace(query), limit, offset)
}

// -- Allergies --

// AddAllergy records an allergy as active, whatever status the caller had
// in mind.
func (s *Service) AddAllergy(ctx context.Context, patientID uuid.UUID, req *AllergyRequest) (*Allergy, error) {
	label := strings.TrimSpace(req.CodeText)
	if label == "" || utf8.RuneCountInString(label) > maxAllergyLabelLen {
		return nil, apperr.Validation("code_text", "code_text debe tener entre 1 y %d caracteres", maxAllergyLabelLen)
	}
	if ok, msg := validators.ValidateAllergyType(req.Type); !ok {
		return nil, apperr.Validation("type", "%s", msg)
	}
	if ok, msg := validators.ValidateAllergyCategory(req.Category); !ok {
		return nil, apperr.Validation("category", "%s", msg)
	}
	if ok, msg := validators.ValidateCriticality(req.Criticality); !ok {
		return nil, apperr.Validation("criticality", "%s", msg)
	}

	if _, err := s.repo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}

	kind := validators.NormalizeCode(req.Type)
	if kind == nil {
		t := defaultAllergyType
		kind = &t
	}
	a := &Allergy{
		PatientID:      patientID,
		CodeText:       label,
		Type:           kind,
		Category:       validators.NormalizeCode(req.Category),
		Criticality:    validators.NormalizeCode(req.Criticality),
		ClinicalStatus: AllergyStatusActive,
	}
	if err := s.repo.AddAllergy(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListAllergies(ctx context.Context, patientID uuid.UUID) ([]*Allergy, error) {
	if _, err := s.repo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListAllergies(ctx, patientID)
}

// RemoveAllergy deletes an allergy only if it belongs to patientID.
func (s *Service) RemoveAllergy(ctx context.Context, patientID, allergyID uuid.UUID) error {
	return s.repo.RemoveAllergy(ctx, patientID, allergyID)
}

// NewResponse builds the API shape using the service clock for the age.
func (s *Service) NewResponse(p *Patient) *Response {
	return NewResponse(p, s.today())
}

func requiredName(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", apperr.Validation(field, "%s no puede estar vacío", field)
	}
	if utf8.RuneCountInString(v) > maxNameLength {
		return "", apperr.Validation(field, "%s no puede superar %d caracteres", field, maxNameLength)
	}
	return v, nil
}

func updatedName(field string, f optional.Field[string], current string) (string, error) {
	if !f.Set {
		return current, nil
	}
	if f.Null {
		return "", apperr.Validation(field, "%s no puede ser nulo", field)
	}
	return requiredName(field, f.Value)
}

func validateContact(phone, email *string) error {
	if err := validatePhone(phone); err != nil {
		return err
	}
	return validateEmail(email)
}

func validatePhone(phone *string) error {
	if phone != nil && utf8.RuneCountInString(*phone) > maxPhoneLength {
		return apperr.Validation("telecom_phone", "telecom_phone no puede superar %d caracteres", maxPhoneLength)
	}
	return nil
}

func validateEmail(email *string) error {
	if email == nil {
		return nil
	}
	addr, err := mail.ParseAddress(*email)
	if err != nil || addr.Address != *email {
		return apperr.Validation("telecom_email", "telecom_email no es un email válido")
	}
	return nil
}
