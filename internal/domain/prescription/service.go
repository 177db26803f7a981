package prescription

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/consultamed/consultamed/internal/domain/encounter"
	"github.com/consultamed/consultamed/internal/domain/patient"
	"github.com/consultamed/consultamed/internal/domain/practitioner"
	"github.com/consultamed/consultamed/internal/platform/pdf"
	"github.com/consultamed/consultamed/internal/validators"
)

type EncounterLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*encounter.Encounter, error)
}

type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type PractitionerLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*practitioner.Practitioner, error)
}

type Service struct {
	encounters    EncounterLookup
	patients      PatientLookup
	practitioners PractitionerLookup
	logger        zerolog.Logger
	loc           *time.Location
}

func NewService(encounters EncounterLookup, patients PatientLookup, practitioners PractitionerLookup, logger zerolog.Logger) *Service {
	return &Service{
		encounters:    encounters,
		patients:      patients,
		practitioners: practitioners,
		logger:        logger,
		loc:           time.Local,
	}
}

// Preview assembles the prescription of an encounter. The patient and the
// prescribing practitioner are loaded concurrently.
func (s *Service) Preview(ctx context.Context, encounterID uuid.UUID) (*Preview, error) {
	enc, err := s.encounters.Get(ctx, encounterID)
	if err != nil {
		return nil, err
	}

	var (
		pat  *patient.Patient
		prac *practitioner.Practitioner
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pat, err = s.patients.Get(gctx, enc.SubjectID)
		return err
	})
	g.Go(func() error {
		var err error
		prac, err = s.practitioners.Get(gctx, enc.ParticipantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	issued := enc.PeriodStart.In(s.loc)
	meds := NormalizeMedications(enc.Medications)
	return &Preview{
		Patient: PatientInfo{
			FullName:        pat.FullName(),
			IdentifierValue: pat.IdentifierValue,
			Age:             pat.AgeOn(issued),
			Gender:          GenderLabel(pat.Gender),
		},
		Practitioner: PractitionerInfo{
			FullName:          prac.FullName(),
			IdentifierValue:   prac.IdentifierValue,
			QualificationCode: prac.QualificationCode,
		},
		Date:         issued.Format(displayDateLayout),
		Diagnosis:    Diagnosis(enc),
		Medications:  meds,
		Instructions: Instructions(enc),
		Warnings:     allergyWarnings(meds, pat.ActiveAllergyNames()),
		issuedOn:     issued,
	}, nil
}

// PDF renders the encounter's prescription and returns it with its download
// file name.
func (s *Service) PDF(ctx context.Context, encounterID uuid.UUID) ([]byte, string, error) {
	pv, err := s.Preview(ctx, encounterID)
	if err != nil {
		return nil, "", err
	}

	doc := &pdf.Prescription{
		PatientName:         pv.Patient.FullName,
		PatientDocument:     pv.Patient.IdentifierValue,
		PatientAge:          pv.Patient.Age,
		PatientGender:       pv.Patient.Gender,
		PractitionerName:    pv.Practitioner.FullName,
		PractitionerLicence: pv.Practitioner.IdentifierValue,
		Date:                pv.Date,
		Diagnosis:           pv.Diagnosis,
		Instructions:        pv.Instructions,
		Warnings:            pv.Warnings,
		IssuedAt:            pv.issuedOn,
	}
	if q := pv.Practitioner.QualificationCode; q != nil {
		doc.PractitionerQualification = *q
	}
	for _, m := range pv.Medications {
		doc.Medications = append(doc.Medications, pdf.Medication{Name: m.Name, Dosage: m.Dosage, Duration: m.Duration})
	}

	var buf bytes.Buffer
	if err := pdf.RenderPrescription(&buf, doc); err != nil {
		return nil, "", err
	}
	s.logger.Info().
		Str("encounter_id", encounterID.String()).
		Str("document", validators.MaskDocument(pv.Patient.IdentifierValue)).
		Int("bytes", buf.Len()).
		Msg("prescription rendered")
	return buf.Bytes(), Filename(pv.Patient.FullName, pv.issuedOn), nil
}

func allergyWarnings(meds []Medication, allergies []string) []string {
	warnings := []string{}
	for _, m := range meds {
		if warn, msg := validators.CheckMedicationAllergyInteraction(m.Name, allergies); warn {
			warnings = append(warnings, msg)
		}
	}
	return warnings
}
