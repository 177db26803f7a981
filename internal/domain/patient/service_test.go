package patient

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/consultamed/consultamed/internal/platform/apperr"
	"github.com/consultamed/consultamed/pkg/civil"
	"github.com/consultamed/consultamed/pkg/optional"
)

var fixedNow = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

// -- Mock Patient Repository --

type mockPatientRepo struct {
	patients    map[uuid.UUID]*Patient
	allergies   map[uuid.UUID]*Allergy
	updateCalls int
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{
		patients:  make(map[uuid.UUID]*Patient),
		allergies: make(map[uuid.UUID]*Allergy),
	}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	for _, existing := range m.patients {
		if existing.IdentifierValue == p.IdentifierValue {
			return duplicateDocument(p.IdentifierValue)
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = fixedNow
	p.UpdatedAt = fixedNow
	stored := *p
	m.patients[p.ID] = &stored
	return nil
}

func (m *mockPatientRepo) load(p *Patient) *Patient {
	out := *p
	out.Allergies = []*Allergy{}
	for _, a := range m.allergies {
		if a.PatientID == p.ID {
			out.Allergies = append(out.Allergies, a)
		}
	}
	return &out
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("Paciente")
	}
	return m.load(p), nil
}

func (m *mockPatientRepo) GetByDocument(_ context.Context, document string) (*Patient, error) {
	for _, p := range m.patients {
		if p.IdentifierValue == document {
			return m.load(p), nil
		}
	}
	return nil, apperr.NotFound("Paciente")
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	m.updateCalls++
	if _, ok := m.patients[p.ID]; !ok {
		return apperr.NotFound("Paciente")
	}
	stored := *p
	m.patients[p.ID] = &stored
	return nil
}

func (m *mockPatientRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	p, ok := m.patients[id]
	if !ok {
		return apperr.NotFound("Paciente")
	}
	p.Active = false
	return nil
}

func (m *mockPatientRepo) Search(_ context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	q := strings.ToLower(query)
	var matched []*Patient
	for _, p := range m.patients {
		if !p.Active {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(p.NameGiven), q) ||
			strings.Contains(strings.ToLower(p.NameFamily), q) ||
			strings.Contains(strings.ToLower(p.IdentifierValue), q) {
			matched = append(matched, m.load(p))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].NameFamily != matched[j].NameFamily {
			return matched[i].NameFamily < matched[j].NameFamily
		}
		return matched[i].NameGiven < matched[j].NameGiven
	})
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *mockPatientRepo) AddAllergy(_ context.Context, a *Allergy) error {
	a.ID = uuid.New()
	a.RecordedDate = fixedNow
	m.allergies[a.ID] = a
	return nil
}

func (m *mockPatientRepo) ListAllergies(_ context.Context, patientID uuid.UUID) ([]*Allergy, error) {
	result := []*Allergy{}
	for _, a := range m.allergies {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockPatientRepo) RemoveAllergy(_ context.Context, patientID, allergyID uuid.UUID) error {
	a, ok := m.allergies[allergyID]
	if !ok || a.PatientID != patientID {
		return apperr.NotFound("Alergia")
	}
	delete(m.allergies, allergyID)
	return nil
}

func newTestService() (*Service, *mockPatientRepo) {
	repo := newMockPatientRepo()
	svc := NewService(repo, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func strPtr(s string) *string { return &s }

func datePtr(y int, m time.Month, d int) *civil.Date {
	date := civil.New(y, m, d)
	return &date
}

func createTestPatient(t *testing.T, svc *Service, document, given, family string) *Patient {
	t.Helper()
	p, err := svc.Create(context.Background(), &CreateRequest{
		IdentifierValue: document,
		NameGiven:       given,
		NameFamily:      family,
		BirthDate:       datePtr(1980, time.May, 20),
		TelecomPhone:    strPtr("600123456"),
	})
	if err != nil {
		t.Fatalf("create %s: %v", document, err)
	}
	return p
}

// -- Create --

func TestService_Create(t *testing.T) {
	svc, _ := newTestService()

	p, err := svc.Create(context.Background(), &CreateRequest{
		IdentifierValue: " 12345678z ",
		NameGiven:       "Ana",
		NameFamily:      "García López",
		BirthDate:       datePtr(1980, time.May, 20),
		Gender:          strPtr("Female"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if p.IdentifierValue != "12345678Z" {
		t.Errorf("expected normalized document 12345678Z, got %q", p.IdentifierValue)
	}
	if p.IdentifierType != "DNI" {
		t.Errorf("expected type DNI, got %q", p.IdentifierType)
	}
	if p.IdentifierSystem != IdentifierSystem {
		t.Errorf("expected system %s, got %s", IdentifierSystem, p.IdentifierSystem)
	}
	if !p.Active {
		t.Error("expected patient to be active")
	}
	if p.Gender == nil || *p.Gender != "female" {
		t.Errorf("expected gender female, got %v", p.Gender)
	}
	if p.TelecomPhone != nil || p.TelecomEmail != nil {
		t.Error("expected phone and email to be absent")
	}
	if p.Allergies == nil || len(p.Allergies) != 0 {
		t.Errorf("expected empty allergy list, got %v", p.Allergies)
	}
}

func TestService_Create_NIE(t *testing.T) {
	svc, _ := newTestService()

	p := createTestPatient(t, svc, "X0000000T", "Ion", "Popescu")
	if p.IdentifierType != "NIE" {
		t.Errorf("expected type NIE, got %q", p.IdentifierType)
	}
}

func TestService_Create_InvalidDocument(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.Create(context.Background(), &CreateRequest{
		IdentifierValue: "12345678A",
		NameGiven:       "Ana",
		NameFamily:      "García",
		BirthDate:       datePtr(1980, time.May, 20),
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "la letra no corresponde") {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if len(repo.patients) != 0 {
		t.Error("expected nothing persisted")
	}
}

func TestService_Create_DuplicateLowercase(t *testing.T) {
	svc, _ := newTestService()
	createTestPatient(t, svc, "12345678Z", "Ana", "García")

	_, err := svc.Create(context.Background(), &CreateRequest{
		IdentifierValue: "12345678z",
		NameGiven:       "Otra",
		NameFamily:      "Persona",
		BirthDate:       datePtr(1990, time.January, 1),
	})
	if !apperr.IsDuplicate(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if !strings.Contains(err.Error(), "12345678Z") {
		t.Errorf("expected message to name 12345678Z, got %q", err.Error())
	}
}

func TestService_Create_BirthDate(t *testing.T) {
	tests := []struct {
		name    string
		birth   *civil.Date
		wantErr bool
	}{
		{"today", datePtr(2026, time.March, 15), false},
		{"tomorrow", datePtr(2026, time.March, 16), true},
		{"150 years", datePtr(1876, time.March, 15), false},
		{"151 years", datePtr(1875, time.March, 15), true},
		{"missing", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			_, err := svc.Create(context.Background(), &CreateRequest{
				IdentifierValue: "00000000T",
				NameGiven:       "Ana",
				NameFamily:      "García",
				BirthDate:       tt.birth,
			})
			if tt.wantErr && !apperr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestService_Create_FieldValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   CreateRequest
		field string
	}{
		{"blank given name", CreateRequest{NameGiven: "  ", NameFamily: "García"}, "name_given"},
		{"long family name", CreateRequest{NameGiven: "Ana", NameFamily: strings.Repeat("a", 101)}, "name_family"},
		{"bad gender", CreateRequest{NameGiven: "Ana", NameFamily: "García", Gender: strPtr("x")}, "gender"},
		{"long phone", CreateRequest{NameGiven: "Ana", NameFamily: "García", TelecomPhone: strPtr(strings.Repeat("6", 21))}, "telecom_phone"},
		{"bad email", CreateRequest{NameGiven: "Ana", NameFamily: "García", TelecomEmail: strPtr("not-an-email")}, "telecom_email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			req := tt.req
			req.IdentifierValue = "00000001R"
			req.BirthDate = datePtr(1980, time.May, 20)

			_, err := svc.Create(context.Background(), &req)
			ve, ok := err.(*apperr.ValidationError)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, ve.Field)
			}
		})
	}
}

// -- Update --

func TestService_Update_NullRequiredField(t *testing.T) {
	svc, repo := newTestService()
	p := createTestPatient(t, svc, "12345678Z", "Ana", "García")

	_, err := svc.Update(context.Background(), p.ID, &UpdateRequest{NameGiven: optional.Null[string]()})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "name_given") {
		t.Errorf("expected message to mention name_given, got %q", err.Error())
	}
	if repo.updateCalls != 0 {
		t.Errorf("expected no update call, got %d", repo.updateCalls)
	}
	if repo.patients[p.ID].NameGiven != "Ana" {
		t.Error("expected stored name unchanged")
	}
}

func TestService_Update_BlankName(t *testing.T) {
	svc, repo := newTestService()
	p := createTestPatient(t, svc, "12345678Z", "Ana", "García")

	_, err := svc.Update(context.Background(), p.ID, &UpdateRequest{NameFamily: optional.Of("   ")})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.updateCalls != 0 {
		t.Errorf("expected no update call, got %d", repo.updateCalls)
	}
}

func TestService_Update_NullBirthDate(t *testing.T) {
	svc, _ := newTestService()
	p := createTestPatient(t, svc, "12345678Z", "Ana", "García")

	_, err := svc.Update(context.Background(), p.ID, &UpdateRequest{BirthDate: optional.Null[civil.Date]()})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_Update_FutureBirthDate(t *testing.T) {
	svc, _ := newTestService()
	p := createTestPatient(t, svc, "12345678Z", "Ana", "García")

	_, err := svc.Update(context.Background(), p.ID, &UpdateRequest{BirthDate: optional.Of(civil.New(2030, time.January, 1))})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_Update_Empty(t *testing.T) {
	svc, repo := newTestService()
	p := createTestPatient(t, svc, "12345678Z", "Ana", "García")

	got, err := svc.Update(context.Background(), p.ID, &UpdateRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NameGiven != "Ana" || got.NameFamily != "García" {
		t.Errorf("expected unchanged names, got %s %s", got.NameGiven, got.NameFamily)
	}
	if got.TelecomPhone == nil || *got.TelecomPhone != "600123456" {
		t.Errorf("expected phone unchanged, got %v", got.TelecomPhone)
	}
	if repo.updateCalls != 0 {
		t.Errorf("expected no update call, got %d", repo.updateCalls)
	}
}

func TestService_Update_ClearPhone(t *testing.T) {
	svc, repo := newTestService()
	p := createTestPatient(t, svc, "12345678Z", "Ana", "García")

	got, err := svc.Update(context.Background(), p.ID, &UpdateRequest{TelecomPhone: optional.Null[string]()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TelecomPhone != nil {
		t.Errorf("expected phone cleared, got %v", *got.TelecomPhone)
	}
	if repo.patients[p.ID].TelecomPhone != nil {
		t.Error("expected stored phone cleared")
	}
	if got.NameGiven != "Ana" {
		t.Errorf("expected name unchanged, got %s", got.NameGiven)
	}
}

func TestService_Update_Fields(t *testing.T) {
	svc, _ := newTestService()
	p := createTestPatient(t, svc, "12345678Z", "Ana", "García")

	got, err := svc.Update(context.Background(), p.ID, &UpdateRequest{
		NameGiven:    optional.Of(" Ana María "),
		Gender:       optional.Of("FEMALE"),
		TelecomEmail: optional.Of("ana@example.com"),
		BirthDate:    optional.Of(civil.New(1981, time.June, 1)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NameGiven != "Ana María" {
		t.Errorf("expected trimmed name, got %q", got.NameGiven)
	}
	if got.Gender == nil || *got.Gender != "female" {
		t.Errorf("expected gender female, got %v", got.Gender)
	}
	if got.TelecomEmail == nil || *got.TelecomEmail != "ana@example.com" {
		t.Errorf("expected email set, got %v", got.TelecomEmail)
	}
	if !got.BirthDate.Equal(civil.New(1981, time.June, 1)) {
		t.Errorf("expected birth date 1981-06-01, got %s", got.BirthDate)
	}
}

func TestService_Update_KeepsLegacyContact(t *testing.T) {
	svc, repo := newTestService()
	p := createTestPatient(t, svc, "12345678Z", "Ana", "García")
	repo.patients[p.ID].TelecomEmail = strPtr("ana en gmail")

	got, err := svc.Update(context.Background(), p.ID, &UpdateRequest{NameFamily: optional.Of("García López")})
	if err != nil {
		t.Fatalf("expected update of other fields to succeed, got %v", err)
	}
	if got.NameFamily != "García López" {
		t.Errorf("expected family name updated, got %s", got.NameFamily)
	}
	if got.TelecomEmail == nil || *got.TelecomEmail != "ana en gmail" {
		t.Errorf("expected stored email untouched, got %v", got.TelecomEmail)
	}

	_, err = svc.Update(context.Background(), p.ID, &UpdateRequest{TelecomEmail: optional.Of("otra en gmail")})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for sent email, got %v", err)
	}
}

func TestService_Update_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Update(context.Background(), uuid.New(), &UpdateRequest{NameGiven: optional.Of("Ana")})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// -- Search / Delete --

func TestService_Search(t *testing.T) {
	svc, _ := newTestService()
	createTestPatient(t, svc, "00000000T", "Luis", "Zamora")
	createTestPatient(t, svc, "00000001R", "Ana", "García")
	createTestPatient(t, svc, "00000002W", "Beatriz", "García")

	all, total, err := svc.Search(context.Background(), "", 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(all) != 2 {
		t.Fatalf("expected page of 2, got %d", len(all))
	}
	if all[0].NameGiven != "Ana" || all[1].NameGiven != "Beatriz" {
		t.Errorf("expected family then given order, got %s, %s", all[0].NameGiven, all[1].NameGiven)
	}

	found, total, err := svc.Search(context.Background(), "GARC", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(found) != 2 {
		t.Errorf("expected 2 matches, got %d (total %d)", len(found), total)
	}

	byDoc, _, _ := svc.Search(context.Background(), "0000000", 20, 0)
	if len(byDoc) != 3 {
		t.Errorf("expected document substring to match 3, got %d", len(byDoc))
	}
}

func TestService_Delete_HidesFromSearch(t *testing.T) {
	svc, _ := newTestService()
	p := createTestPatient(t, svc, "12345678Z", "Ana", "García")

	if err := svc.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, total, _ := svc.Search(context.Background(), "", 20, 0)
	if total != 0 {
		t.Errorf("expected inactive patient hidden, got total %d", total)
	}
	if _, err := svc.Get(context.Background(), p.ID); err != nil {
		t.Errorf("expected inactive patient still readable, got %v", err)
	}
}

func TestService_GetByDocument_Normalizes(t *testing.T) {
	svc, _ := newTestService()
	p := createTestPatient(t, svc, "12345678Z", "Ana", "García")

	got, err := svc.GetByDocument(context.Background(), " 12345678z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("expected %s, got %s", p.ID, got.ID)
	}
}

// -- Allergies --

func TestService_AddAllergy(t *testing.T) {
	svc, _ := newTestService()
	p := createTestPatient(t, svc, "12345678Z", "Ana", "García")

	a, err := svc.AddAllergy(context.Background(), p.ID, &AllergyRequest{
		CodeText:    "Penicilina",
		Category:    strPtr("Medication"),
		Criticality: strPtr("high"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ClinicalStatus != AllergyStatusActive {
		t.Errorf("expected active status, got %s", a.ClinicalStatus)
	}
	if a.Type == nil || *a.Type != "allergy" {
		t.Errorf("expected default type allergy, got %v", a.Type)
	}
	if a.Category == nil || *a.Category != "medication" {
		t.Errorf("expected category medication, got %v", a.Category)
	}

	got, _ := svc.Get(context.Background(), p.ID)
	if !got.HasAllergies() {
		t.Error("expected patient to have allergies")
	}
	if names := got.ActiveAllergyNames(); len(names) != 1 || names[0] != "Penicilina" {
		t.Errorf("unexpected active allergy names: %v", names)
	}
}

func TestService_AddAllergy_Validation(t *testing.T) {
	svc, _ := newTestService()
	p := createTestPatient(t, svc, "12345678Z", "Ana", "García")

	tests := []struct {
		name string
		req  AllergyRequest
	}{
		{"empty label", AllergyRequest{CodeText: " "}},
		{"long label", AllergyRequest{CodeText: strings.Repeat("x", 201)}},
		{"bad type", AllergyRequest{CodeText: "Polen", Type: strPtr("reaction")}},
		{"bad category", AllergyRequest{CodeText: "Polen", Category: strPtr("plant")}},
		{"bad criticality", AllergyRequest{CodeText: "Polen", Criticality: strPtr("severe")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if _, err := svc.AddAllergy(context.Background(), p.ID, &req); !apperr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_AddAllergy_UnknownPatient(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.AddAllergy(context.Background(), uuid.New(), &AllergyRequest{CodeText: "Polen"})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_RemoveAllergy_ScopedToPatient(t *testing.T) {
	svc, repo := newTestService()
	ana := createTestPatient(t, svc, "12345678Z", "Ana", "García")
	luis := createTestPatient(t, svc, "00000000T", "Luis", "Zamora")

	a, err := svc.AddAllergy(context.Background(), ana.ID, &AllergyRequest{CodeText: "Polen"})
	if err != nil {
		t.Fatalf("add allergy: %v", err)
	}

	if err := svc.RemoveAllergy(context.Background(), luis.ID, a.ID); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found for other patient, got %v", err)
	}
	if _, ok := repo.allergies[a.ID]; !ok {
		t.Fatal("expected allergy to survive a cross-patient delete")
	}

	if err := svc.RemoveAllergy(context.Background(), ana.ID, a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.allergies[a.ID]; ok {
		t.Error("expected allergy deleted")
	}
}

func TestNewResponse_DerivedFields(t *testing.T) {
	p := &Patient{
		NameGiven:  "Ana",
		NameFamily: "García",
		BirthDate:  civil.New(1980, time.May, 20),
		Allergies: []*Allergy{
			{CodeText: "Polen", ClinicalStatus: "inactive"},
		},
	}

	resp := NewResponse(p, fixedNow)
	if resp.Age != 45 {
		t.Errorf("expected age 45, got %d", resp.Age)
	}
	if resp.FullName != "Ana García" {
		t.Errorf("expected full name Ana García, got %s", resp.FullName)
	}
	if resp.HasAllergies {
		t.Error("expected no active allergies")
	}
	if resp.AllergyCount != 1 {
		t.Errorf("expected allergy count 1, got %d", resp.AllergyCount)
	}
}
