package practitioner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/consultamed/consultamed/internal/platform/apperr"
	"github.com/consultamed/consultamed/internal/platform/auth"
)

var testSecret = []byte("test-secret-key-with-enough-length")

// -- Mock Practitioner Repository --

type mockPractitionerRepo struct {
	practitioners map[uuid.UUID]*Practitioner
}

func newMockPractitionerRepo() *mockPractitionerRepo {
	return &mockPractitionerRepo{practitioners: make(map[uuid.UUID]*Practitioner)}
}

func (m *mockPractitionerRepo) Create(_ context.Context, p *Practitioner) error {
	for _, existing := range m.practitioners {
		if existing.IdentifierValue == p.IdentifierValue {
			return &apperr.DuplicateError{Resource: "Profesional", Key: "identifier_value", Value: p.IdentifierValue}
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.practitioners[p.ID] = p
	return nil
}

func (m *mockPractitionerRepo) GetByID(_ context.Context, id uuid.UUID) (*Practitioner, error) {
	p, ok := m.practitioners[id]
	if !ok {
		return nil, apperr.NotFound("Profesional")
	}
	return p, nil
}

func (m *mockPractitionerRepo) GetByEmail(_ context.Context, email string) (*Practitioner, error) {
	for _, p := range m.practitioners {
		if p.TelecomEmail != nil && strings.EqualFold(*p.TelecomEmail, email) {
			return p, nil
		}
	}
	return nil, apperr.NotFound("Profesional")
}

func newTestService() (*Service, *mockPractitionerRepo) {
	repo := newMockPractitionerRepo()
	return NewService(repo, testSecret, 8*time.Hour, zerolog.Nop()), repo
}

func createTestPractitioner(t *testing.T, svc *Service) *Practitioner {
	t.Helper()
	p, err := svc.Create(context.Background(), &CreateRequest{
		IdentifierValue:   "282886589",
		NameGiven:         "María",
		NameFamily:        "Sánchez",
		QualificationCode: "Medicina General",
		Email:             "Maria@Consulta.es",
		Password:          "secreto123",
	})
	if err != nil {
		t.Fatalf("create practitioner: %v", err)
	}
	return p
}

func TestService_Create(t *testing.T) {
	svc, _ := newTestService()
	p := createTestPractitioner(t, svc)

	if p.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if p.TelecomEmail == nil || *p.TelecomEmail != "maria@consulta.es" {
		t.Errorf("expected lower-cased email, got %v", p.TelecomEmail)
	}
	if p.PasswordHash == nil || *p.PasswordHash == "secreto123" {
		t.Fatal("expected password to be hashed")
	}
	if !auth.CheckPassword(*p.PasswordHash, "secreto123") {
		t.Error("expected hash to match the password")
	}
	if p.FullName() != "Dr/Dra. María Sánchez" {
		t.Errorf("unexpected full name %q", p.FullName())
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, _ := newTestService()

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"missing licence", CreateRequest{NameGiven: "A", NameFamily: "B", Email: "a@b.es", Password: "secreto123"}},
		{"missing name", CreateRequest{IdentifierValue: "1", NameFamily: "B", Email: "a@b.es", Password: "secreto123"}},
		{"bad email", CreateRequest{IdentifierValue: "1", NameGiven: "A", NameFamily: "B", Email: "nope", Password: "secreto123"}},
		{"short password", CreateRequest{IdentifierValue: "1", NameGiven: "A", NameFamily: "B", Email: "a@b.es", Password: "corta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if _, err := svc.Create(context.Background(), &req); !apperr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_Login(t *testing.T) {
	svc, _ := newTestService()
	p := createTestPractitioner(t, svc)

	resp, err := svc.Login(context.Background(), "MARIA@consulta.es", "secreto123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TokenType != "bearer" {
		t.Errorf("expected token type bearer, got %s", resp.TokenType)
	}
	if resp.Practitioner.ID != p.ID {
		t.Errorf("expected practitioner %s, got %s", p.ID, resp.Practitioner.ID)
	}

	claims := &auth.Claims{}
	token, err := jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return testSecret, nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.Subject != p.ID.String() {
		t.Errorf("expected subject %s, got %s", p.ID, claims.Subject)
	}
	if ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time); ttl != 8*time.Hour {
		t.Errorf("expected 8h lifetime, got %s", ttl)
	}
}

func TestService_Login_Rejections(t *testing.T) {
	svc, repo := newTestService()
	p := createTestPractitioner(t, svc)

	noHash := &Practitioner{IdentifierValue: "2", NameGiven: "Sin", NameFamily: "Clave", Active: true}
	email := "sinclave@consulta.es"
	noHash.TelecomEmail = &email
	repo.Create(context.Background(), noHash)

	tests := []struct {
		name, email, password string
	}{
		{"unknown email", "nadie@consulta.es", "secreto123"},
		{"wrong password", "maria@consulta.es", "incorrecta"},
		{"no password hash", "sinclave@consulta.es", "secreto123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			he := apperr.HTTPError(err)
			if he.Code != 401 {
				t.Fatalf("expected 401, got %d (%v)", he.Code, err)
			}
			if he.Message != "Email o contraseña incorrectos" {
				t.Errorf("unexpected message %v", he.Message)
			}
		})
	}

	p.Active = false
	if _, err := svc.Login(context.Background(), "maria@consulta.es", "secreto123"); apperr.HTTPError(err).Code != 401 {
		t.Errorf("expected inactive practitioner rejected, got %v", err)
	}
}

func TestService_Me_UnknownSubject(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Me(context.Background(), uuid.New())
	if he := apperr.HTTPError(err); he.Code != 401 {
		t.Fatalf("expected 401, got %d", he.Code)
	}
}
