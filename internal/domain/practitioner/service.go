package practitioner

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/consultamed/consultamed/internal/platform/apperr"
	"github.com/consultamed/consultamed/internal/platform/auth"
)

const (
	tokenType = "bearer"

	msgBadCredentials     = "Email o contraseña incorrectos"
	msgInvalidCredentials = "Credenciales inválidas"
)

type Service struct {
	repo     Repository
	secret   []byte
	tokenTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, secret []byte, tokenTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{repo: repo, secret: secret, tokenTTL: tokenTTL, logger: logger, now: time.Now}
}

// Login checks the email and password and issues an access token. Every
// failure yields the same message so callers cannot probe for accounts.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	p, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if apperr.IsNotFound(err) {
		return nil, apperr.Unauthorized(msgBadCredentials)
	}
	if err != nil {
		return nil, err
	}
	if p.PasswordHash == nil || !auth.CheckPassword(*p.PasswordHash, password) {
		s.logger.Warn().Str("practitioner_id", p.ID.String()).Msg("login rejected")
		return nil, apperr.Unauthorized(msgBadCredentials)
	}
	if !p.Active {
		return nil, apperr.Unauthorized(msgBadCredentials)
	}

	token, err := auth.IssueToken(s.secret, p.ID, s.tokenTTL, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("practitioner_id", p.ID.String()).Msg("login")
	return &TokenResponse{
		AccessToken:  token,
		TokenType:    tokenType,
		Practitioner: NewResponse(p),
	}, nil
}

// Me resolves the authenticated practitioner. A token whose subject no
// longer exists is rejected.
func (s *Service) Me(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	p, err := s.repo.GetByID(ctx, id)
	if apperr.IsNotFound(err) {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}
	return p, err
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	return s.repo.GetByID(ctx, id)
}

// Create registers a practitioner with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Practitioner, error) {
	license := strings.TrimSpace(req.IdentifierValue)
	if license == "" {
		return nil, apperr.Validation("identifier_value", "identifier_value es obligatorio")
	}
	given, family := strings.TrimSpace(req.NameGiven), strings.TrimSpace(req.NameFamily)
	if given == "" || family == "" {
		return nil, apperr.Validation("name", "name_given y name_family son obligatorios")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperr.Validation("telecom_email", "telecom_email no es un email válido")
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Validation("password", "%s", err.Error())
	}

	p := &Practitioner{
		IdentifierValue:  license,
		IdentifierSystem: IdentifierSystem,
		NameGiven:        given,
		NameFamily:       family,
		TelecomEmail:     &email,
		PasswordHash:     &hash,
		Active:           true,
	}
	if q := strings.TrimSpace(req.QualificationCode); q != "" {
		p.QualificationCode = &q
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("practitioner_id", p.ID.String()).Msg("practitioner created")
	return p, nil
}
