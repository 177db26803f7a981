package practitioner

import (
	"time"

	"github.com/google/uuid"
)

// IdentifierSystem is the OID of the Spanish medical licence register.
const IdentifierSystem = "urn:oid:2.16.724.4.9.10.5"

// Practitioner maps to the practitioners table. The password hash is never
// serialized.
type Practitioner struct {
	ID                uuid.UUID `json:"id"`
	IdentifierValue   string    `json:"identifier_value"`
	IdentifierSystem  string    `json:"identifier_system"`
	NameGiven         string    `json:"name_given"`
	NameFamily        string    `json:"name_family"`
	QualificationCode *string   `json:"qualification_code"`
	TelecomEmail      *string   `json:"telecom_email"`
	PasswordHash      *string   `json:"-"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"meta_created_at"`
	UpdatedAt         time.Time `json:"meta_updated_at"`
}

func (p *Practitioner) FullName() string {
	return "Dr/Dra. " + p.NameGiven + " " + p.NameFamily
}

// Response is the public view returned by the auth endpoints.
type Response struct {
	ID                uuid.UUID `json:"id"`
	IdentifierValue   string    `json:"identifier_value"`
	NameGiven         string    `json:"name_given"`
	NameFamily        string    `json:"name_family"`
	FullName          string    `json:"full_name"`
	QualificationCode *string   `json:"qualification_code"`
	TelecomEmail      *string   `json:"telecom_email"`
}

func NewResponse(p *Practitioner) *Response {
	return &Response{
		ID:                p.ID,
		IdentifierValue:   p.IdentifierValue,
		NameGiven:         p.NameGiven,
		NameFamily:        p.NameFamily,
		FullName:          p.FullName(),
		QualificationCode: p.QualificationCode,
		TelecomEmail:      p.TelecomEmail,
	}
}

// LoginRequest accepts both the OAuth2 password form and a JSON body.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	Practitioner *Response `json:"practitioner"`
}

// CreateRequest registers a practitioner from the command line.
type CreateRequest struct {
	IdentifierValue   string
	NameGiven         string
	NameFamily        string
	QualificationCode string
	Email             string
	Password          string
}
