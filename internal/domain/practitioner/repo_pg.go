package practitioner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultamed/consultamed/internal/platform/apperr"
	"github.com/consultamed/consultamed/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const practCols = `id, identifier_value, identifier_system, name_given, name_family,
	qualification_code, telecom_email, password_hash, active, meta_created_at, meta_updated_at`

func (r *repoPG) scanPract(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	err := row.Scan(&p.ID, &p.IdentifierValue, &p.IdentifierSystem, &p.NameGiven, &p.NameFamily,
		&p.QualificationCode, &p.TelecomEmail, &p.PasswordHash, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Profesional")
	}
	if err != nil {
		return nil, fmt.Errorf("scan practitioner: %w", err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Practitioner) error {
	p.ID = uuid.New()
	if p.IdentifierSystem == "" {
		p.IdentifierSystem = IdentifierSystem
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO practitioners (id, identifier_value, identifier_system, name_given, name_family,
			qualification_code, telecom_email, password_hash, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING meta_created_at, meta_updated_at`,
		p.ID, p.IdentifierValue, p.IdentifierSystem, p.NameGiven, p.NameFamily,
		p.QualificationCode, p.TelecomEmail, p.PasswordHash, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	switch {
	case db.IsUniqueViolation(err, "practitioners_identifier_value_key"):
		return &apperr.DuplicateError{Resource: "Profesional", Key: "identifier_value", Value: p.IdentifierValue,
			Message: fmt.Sprintf("Ya existe un profesional con número de colegiado %s", p.IdentifierValue)}
	case db.IsUniqueViolation(err, "idx_practitioners_email"):
		return &apperr.DuplicateError{Resource: "Profesional", Key: "telecom_email",
			Message: "Ya existe un profesional con ese email"}
	case err != nil:
		return fmt.Errorf("practitioner create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	return r.scanPract(r.conn(ctx).QueryRow(ctx, `SELECT `+practCols+` FROM practitioners WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Practitioner, error) {
	return r.scanPract(r.conn(ctx).QueryRow(ctx,
		`SELECT `+practCols+` FROM practitioners WHERE lower(telecom_email) = lower($1)`, email))
}
