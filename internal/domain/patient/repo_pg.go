package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultamed/consultamed/internal/platform/apperr"
	"github.com/consultamed/consultamed/internal/platform/db"
	"github.com/consultamed/consultamed/internal/platform/phi"
	"github.com/consultamed/consultamed/pkg/civil"
)

const documentConstraint = "patients_identifier_value_key"

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct {
	pool *pgxpool.Pool
	phi  *phi.Service
}

// NewRepo returns the Postgres repository. Phone and email are encrypted
// at rest when enc is enabled; pass nil to store them in clear.
func NewRepo(pool *pgxpool.Pool, enc *phi.Service) Repository {
	return &repoPG{pool: pool, phi: enc}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, identifier_value, identifier_system, identifier_type, name_given, name_family,
	birth_date, gender, telecom_phone, telecom_email, active, meta_created_at, meta_updated_at`

const allergyCols = `id, patient_id, code_text, type, category, criticality, clinical_status, recorded_date`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.IdentifierSystem == "" {
		p.IdentifierSystem = IdentifierSystem
	}
	phone, email, err := r.sealContact(p)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}

	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (
			id, identifier_value, identifier_system, identifier_type, name_given, name_family,
			birth_date, gender, telecom_phone, telecom_email, active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING meta_created_at, meta_updated_at`,
		p.ID, p.IdentifierValue, p.IdentifierSystem, p.IdentifierType, p.NameGiven, p.NameFamily,
		p.BirthDate.Time(), p.Gender, phone, email, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return insertError(err, p.IdentifierValue)
}

// insertError maps a failed patient insert. A concurrent insert of the same
// document passes the service pre-check and is caught here by the unique
// index.
func insertError(err error, document string) error {
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, documentConstraint) {
		return duplicateDocument(document)
	}
	return fmt.Errorf("patient create: %w", err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if p.Allergies, err = r.ListAllergies(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) GetByDocument(ctx context.Context, document string) (*Patient, error) {
	p, err := r.scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE identifier_value = $1`, document))
	if err != nil {
		return nil, err
	}
	if p.Allergies, err = r.ListAllergies(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	phone, email, err := r.sealContact(p)
	if err != nil {
		return fmt.Errorf("patient update: %w", err)
	}

	err = r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET
			name_given=$2, name_family=$3, birth_date=$4, gender=$5,
			telecom_phone=$6, telecom_email=$7, active=$8, meta_updated_at=NOW()
		WHERE id = $1
		RETURNING meta_updated_at`,
		p.ID, p.NameGiven, p.NameFamily, p.BirthDate.Time(), p.Gender,
		phone, email, p.Active,
	).Scan(&p.UpdatedAt)
	if db.IsNoRows(err) {
		return apperr.NotFound("Paciente")
	}
	if err != nil {
		return fmt.Errorf("patient update: %w", err)
	}
	return nil
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET active = FALSE, meta_updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("patient deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Paciente")
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	where := `active = TRUE AND ($1::text = '' OR name_given ILIKE $2 ESCAPE '\'
		OR name_family ILIKE $2 ESCAPE '\' OR identifier_value ILIKE $2 ESCAPE '\')`
	pattern := db.ContainsPattern(query)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE `+where, query, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("patient count: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients WHERE `+where+`
		ORDER BY name_family, name_given LIMIT $3 OFFSET $4`, query, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("patient search: %w", err)
	}
	defer rows.Close()

	var patients []*Patient
	byID := make(map[uuid.UUID]*Patient)
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		p.Allergies = []*Allergy{}
		patients = append(patients, p)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("patient search: %w", err)
	}
	if len(patients) == 0 {
		return patients, total, nil
	}

	ids := make([]uuid.UUID, 0, len(patients))
	for _, p := range patients {
		ids = append(ids, p.ID)
	}
	allergyRows, err := r.conn(ctx).Query(ctx, `SELECT `+allergyCols+` FROM allergy_intolerances
		WHERE patient_id = ANY($1) ORDER BY recorded_date`, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("patient search allergies: %w", err)
	}
	defer allergyRows.Close()
	for allergyRows.Next() {
		a, err := scanAllergy(allergyRows)
		if err != nil {
			return nil, 0, err
		}
		if p, ok := byID[a.PatientID]; ok {
			p.Allergies = append(p.Allergies, a)
		}
	}
	if err := allergyRows.Err(); err != nil {
		return nil, 0, fmt.Errorf("patient search allergies: %w", err)
	}
	return patients, total, nil
}

// -- Allergies --

func (r *repoPG) AddAllergy(ctx context.Context, a *Allergy) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO allergy_intolerances (id, patient_id, code_text, type, category, criticality, clinical_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING recorded_date`,
		a.ID, a.PatientID, a.CodeText, a.Type, a.Category, a.Criticality, a.ClinicalStatus,
	).Scan(&a.RecordedDate)
	if err != nil {
		return fmt.Errorf("allergy create: %w", err)
	}
	return nil
}

func (r *repoPG) ListAllergies(ctx context.Context, patientID uuid.UUID) ([]*Allergy, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+allergyCols+` FROM allergy_intolerances
		WHERE patient_id = $1 ORDER BY recorded_date`, patientID)
	if err != nil {
		return nil, fmt.Errorf("allergy list: %w", err)
	}
	defer rows.Close()

	allergies := []*Allergy{}
	for rows.Next() {
		a, err := scanAllergy(rows)
		if err != nil {
			return nil, err
		}
		allergies = append(allergies, a)
	}
	return allergies, rows.Err()
}

func (r *repoPG) RemoveAllergy(ctx context.Context, patientID, allergyID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM allergy_intolerances WHERE id = $1 AND patient_id = $2`, allergyID, patientID)
	if err != nil {
		return fmt.Errorf("allergy delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Alergia")
	}
	return nil
}

// -- scanning and PHI --

func (r *repoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var (
		p     Patient
		birth time.Time
	)
	err := row.Scan(&p.ID, &p.IdentifierValue, &p.IdentifierSystem, &p.IdentifierType,
		&p.NameGiven, &p.NameFamily, &birth, &p.Gender, &p.TelecomPhone, &p.TelecomEmail,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Paciente")
	}
	if err != nil {
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	p.BirthDate = civil.Of(birth)

	if p.TelecomPhone, err = r.phi.DecryptField(p.TelecomPhone); err != nil {
		return nil, err
	}
	if p.TelecomEmail, err = r.phi.DecryptField(p.TelecomEmail); err != nil {
		return nil, err
	}
	return &p, nil
}

// sealContact returns the phone and email as they are written to storage.
// The patient itself keeps the clear values.
func (r *repoPG) sealContact(p *Patient) (*string, *string, error) {
	phone, err := r.phi.EncryptField(p.TelecomPhone)
	if err != nil {
		return nil, nil, err
	}
	email, err := r.phi.EncryptField(p.TelecomEmail)
	if err != nil {
		return nil, nil, err
	}
	return phone, email, nil
}

func scanAllergy(row pgx.Row) (*Allergy, error) {
	var a Allergy
	err := row.Scan(&a.ID, &a.PatientID, &a.CodeText, &a.Type, &a.Category, &a.Criticality,
		&a.ClinicalStatus, &a.RecordedDate)
	if err != nil {
		return nil, fmt.Errorf("scan allergy: %w", err)
	}
	return &a, nil
}

func duplicateDocument(document string) error {
	return &apperr.DuplicateError{
		Resource: "Paciente",
		Key:      "identifier_value",
		Value:    document,
		Message:  fmt.Sprintf("Ya existe un paciente con DNI %s", document),
	}
}
