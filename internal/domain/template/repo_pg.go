package template

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultamed/consultamed/internal/platform/apperr"
	"github.com/consultamed/consultamed/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const templateCols = `id, practitioner_id, name, diagnosis_text, diagnosis_code, medications,
	instructions, is_favorite, sort_order, created_at, updated_at`

const visibleTo = `(practitioner_id = $1 OR practitioner_id IS NULL)`

func (r *repoPG) Create(ctx context.Context, t *Template) error {
	t.ID = uuid.New()
	meds, err := marshalMedications(t.Medications)
	if err != nil {
		return err
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatment_templates (id, practitioner_id, name, diagnosis_text, diagnosis_code,
			medications, instructions, is_favorite, sort_order)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		t.ID, t.PractitionerID, t.Name, t.DiagnosisText, t.DiagnosisCode,
		meds, t.Instructions, t.IsFavorite, t.SortOrder,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("template create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	return scanTemplate(r.conn(ctx).QueryRow(ctx,
		`SELECT `+templateCols+` FROM treatment_templates WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*Template, int, error) {
	where := visibleTo + ` AND ($2 = FALSE OR is_favorite)
		AND ($3::text = '' OR name ILIKE $4 ESCAPE '\' OR diagnosis_text ILIKE $4 ESCAPE '\')`
	args := []interface{}{f.PractitionerID, f.FavoritesOnly, f.Search, db.ContainsPattern(f.Search)}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM treatment_templates WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("template count: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+templateCols+` FROM treatment_templates WHERE `+where+`
		ORDER BY is_favorite DESC, name ASC LIMIT $5 OFFSET $6`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("template list: %w", err)
	}
	defer rows.Close()

	templates := []*Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		templates = append(templates, t)
	}
	return templates, total, rows.Err()
}

func (r *repoPG) MatchDiagnosis(ctx context.Context, practitionerID uuid.UUID, diagnosis string) (*Template, error) {
	return scanTemplate(r.conn(ctx).QueryRow(ctx, `SELECT `+templateCols+` FROM treatment_templates
		WHERE `+visibleTo+` AND diagnosis_text ILIKE $2 ESCAPE '\'
		ORDER BY is_favorite DESC, sort_order ASC, name ASC
		LIMIT 1`, practitionerID, db.ContainsPattern(diagnosis)))
}

func (r *repoPG) Update(ctx context.Context, t *Template) error {
	meds, err := marshalMedications(t.Medications)
	if err != nil {
		return err
	}
	err = r.conn(ctx).QueryRow(ctx, `
		UPDATE treatment_templates SET
			name=$2, diagnosis_text=$3, diagnosis_code=$4, medications=$5,
			instructions=$6, is_favorite=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		t.ID, t.Name, t.DiagnosisText, t.DiagnosisCode, meds, t.Instructions, t.IsFavorite,
	).Scan(&t.UpdatedAt)
	if db.IsNoRows(err) {
		return apperr.NotFound("Template")
	}
	if err != nil {
		return fmt.Errorf("template update: %w", err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("template delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Template")
	}
	return nil
}

func marshalMedications(meds []Medication) ([]byte, error) {
	if meds == nil {
		meds = []Medication{}
	}
	data, err := json.Marshal(meds)
	if err != nil {
		return nil, fmt.Errorf("marshal medications: %w", err)
	}
	return data, nil
}

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	var meds []byte
	err := row.Scan(&t.ID, &t.PractitionerID, &t.Name, &t.DiagnosisText, &t.DiagnosisCode, &meds,
		&t.Instructions, &t.IsFavorite, &t.SortOrder, &t.CreatedAt, &t.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Template")
	}
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	t.Medications = []Medication{}
	if len(meds) > 0 {
		if err := json.Unmarshal(meds, &t.Medications); err != nil {
			return nil, fmt.Errorf("unmarshal medications: %w", err)
		}
	}
	return &t, nil
}
