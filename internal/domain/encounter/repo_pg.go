package encounter

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

const encCols = `id, subject_id, participant_id, status, class_code, period_start, period_end,
	reason_text, subjective_text, objective_text, assessment_text, plan_text,
	recommendations_text, note, meta_created_at, meta_updated_at`

const condCols = `id, subject_id, encounter_id, code_text, code_coding_code, code_coding_system,
	clinical_status, recorded_date`

const medCols = `id, subject_id, encounter_id, requester_id, status, intent, medication_text,
	dosage_text, duration_value, duration_unit, authored_on`

func (r *repoPG) Create(ctx context.Context, enc *Encounter) error {
	enc.ID = uuid.New()
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		err := r.conn(ctx).QueryRow(ctx, `
			INSERT INTO encounters (
				id, subject_id, participant_id, status, class_code, period_start, period_end,
				reason_text, subjective_text, objective_text, assessment_text, plan_text,
				recommendations_text, note
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			RETURNING meta_created_at, meta_updated_at`,
			enc.ID, enc.SubjectID, enc.ParticipantID, enc.Status, enc.ClassCode, enc.PeriodStart, enc.PeriodEnd,
			enc.ReasonText, enc.SubjectiveText, enc.ObjectiveText, enc.AssessmentText, enc.PlanText,
			enc.RecommendationsText, enc.Note,
		).Scan(&enc.CreatedAt, &enc.UpdatedAt)
		if err != nil {
			return fmt.Errorf("encounter create: %w", err)
		}
		return r.insertChildren(ctx, enc)
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	enc, err := scanEnc(r.conn(ctx).QueryRow(ctx, `SELECT `+encCols+` FROM encounters WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, []*Encounter{enc}); err != nil {
		return nil, err
	}
	return enc, nil
}

func (r *repoPG) ListBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM encounters WHERE subject_id = $1`, subjectID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("encounter count: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+encCols+` FROM encounters WHERE subject_id = $1
		ORDER BY period_start DESC LIMIT $2 OFFSET $3`, subjectID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("encounter list: %w", err)
	}
	defer rows.Close()

	encounters := []*Encounter{}
	for rows.Next() {
		enc, err := scanEnc(rows)
		if err != nil {
			return nil, 0, err
		}
		encounters = append(encounters, enc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("encounter list: %w", err)
	}
	if err := r.loadChildren(ctx, encounters); err != nil {
		return nil, 0, err
	}
	return encounters, total, nil
}

func (r *repoPG) Update(ctx context.Context, enc *Encounter) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		err := r.conn(ctx).QueryRow(ctx, `
			UPDATE encounters SET
				status=$2, period_start=$3, period_end=$4, reason_text=$5,
				subjective_text=$6, objective_text=$7, assessment_text=$8, plan_text=$9,
				recommendations_text=$10, note=$11, meta_updated_at=NOW()
			WHERE id = $1
			RETURNING meta_updated_at`,
			enc.ID, enc.Status, enc.PeriodStart, enc.PeriodEnd, enc.ReasonText,
			enc.SubjectiveText, enc.ObjectiveText, enc.AssessmentText, enc.PlanText,
			enc.RecommendationsText, enc.Note,
		).Scan(&enc.UpdatedAt)
		if db.IsNoRows(err) {
			return apperr.NotFound("Consulta")
		}
		if err != nil {
			return fmt.Errorf("encounter update: %w", err)
		}

		if err := r.deleteChildren(ctx, enc.ID); err != nil {
			return err
		}
		return r.insertChildren(ctx, enc)
	})
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		if err := r.deleteChildren(ctx, id); err != nil {
			return err
		}
		tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM encounters WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("encounter delete: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("Consulta")
		}
		return nil
	})
}

// -- children --

func (r *repoPG) insertChildren(ctx context.Context, enc *Encounter) error {
	for _, c := range enc.Conditions {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.SubjectID, c.EncounterID = enc.SubjectID, enc.ID
		err := r.conn(ctx).QueryRow(ctx, `
			INSERT INTO conditions (id, subject_id, encounter_id, code_text, code_coding_code,
				code_coding_system, clinical_status)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING recorded_date`,
			c.ID, c.SubjectID, c.EncounterID, c.CodeText, c.CodeCodingCode, c.CodeCodingSystem, c.ClinicalStatus,
		).Scan(&c.RecordedDate)
		if err != nil {
			return fmt.Errorf("condition create: %w", err)
		}
	}

	for _, m := range enc.Medications {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.SubjectID, m.EncounterID = enc.SubjectID, enc.ID
		err := r.conn(ctx).QueryRow(ctx, `
			INSERT INTO medication_requests (id, subject_id, encounter_id, requester_id, status, intent,
				medication_text, dosage_text, duration_value, duration_unit)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING authored_on`,
			m.ID, m.SubjectID, m.EncounterID, m.RequesterID, m.Status, m.Intent,
			m.MedicationText, m.DosageText, m.DurationValue, m.DurationUnit,
		).Scan(&m.AuthoredOn)
		if err != nil {
			return fmt.Errorf("medication create: %w", err)
		}
	}
	return nil
}

func (r *repoPG) deleteChildren(ctx context.Context, encounterID uuid.UUID) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM conditions WHERE encounter_id = $1`, encounterID); err != nil {
		return fmt.Errorf("condition delete: %w", err)
	}
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM medication_requests WHERE encounter_id = $1`, encounterID); err != nil {
		return fmt.Errorf("medication delete: %w", err)
	}
	return nil
}

// loadChildren fills Conditions and Medications for every encounter with one
// query per child table.
func (r *repoPG) loadChildren(ctx context.Context, encounters []*Encounter) error {
	if len(encounters) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Encounter, len(encounters))
	ids := make([]uuid.UUID, 0, len(encounters))
	for _, enc := range encounters {
		enc.Conditions = []*Condition{}
		enc.Medications = []*MedicationRequest{}
		byID[enc.ID] = enc
		ids = append(ids, enc.ID)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+condCols+` FROM conditions
		WHERE encounter_id = ANY($1) ORDER BY recorded_date, id`, ids)
	if err != nil {
		return fmt.Errorf("condition list: %w", err)
	}
	for rows.Next() {
		var c Condition
		if err := rows.Scan(&c.ID, &c.SubjectID, &c.EncounterID, &c.CodeText, &c.CodeCodingCode,
			&c.CodeCodingSystem, &c.ClinicalStatus, &c.RecordedDate); err != nil {
			rows.Close()
			return fmt.Errorf("scan condition: %w", err)
		}
		byID[c.EncounterID].Conditions = append(byID[c.EncounterID].Conditions, &c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("condition list: %w", err)
	}

	rows, err = r.conn(ctx).Query(ctx, `SELECT `+medCols+` FROM medication_requests
		WHERE encounter_id = ANY($1) ORDER BY authored_on, id`, ids)
	if err != nil {
		return fmt.Errorf("medication list: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m MedicationRequest
		if err := rows.Scan(&m.ID, &m.SubjectID, &m.EncounterID, &m.RequesterID, &m.Status, &m.Intent,
			&m.MedicationText, &m.DosageText, &m.DurationValue, &m.DurationUnit, &m.AuthoredOn); err != nil {
			return fmt.Errorf("scan medication: %w", err)
		}
		byID[m.EncounterID].Medications = append(byID[m.EncounterID].Medications, &m)
	}
	return rows.Err()
}

func scanEnc(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(&e.ID, &e.SubjectID, &e.ParticipantID, &e.Status, &e.ClassCode, &e.PeriodStart, &e.PeriodEnd,
		&e.ReasonText, &e.SubjectiveText, &e.ObjectiveText, &e.AssessmentText, &e.PlanText,
		&e.RecommendationsText, &e.Note, &e.CreatedAt, &e.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Consulta")
	}
	if err != nil {
		return nil, fmt.Errorf("scan encounter: %w", err)
	}
	return &e, nil
}
