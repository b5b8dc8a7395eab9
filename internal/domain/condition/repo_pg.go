package condition

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/chartnotes/internal/htql"
	"github.com/ehr/chartnotes/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const conditionCols = `id, patient_id, recorder_id, code, code_system, description, clinical_status,
	verification_status, severity, onset_date, abatement_date, notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, c *Condition) error {
	c.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO condition (id, patient_id, recorder_id, code, code_system, description, clinical_status,
			verification_status, severity, onset_date, abatement_date, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		c.ID, c.PatientID, c.RecorderID, c.Code, c.CodeSystem, c.Description, c.ClinicalStatus,
		c.VerificationStatus, c.Severity, c.OnsetDate, c.AbatementDate, c.Notes,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("condition create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Condition, error) {
	c, err := scanCondition(r.conn(ctx).QueryRow(ctx, `SELECT `+conditionCols+` FROM condition WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("condition get: %w", err)
	}
	return c, nil
}

func (r *repoPG) Update(ctx context.Context, c *Condition) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE condition SET code=$2, code_system=$3, description=$4, clinical_status=$5,
			verification_status=$6, severity=$7, onset_date=$8, abatement_date=$9, notes=$10, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Code, c.CodeSystem, c.Description, c.ClinicalStatus,
		c.VerificationStatus, c.Severity, c.OnsetDate, c.AbatementDate, c.Notes,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("condition update: %w", err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM condition WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("condition delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Condition, int, error) {
	return r.Filter(ctx, nil, limit, offset)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Condition, int, error) {
	q := db.NewSelectQuery("condition", conditionCols)
	q.AddEq("patient_id", patientID)
	q.OrderBy("onset_date DESC NULLS LAST, created_at DESC")
	return db.ListPage(ctx, r.conn(ctx), q, limit, offset, scanCondition)
}

func (r *repoPG) Filter(ctx context.Context, pred htql.Predicate, limit, offset int) ([]*Condition, int, error) {
	q := db.NewSelectQuery("condition", conditionCols)
	if pred != nil {
		clause, args := htql.Compile(pred, htql.KindCondition, q.Idx())
		q.Add(clause, args...)
	}
	q.OrderBy("created_at DESC, id")
	return db.ListPage(ctx, r.conn(ctx), q, limit, offset, scanCondition)
}

func scanCondition(row pgx.Row) (*Condition, error) {
	var c Condition
	err := row.Scan(&c.ID, &c.PatientID, &c.RecorderID, &c.Code, &c.CodeSystem, &c.Description, &c.ClinicalStatus,
		&c.VerificationStatus, &c.Severity, &c.OnsetDate, &c.AbatementDate, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
