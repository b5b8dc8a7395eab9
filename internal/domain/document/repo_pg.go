package document

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

const documentCols = `id, patient_id, author_id, title, document_type,
	COALESCE(content,''), COALESCE(transcription,''), audio_blob_id,
	COALESCE(meat_monitor,''), COALESCE(meat_evaluate,''), COALESCE(meat_assess,''), COALESCE(meat_treat,''),
	COALESCE(tamper_time,''), COALESCE(tamper_action,''), COALESCE(tamper_medical_necessity,''),
	COALESCE(tamper_plan,''), COALESCE(tamper_education,''), COALESCE(tamper_response,''),
	analyzed_at, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, d *Document) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO document (id, patient_id, author_id, title, document_type, content, transcription, audio_blob_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), NULLIF($7,''), $8)
		RETURNING created_at, updated_at`,
		d.ID, d.PatientID, d.AuthorID, d.Title, d.DocumentType, d.Content, d.Transcription, d.AudioBlobID,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("document create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := scanDocument(r.conn(ctx).QueryRow(ctx, `SELECT `+documentCols+` FROM document WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document get: %w", err)
	}
	return d, nil
}

func (r *repoPG) Update(ctx context.Context, d *Document) error {
	a := d.Analysis
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE document SET title=$2, document_type=$3, content=NULLIF($4,''), transcription=NULLIF($5,''),
			audio_blob_id=$6,
			meat_monitor=NULLIF($7,''), meat_evaluate=NULLIF($8,''), meat_assess=NULLIF($9,''), meat_treat=NULLIF($10,''),
			tamper_time=NULLIF($11,''), tamper_action=NULLIF($12,''), tamper_medical_necessity=NULLIF($13,''),
			tamper_plan=NULLIF($14,''), tamper_education=NULLIF($15,''), tamper_response=NULLIF($16,''),
			analyzed_at=$17, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, d.Title, d.DocumentType, d.Content, d.Transcription, d.AudioBlobID,
		a.MeatMonitor, a.MeatEvaluate, a.MeatAssess, a.MeatTreat,
		a.TamperTime, a.TamperAction, a.TamperMedicalNecessity,
		a.TamperPlan, a.TamperEducation, a.TamperResponse,
		d.AnalyzedAt,
	).Scan(&d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("document update: %w", err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM document WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("document delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	q := db.NewSelectQuery("document", documentCols)
	q.AddEq("author_id", authorID)
	q.OrderBy("updated_at DESC")
	return db.ListPage(ctx, r.conn(ctx), q, limit, offset, scanDocument)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	q := db.NewSelectQuery("document", documentCols)
	q.AddEq("patient_id", patientID)
	q.OrderBy("created_at DESC")
	return db.ListPage(ctx, r.conn(ctx), q, limit, offset, scanDocument)
}

func (r *repoPG) Filter(ctx context.Context, pred htql.Predicate, limit, offset int) ([]*Document, int, error) {
	q := db.NewSelectQuery("document", documentCols)
	if pred != nil {
		clause, args := htql.Compile(pred, htql.KindDocument, q.Idx())
		q.Add(clause, args...)
	}
	q.OrderBy("updated_at DESC, id")
	return db.ListPage(ctx, r.conn(ctx), q, limit, offset, scanDocument)
}

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	a := &d.Analysis
	err := row.Scan(&d.ID, &d.PatientID, &d.AuthorID, &d.Title, &d.DocumentType,
		&d.Content, &d.Transcription, &d.AudioBlobID,
		&a.MeatMonitor, &a.MeatEvaluate, &a.MeatAssess, &a.MeatTreat,
		&a.TamperTime, &a.TamperAction, &a.TamperMedicalNecessity,
		&a.TamperPlan, &a.TamperEducation, &a.TamperResponse,
		&d.AnalyzedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
