package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/chartnotes/internal/platform/db"
)

// -- tools --

type toolRepoPG struct{ pool *pgxpool.Pool }

func NewToolRepoPG(pool *pgxpool.Pool) ToolRepository { return &toolRepoPG{pool: pool} }

func (r *toolRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const toolCols = `id, name, description, version, tool_type, scoring_ranges, active, created_at`

const questionCols = `id, tool_id, question_order, question_text, question_type, options, required, help_text`

func (r *toolRepoPG) List(ctx context.Context, activeOnly bool) ([]*Tool, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+toolCols+` FROM assessment_tool
		WHERE ($1 = FALSE OR active)
		ORDER BY name, version`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("tool list: %w", err)
	}
	defer rows.Close()

	var out []*Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("tool scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *toolRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Tool, error) {
	t, err := scanTool(r.conn(ctx).QueryRow(ctx, `SELECT `+toolCols+` FROM assessment_tool WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrToolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tool get: %w", err)
	}
	if err := r.loadQuestions(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *toolRepoPG) FindByNameVersion(ctx context.Context, name, version string) (*Tool, error) {
	t, err := scanTool(r.conn(ctx).QueryRow(ctx,
		`SELECT `+toolCols+` FROM assessment_tool WHERE name = $1 AND version = $2`, name, version))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrToolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tool find: %w", err)
	}
	return t, nil
}

func (r *toolRepoPG) loadQuestions(ctx context.Context, t *Tool) error {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+questionCols+` FROM assessment_question WHERE tool_id = $1 ORDER BY question_order`, t.ID)
	if err != nil {
		return fmt.Errorf("question list: %w", err)
	}
	defer rows.Close()

	t.Questions = nil
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.ToolID, &q.Order, &q.Text, &q.Type, &q.Options, &q.Required, &q.HelpText); err != nil {
			return fmt.Errorf("question scan: %w", err)
		}
		t.Questions = append(t.Questions, &q)
	}
	return rows.Err()
}

func (r *toolRepoPG) Create(ctx context.Context, t *Tool) error {
	t.ID = uuid.New()
	c := r.conn(ctx)
	err := c.QueryRow(ctx, `
		INSERT INTO assessment_tool (id, name, description, version, tool_type, scoring_ranges, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		t.ID, t.Name, t.Description, t.Version, t.ToolType, t.ScoringRanges, t.Active,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("tool create: %w", err)
	}

	for _, q := range t.Questions {
		q.ID = uuid.New()
		q.ToolID = t.ID
		var opts interface{}
		if len(q.Options) > 0 {
			opts = q.Options
		}
		_, err := c.Exec(ctx, `
			INSERT INTO assessment_question (id, tool_id, question_order, question_text, question_type, options, required, help_text)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			q.ID, q.ToolID, q.Order, q.Text, q.Type, opts, q.Required, q.HelpText)
		if err != nil {
			return fmt.Errorf("question create (order %d): %w", q.Order, err)
		}
	}
	return nil
}

func scanTool(row pgx.Row) (*Tool, error) {
	var t Tool
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Version, &t.ToolType, &t.ScoringRanges, &t.Active, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// -- results --

type resultRepoPG struct{ pool *pgxpool.Pool }

func NewResultRepoPG(pool *pgxpool.Pool) ResultRepository { return &resultRepoPG{pool: pool} }

func (r *resultRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const resultCols = `id, patient_id, tool_id, assessor_id, status, entry_mode, document_id,
	total_score, severity, notes, invalid_reason, assessment_date, version_id, created_at, updated_at`

func (r *resultRepoPG) Create(ctx context.Context, res *Result) error {
	res.ID = uuid.New()
	res.VersionID = 1
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO assessment_result (id, patient_id, tool_id, assessor_id, status, entry_mode, document_id, notes, assessment_date, version_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		res.ID, res.PatientID, res.ToolID, res.AssessorID, res.Status, res.EntryMode, res.DocumentID,
		res.Notes, res.AssessmentDate, res.VersionID,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("result create: %w", err)
	}
	return nil
}

func (r *resultRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Result, error) {
	res, err := scanResult(r.conn(ctx).QueryRow(ctx, `SELECT `+resultCols+` FROM assessment_result WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("result get: %w", err)
	}
	return res, nil
}

func (r *resultRepoPG) Update(ctx context.Context, res *Result) error {
	c := r.conn(ctx)
	err := c.QueryRow(ctx, `
		UPDATE assessment_result SET status=$3, entry_mode=$4, document_id=$5, total_score=$6, severity=$7,
			notes=$8, invalid_reason=$9, version_id = version_id + 1, updated_at = NOW()
		WHERE id = $1 AND version_id = $2
		RETURNING version_id, updated_at`,
		res.ID, res.VersionID, res.Status, res.EntryMode, res.DocumentID, res.TotalScore, res.Severity,
		res.Notes, res.InvalidReason,
	).Scan(&res.VersionID, &res.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := c.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM assessment_result WHERE id = $1)`, res.ID).Scan(&exists); err != nil {
			return fmt.Errorf("result update: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("result update: %w", err)
	}
	return nil
}

func (r *resultRepoPG) CacheTotal(ctx context.Context, id uuid.UUID, total float64) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE assessment_result SET total_score = $2 WHERE id = $1 AND total_score IS NULL`, id, total)
	if err != nil {
		return fmt.Errorf("result cache total: %w", err)
	}
	return nil
}

func (r *resultRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Result, int, error) {
	q := db.NewSelectQuery("assessment_result", resultCols)
	q.AddEq("patient_id", patientID)
	q.OrderBy("assessment_date DESC, id")
	return db.ListPage(ctx, r.conn(ctx), q, limit, offset, scanResult)
}

func (r *resultRepoPG) Responses(ctx context.Context, resultID uuid.UUID) ([]*Response, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT rs.id, rs.result_id, rs.question_id, COALESCE(rs.response_value,''), rs.score, rs.notes, rs.created_at
		FROM assessment_response rs
		JOIN assessment_question q ON q.id = rs.question_id
		WHERE rs.result_id = $1
		ORDER BY q.question_order`, resultID)
	if err != nil {
		return nil, fmt.Errorf("response list: %w", err)
	}
	defer rows.Close()

	var out []*Response
	for rows.Next() {
		var rs Response
		if err := rows.Scan(&rs.ID, &rs.ResultID, &rs.QuestionID, &rs.Value, &rs.Score, &rs.Notes, &rs.CreatedAt); err != nil {
			return nil, fmt.Errorf("response scan: %w", err)
		}
		out = append(out, &rs)
	}
	return out, rows.Err()
}

func (r *resultRepoPG) ReplaceResponses(ctx context.Context, resultID uuid.UUID, rs []*Response) error {
	if err := r.DeleteResponses(ctx, resultID); err != nil {
		return err
	}
	if len(rs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, resp := range rs {
		if resp.ID == uuid.Nil {
			resp.ID = uuid.New()
		}
		resp.ResultID = resultID
		batch.Queue(`
			INSERT INTO assessment_response (id, result_id, question_id, response_value, score, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at`,
			resp.ID, resp.ResultID, resp.QuestionID, resp.Value, resp.Score, resp.Notes,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&resp.CreatedAt)
		})
	}
	if err := r.conn(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("response insert: %w", err)
	}
	return nil
}

func (r *resultRepoPG) DeleteResponses(ctx context.Context, resultID uuid.UUID) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM assessment_response WHERE result_id = $1`, resultID); err != nil {
		return fmt.Errorf("response delete: %w", err)
	}
	return nil
}

func scanResult(row pgx.Row) (*Result, error) {
	var res Result
	err := row.Scan(&res.ID, &res.PatientID, &res.ToolID, &res.AssessorID, &res.Status, &res.EntryMode,
		&res.DocumentID, &res.TotalScore, &res.Severity, &res.Notes, &res.InvalidReason,
		&res.AssessmentDate, &res.VersionID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
