package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/chartnotes/internal/htql"
	"github.com/ehr/chartnotes/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const patientCols = `id, identifier, family_name, given_name, birth_date, gender,
	address, city, state, postal_code, phone, email, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, identifier, family_name, given_name, birth_date, gender,
			address, city, state, postal_code, phone, email)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		p.ID, p.Identifier, p.FamilyName, p.GivenName, p.BirthDate, p.Gender,
		p.Address, p.City, p.State, p.PostalCode, p.Phone, p.Email,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapWriteErr("patient create", err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patient get: %w", err)
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET identifier=$2, family_name=$3, given_name=$4, birth_date=$5, gender=$6,
			address=$7, city=$8, state=$9, postal_code=$10, phone=$11, email=$12, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Identifier, p.FamilyName, p.GivenName, p.BirthDate, p.Gender,
		p.Address, p.City, p.State, p.PostalCode, p.Phone, p.Email,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return mapWriteErr("patient update", err)
}

// Delete removes the patient. Documents, conditions and assessment results
// cascade in the schema.
func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("patient delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return r.Filter(ctx, nil, limit, offset)
}

func (r *repoPG) Filter(ctx context.Context, pred htql.Predicate, limit, offset int) ([]*Patient, int, error) {
	q := db.NewSelectQuery("patient", patientCols)
	if pred != nil {
		clause, args := htql.Compile(pred, htql.KindPatient, q.Idx())
		q.Add(clause, args...)
	}
	q.OrderBy("family_name, given_name, id")
	return db.ListPage(ctx, r.conn(ctx), q, limit, offset, scanPatient)
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Identifier, &p.FamilyName, &p.GivenName, &p.BirthDate, &p.Gender,
		&p.Address, &p.City, &p.State, &p.PostalCode, &p.Phone, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func mapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateIdentifier
	}
	return fmt.Errorf("%s: %w", op, err)
}
