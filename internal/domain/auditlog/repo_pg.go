package auditlog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/chartnotes/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const entryCols = `id, user_id, action, resource_type, COALESCE(resource_id,''), COALESCE(details,''),
	before_value, after_value, COALESCE(ip_address,''), COALESCE(user_agent,''), timestamp`

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO audit_log (id, user_id, action, resource_type, resource_id, details,
			before_value, after_value, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7, $8, NULLIF($9,''), NULLIF($10,''))
		RETURNING timestamp`,
		e.ID, e.UserID, e.Action, e.ResourceType, e.ResourceID, e.Details,
		nullJSON(e.BeforeValue), nullJSON(e.AfterValue), e.IPAddress, e.UserAgent,
	).Scan(&e.Timestamp)
	if err != nil {
		return fmt.Errorf("audit log create: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *repoPG) Search(ctx context.Context, q string, limit, offset int) ([]*Entry, int, error) {
	query := db.NewSelectQuery("audit_log", entryCols)
	if q = strings.TrimSpace(q); q != "" {
		n := query.Idx()
		query.Add(fmt.Sprintf(
			"(action ILIKE '%%' || $%d || '%%' OR resource_type ILIKE '%%' || $%d || '%%' OR COALESCE(details,'') ILIKE '%%' || $%d || '%%')",
			n, n, n), likeEscaper.Replace(q))
	}
	query.OrderBy("timestamp DESC")
	return db.ListPage(ctx, r.conn(ctx), query, limit, offset, scanEntry)
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var before, after []byte
	if err := row.Scan(&e.ID, &e.UserID, &e.Action, &e.ResourceType, &e.ResourceID, &e.Details,
		&before, &after, &e.IPAddress, &e.UserAgent, &e.Timestamp); err != nil {
		return nil, err
	}
	e.BeforeValue = before
	e.AfterValue = after
	return &e, nil
}

// nullJSON stores an empty document as SQL NULL.
func nullJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
