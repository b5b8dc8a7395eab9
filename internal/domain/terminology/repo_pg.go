package terminology

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/chartnotes/internal/platform/db"
)

type codeRepoPG struct{ pool *pgxpool.Pool }

func NewCodeRepoPG(pool *pgxpool.Pool) CodeRepository { return &codeRepoPG{pool: pool} }

func (r *codeRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns codes starting with prefix or whose display contains it,
// best matches first so the limit never drops an exact or code-prefix hit.
func (r *codeRepoPG) Search(ctx context.Context, prefix, system string, limit int) ([]*CodeEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	p := likeEscaper.Replace(prefix)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT code, code_system, display, COALESCE(category,''), created_at
		 FROM code_entry
		 WHERE (code ILIKE $1 || '%' OR display ILIKE '%' || $1 || '%')
		   AND ($2 = '' OR code_system = $2)
		 ORDER BY CASE
		            WHEN lower(code) = lower($4) THEN 0
		            WHEN code ILIKE $1 || '%' THEN 1
		            WHEN display ILIKE $1 || '%' THEN 2
		            ELSE 3
		          END, length(code), code
		 LIMIT $3`, p, system, limit, prefix)
	if err != nil {
		return nil, fmt.Errorf("code search: %w", err)
	}
	defer rows.Close()

	var results []*CodeEntry
	for rows.Next() {
		var e CodeEntry
		if err := rows.Scan(&e.Code, &e.CodeSystem, &e.Display, &e.Category, &e.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, &e)
	}
	return results, rows.Err()
}

func (r *codeRepoPG) Upsert(ctx context.Context, e *CodeEntry) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO code_entry (code, code_system, display, category)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 ON CONFLICT (code_system, code) DO UPDATE
		 SET display = EXCLUDED.display, category = EXCLUDED.category`,
		e.Code, e.CodeSystem, e.Display, e.Category)
	if err != nil {
		return fmt.Errorf("code upsert %s: %w", e.Code, err)
	}
	return nil
}
