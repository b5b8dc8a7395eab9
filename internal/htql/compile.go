package htql

import (
	"fmt"
	"strings"
)

// table describes how a record kind is stored.
type table struct {
	name       string
	alias      string
	patientKey string // column linking the row to a patient
	columns    map[string]string
}

var tables = map[Kind]table{
	KindPatient: {
		name: "patient", alias: "pt", patientKey: "id",
		columns: map[string]string{
			"family":     "family_name",
			"given":      "given_name",
			"identifier": "identifier",
			"gender":     "gender",
			"city":       "city",
			"state":      "state",
		},
	},
	KindDocument: {
		name: "document", alias: "dc", patientKey: "patient_id",
		columns: map[string]string{
			"title":         "title",
			"content":       "content",
			"transcription": "transcription",
		},
	},
	KindCondition: {
		name: "condition", alias: "cn", patientKey: "patient_id",
		columns: map[string]string{
			"code":            "code",
			"clinical_status": "clinical_status",
			"severity":        "severity",
		},
	},
}

// Compile renders p as a SQL boolean expression over the anchor kind's
// table. Leaves on other kinds become EXISTS subqueries joined through the
// patient the rows belong to. Placeholders are numbered from startIdx and
// the matching arguments are returned in order.
//
// A nil predicate compiles to "TRUE". Leaves naming an unmapped kind or
// attribute compile to "FALSE".
func Compile(p Predicate, anchor Kind, startIdx int) (string, []any) {
	c := compiler{anchor: anchor, idx: startIdx}
	if p == nil {
		return "TRUE", nil
	}
	return c.expr(p), c.args
}

type compiler struct {
	anchor Kind
	idx    int
	args   []any
}

func (c *compiler) expr(p Predicate) string {
	switch n := p.(type) {
	case Leaf:
		return c.leaf(n)
	case And:
		return "(" + c.expr(n.Left) + " AND " + c.expr(n.Right) + ")"
	case Or:
		return "(" + c.expr(n.Left) + " OR " + c.expr(n.Right) + ")"
	case Not:
		return "NOT " + c.expr(n.Operand)
	}
	return "FALSE"
}

func (c *compiler) leaf(l Leaf) string {
	anchor, ok := tables[c.anchor]
	if !ok {
		return "FALSE"
	}
	target, ok := tables[l.Kind]
	if !ok {
		return "FALSE"
	}
	col, ok := target.columns[l.Attr]
	if !ok {
		return "FALSE"
	}

	if l.Kind == c.anchor {
		return c.compare(anchor.name+"."+col, l)
	}
	cond := c.compare(target.alias+"."+col, l)
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s %s WHERE %s.%s = %s.%s AND %s)",
		target.name, target.alias,
		target.alias, target.patientKey,
		anchor.name, anchor.patientKey,
		cond)
}

func (c *compiler) compare(col string, l Leaf) string {
	n := c.idx
	c.idx++
	if l.Op == OpEquals {
		c.args = append(c.args, l.Value)
		return fmt.Sprintf("lower(COALESCE(%s, '')) = lower($%d)", col, n)
	}
	c.args = append(c.args, escapeLike(l.Value))
	return fmt.Sprintf("COALESCE(%s, '') ILIKE '%%' || $%d || '%%'", col, n)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE wildcards so that values match literally.
func escapeLike(s string) string { return likeEscaper.Replace(s) }
