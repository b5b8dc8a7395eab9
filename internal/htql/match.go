package htql

import "strings"

// Record exposes the searchable values of a record and of the records
// related to it. Values returns every value of attr for the given kind, for
// example the content of each document belonging to a patient.
type Record interface {
	Values(kind Kind, attr string) []string
}

// Match evaluates p against rec. A nil predicate matches everything.
func Match(p Predicate, rec Record) bool {
	switch n := p.(type) {
	case nil:
		return true
	case Leaf:
		for _, v := range rec.Values(n.Kind, n.Attr) {
			if n.matches(v) {
				return true
			}
		}
		return false
	case And:
		return Match(n.Left, rec) && Match(n.Right, rec)
	case Or:
		return Match(n.Left, rec) || Match(n.Right, rec)
	case Not:
		return !Match(n.Operand, rec)
	}
	return false
}

func (l Leaf) matches(v string) bool {
	if l.Op == OpEquals {
		return strings.EqualFold(v, l.Value)
	}
	return strings.Contains(lower(v), lower(l.Value))
}

// Filter returns the records matching p, preserving order.
func Filter[T Record](p Predicate, records []T) []T {
	if p == nil {
		return records
	}
	var out []T
	for _, rec := range records {
		if Match(p, rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Fields is a map-backed Record keyed by "kind.attr".
type Fields map[string][]string

// Set appends values for kind.attr.
func (v Fields) Set(kind Kind, attr string, values ...string) Fields {
	key := string(kind) + "." + attr
	v[key] = append(v[key], values...)
	return v
}

// Values implements Record.
func (v Fields) Values(kind Kind, attr string) []string {
	return v[string(kind)+"."+attr]
}
