package htql

import (
	"fmt"
	"strings"
)

// Kind is a searchable record kind.
type Kind string

const (
	KindPatient   Kind = "patient"
	KindDocument  Kind = "document"
	KindCondition Kind = "condition"
)

// Op is a leaf comparison. All comparisons are case-insensitive.
type Op int

const (
	OpContains Op = iota
	OpEquals
)

// Predicate is a node of a compiled query. The concrete types are Leaf, And,
// Or and Not.
type Predicate interface {
	fmt.Stringer
	isPredicate()
}

// Leaf compares one attribute of one record kind against a value.
type Leaf struct {
	Kind  Kind
	Attr  string
	Op    Op
	Value string
}

// And matches when both sides match.
type And struct{ Left, Right Predicate }

// Or matches when either side matches.
type Or struct{ Left, Right Predicate }

// Not inverts its operand.
type Not struct{ Operand Predicate }

func (Leaf) isPredicate() {}
func (And) isPredicate()  {}
func (Or) isPredicate()   {}
func (Not) isPredicate()  {}

func (l Leaf) String() string {
	sym := "~"
	if l.Op == OpEquals {
		sym = "="
	}
	return fmt.Sprintf("%s.%s%s%q", l.Kind, l.Attr, sym, l.Value)
}

func (a And) String() string { return "(" + a.Left.String() + " AND " + a.Right.String() + ")" }
func (o Or) String() string  { return "(" + o.Left.String() + " OR " + o.Right.String() + ")" }
func (n Not) String() string { return "NOT " + n.Operand.String() }

// anyOf folds predicates into a left-nested Or chain.
func anyOf(preds ...Predicate) Predicate {
	var acc Predicate
	for _, p := range preds {
		if p == nil {
			continue
		}
		if acc == nil {
			acc = p
			continue
		}
		acc = Or{Left: acc, Right: p}
	}
	return acc
}

// Contains builds a case-insensitive substring leaf.
func Contains(kind Kind, attr, value string) Predicate {
	return Leaf{Kind: kind, Attr: attr, Op: OpContains, Value: value}
}

// Equals builds a case-insensitive equality leaf.
func Equals(kind Kind, attr, value string) Predicate {
	return Leaf{Kind: kind, Attr: attr, Op: OpEquals, Value: value}
}

// Leaves returns every leaf of p in left-to-right order.
func Leaves(p Predicate) []Leaf {
	var out []Leaf
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch n := p.(type) {
		case Leaf:
			out = append(out, n)
		case And:
			walk(n.Left)
			walk(n.Right)
		case Or:
			walk(n.Left)
			walk(n.Right)
		case Not:
			walk(n.Operand)
		}
	}
	if p != nil {
		walk(p)
	}
	return out
}

// Kinds reports which record kinds p refers to.
func Kinds(p Predicate) map[Kind]bool {
	kinds := make(map[Kind]bool)
	for _, l := range Leaves(p) {
		kinds[l.Kind] = true
	}
	return kinds
}

func lower(s string) string { return strings.ToLower(s) }
