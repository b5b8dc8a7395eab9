package htql

import "strings"

// BuildFunc instantiates a predicate for a field value.
type BuildFunc func(value string) Predicate

// Binding maps one "kind.subfield" pair to its predicate builder.
type Binding struct {
	Kind     Kind
	Subfield string
	Build    BuildFunc
}

// Registry holds the searchable fields. Bindings are kept in registration
// order so that free-text expansion is deterministic.
type Registry struct {
	bindings []Binding
	defaults map[Kind]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defaults: make(map[Kind]string)}
}

// Register adds a binding. Subfield names are case-insensitive.
func (r *Registry) Register(kind Kind, subfield string, build BuildFunc) {
	r.bindings = append(r.bindings, Binding{
		Kind:     kind,
		Subfield: strings.ToLower(subfield),
		Build:    build,
	})
}

// SetDefault sets the subfield used for "kind:value" expressions.
func (r *Registry) SetDefault(kind Kind, subfield string) {
	r.defaults[kind] = strings.ToLower(subfield)
}

// Bindings returns a copy of the registered bindings.
func (r *Registry) Bindings() []Binding {
	out := make([]Binding, len(r.bindings))
	copy(out, r.bindings)
	return out
}

func (r *Registry) lookup(kind Kind, subfield string) (BuildFunc, bool) {
	if subfield == "" {
		subfield = r.defaults[kind]
	}
	for _, b := range r.bindings {
		if b.Kind == kind && b.Subfield == subfield {
			return b.Build, true
		}
	}
	return nil, false
}

// operand builds the predicate for a single term token. It returns nil when
// the term names an unknown field.
func (r *Registry) operand(text string) Predicate {
	fe, ok := parseFieldExpr(text)
	if !ok {
		return r.freeText(text)
	}
	build, ok := r.lookup(Kind(fe.Field), fe.Subfield)
	if !ok {
		return nil
	}
	return build(fe.Value)
}

// freeText ORs every registered builder instantiated with term.
func (r *Registry) freeText(term string) Predicate {
	preds := make([]Predicate, 0, len(r.bindings))
	for _, b := range r.bindings {
		preds = append(preds, b.Build(term))
	}
	return anyOf(preds...)
}

// Default is the registry used by the package-level Parse.
var Default = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(KindPatient, "name", func(v string) Predicate {
		return Or{Left: Contains(KindPatient, "family", v), Right: Contains(KindPatient, "given", v)}
	})
	r.Register(KindPatient, "id", func(v string) Predicate { return Equals(KindPatient, "identifier", v) })
	r.Register(KindPatient, "gender", func(v string) Predicate { return Contains(KindPatient, "gender", v) })
	r.Register(KindPatient, "city", func(v string) Predicate { return Contains(KindPatient, "city", v) })
	r.Register(KindPatient, "state", func(v string) Predicate { return Contains(KindPatient, "state", v) })

	r.Register(KindDocument, "title", func(v string) Predicate { return Contains(KindDocument, "title", v) })
	r.Register(KindDocument, "content", func(v string) Predicate { return Contains(KindDocument, "content", v) })
	r.Register(KindDocument, "transcription", func(v string) Predicate {
		return Contains(KindDocument, "transcription", v)
	})

	r.Register(KindCondition, "code", func(v string) Predicate { return Contains(KindCondition, "code", v) })
	r.Register(KindCondition, "status", func(v string) Predicate {
		return Contains(KindCondition, "clinical_status", v)
	})
	r.Register(KindCondition, "severity", func(v string) Predicate { return Contains(KindCondition, "severity", v) })

	r.SetDefault(KindPatient, "name")
	r.SetDefault(KindDocument, "content")
	r.SetDefault(KindCondition, "code")
	return r
}
