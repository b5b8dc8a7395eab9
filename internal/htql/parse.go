package htql

// Parse compiles query with the default registry. A nil result means the
// query had no usable operands and the caller should apply no filter.
func Parse(query string) Predicate {
	return Default.Parse(query)
}

// Parse folds the query tokens left to right into a single predicate.
//
// The fold keeps a pending operator (AND unless an OR/AND token set it) and
// a pending negation flag. Each operand is negated if the flag is set, then
// combined with the accumulator using the pending operator; both are reset
// to their defaults afterwards. Operator and NOT tokens that are not followed
// by an operand have no effect, and repeated NOT tokens do not cancel out.
// An operand naming an unknown field consumes the pending state without
// contributing to the result.
func (r *Registry) Parse(query string) Predicate {
	var acc Predicate
	op := TokenAnd
	negate := false

	for _, tok := range Tokenize(query) {
		switch tok.Kind {
		case TokenAnd, TokenOr:
			op = tok.Kind
			continue
		case TokenNot:
			negate = true
			continue
		}

		if p := r.operand(tok.Text); p != nil {
			if negate {
				p = Not{Operand: p}
			}
			switch {
			case acc == nil:
				acc = p
			case op == TokenOr:
				acc = Or{Left: acc, Right: p}
			default:
				acc = And{Left: acc, Right: p}
			}
		}
		op = TokenAnd
		negate = false
	}
	return acc
}
