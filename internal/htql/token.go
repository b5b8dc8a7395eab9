package htql

import (
	"regexp"
	"strings"
)

// TokenKind identifies a lexical token class.
type TokenKind int

const (
	TokenTerm TokenKind = iota // Operand: field expression or bare term
	TokenAnd
	TokenOr
	TokenNot
)

func (k TokenKind) String() string {
	switch k {
	case TokenAnd:
		return "AND"
	case TokenOr:
		return "OR"
	case TokenNot:
		return "NOT"
	default:
		return "TERM"
	}
}

// Token is a single lexical unit of a query. Text has its double quotes
// removed.
type Token struct {
	Kind TokenKind
	Text string
}

// tokenPattern matches runs of non-space characters in which double-quoted
// phrases are atomic. The keyword alternatives are kept for parity with the
// documented grammar; the first alternative already matches them.
var tokenPattern = regexp.MustCompile(`(?:[^\s"]+|"[^"]*")+|AND|OR|NOT`)

// Tokenize splits a query into tokens in source order. AND, OR and NOT are
// keywords only when they appear unquoted and in upper case.
func Tokenize(query string) []Token {
	raw := tokenPattern.FindAllString(query, -1)
	tokens := make([]Token, 0, len(raw))
	for _, r := range raw {
		switch r {
		case "AND":
			tokens = append(tokens, Token{Kind: TokenAnd, Text: r})
		case "OR":
			tokens = append(tokens, Token{Kind: TokenOr, Text: r})
		case "NOT":
			tokens = append(tokens, Token{Kind: TokenNot, Text: r})
		default:
			tokens = append(tokens, Token{Kind: TokenTerm, Text: strings.ReplaceAll(r, `"`, "")})
		}
	}
	return tokens
}

// fieldExpr is a parsed "field[.subfield]:value" operand.
type fieldExpr struct {
	Field    string
	Subfield string
	Value    string
}

// parseFieldExpr splits an operand on its first colon. ok is false for bare
// terms.
func parseFieldExpr(text string) (fieldExpr, bool) {
	name, value, found := strings.Cut(text, ":")
	if !found {
		return fieldExpr{}, false
	}
	field, sub, _ := strings.Cut(name, ".")
	return fieldExpr{
		Field:    strings.ToLower(strings.TrimSpace(field)),
		Subfield: strings.ToLower(strings.TrimSpace(sub)),
		Value:    strings.Trim(value, `"`),
	}, true
}
