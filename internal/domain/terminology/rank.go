package terminology

import (
	"sort"
	"strings"
)

// MaxSuggestions caps the ranked result.
const MaxSuggestions = 10

// candidateMatches reports whether a code belongs in the candidate set for
// prefix: the code starts with it or the description contains it.
func candidateMatches(s Suggestion, prefix string) bool {
	p := strings.ToLower(prefix)
	return strings.HasPrefix(strings.ToLower(s.Code), p) ||
		strings.Contains(strings.ToLower(s.Description), p)
}

// tier scores how well s matches prefix. Lower is better.
func tier(s Suggestion, prefix string) int {
	p := strings.ToLower(prefix)
	code := strings.ToLower(s.Code)
	desc := strings.ToLower(s.Description)

	switch {
	case code == p:
		return 0
	case strings.HasPrefix(code, p):
		return 1
	case strings.HasPrefix(desc, p):
		return 2
	case strings.Contains(code, p):
		return 3
	case len(p) >= 3 && anyWordHasPrefix(desc, p):
		return 3
	}
	return 4
}

func anyWordHasPrefix(text, prefix string) bool {
	for _, w := range strings.Fields(text) {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}

// Rank orders candidates by tier, then shorter code, then code, and keeps
// the first MaxSuggestions. Candidates are deduplicated by code with the
// first occurrence winning, so callers list preferred sources first.
func Rank(prefix string, candidates []Suggestion) []Suggestion {
	seen := make(map[string]bool, len(candidates))
	type ranked struct {
		Suggestion
		tier int
	}
	var items []ranked
	for _, c := range candidates {
		key := strings.ToUpper(c.Code)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, ranked{Suggestion: c, tier: tier(c, prefix)})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if len(a.Code) != len(b.Code) {
			return len(a.Code) < len(b.Code)
		}
		return a.Code < b.Code
	})

	if len(items) > MaxSuggestions {
		items = items[:MaxSuggestions]
	}
	out := make([]Suggestion, len(items))
	for i, it := range items {
		out[i] = it.Suggestion
	}
	return out
}
