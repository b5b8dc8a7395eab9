package terminology

import (
	"fmt"
	"testing"
)

func codes(ss []Suggestion) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Code
	}
	return out
}

func TestRank_E1Tiers(t *testing.T) {
	candidates := []Suggestion{
		{Code: "A00", Description: "Stage E1 placeholder"},
		{Code: "Z99", Description: "E1 variant monitoring"},
		{Code: "E11", Description: "Type 2 diabetes mellitus"},
		{Code: "XE1", Description: "Unrelated"},
		{Code: "e1", Description: "Exact code"},
	}
	got := codes(Rank("E1", candidates))
	want := []string{"e1", "E11", "Z99", "XE1", "A00"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Rank(E1) = %v, want %v", got, want)
	}
}

func TestTier(t *testing.T) {
	tests := []struct {
		name   string
		s      Suggestion
		prefix string
		want   int
	}{
		{"exact code", Suggestion{Code: "I10"}, "i10", 0},
		{"code prefix", Suggestion{Code: "I11.0"}, "I11", 1},
		{"description prefix", Suggestion{Code: "J45", Description: "Asthma"}, "ast", 2},
		{"code contains", Suggestion{Code: "E11.21"}, "21", 3},
		{"description word", Suggestion{Code: "J45.0", Description: "Predominantly allergic asthma"}, "all", 3},
		{"short word prefix", Suggestion{Code: "J45.0", Description: "Predominantly allergic asthma"}, "al", 4},
		{"description contains", Suggestion{Code: "F41.1", Description: "Generalized anxiety disorder"}, "xiety", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tier(tt.s, tt.prefix); got != tt.want {
				t.Errorf("tier() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRank_TieBreaksByLengthThenCode(t *testing.T) {
	got := codes(Rank("E11", []Suggestion{
		{Code: "E11.3"}, {Code: "E11.21"}, {Code: "E11.1"}, {Code: "E11"},
	}))
	want := []string{"E11", "E11.1", "E11.3", "E11.21"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRank_DedupFirstWins(t *testing.T) {
	got := Rank("I10", []Suggestion{
		{Code: "I10", Description: "persisted"},
		{Code: "I10", Description: "static"},
	})
	if len(got) != 1 || got[0].Description != "persisted" {
		t.Errorf("got %+v", got)
	}
}

func TestRank_TruncatesToTen(t *testing.T) {
	var cs []Suggestion
	for i := 0; i < 15; i++ {
		cs = append(cs, Suggestion{Code: fmt.Sprintf("E%02d", i)})
	}
	if got := Rank("E", cs); len(got) != MaxSuggestions {
		t.Errorf("len = %d, want %d", len(got), MaxSuggestions)
	}
}

func TestCategoryOf(t *testing.T) {
	if got := CategoryOf("E11.21"); got != "E11" {
		t.Errorf("CategoryOf(E11.21) = %q", got)
	}
	if got := CategoryOf("I10"); got != "I10" {
		t.Errorf("CategoryOf(I10) = %q", got)
	}
}
