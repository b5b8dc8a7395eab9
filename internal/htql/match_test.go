package htql

import "testing"

type chart struct {
	name string
	Fields
}

func newChart(name, family, given, identifier string) *chart {
	c := &chart{name: name, Fields: Fields{}}
	c.Set(KindPatient, "family", family)
	c.Set(KindPatient, "given", given)
	c.Set(KindPatient, "identifier", identifier)
	return c
}

func fixtures() []*chart {
	doe := newChart("doe", "Doe", "John", "MRN-1")
	doe.Set(KindPatient, "city", "Boston")
	doe.Set(KindCondition, "code", "E11.9")
	doe.Set(KindCondition, "clinical_status", "active")
	doe.Set(KindDocument, "content", "Follow up for diabetes", "Annual physical")

	smith := newChart("smith", "Smith", "Jane", "MRN-2")
	smith.Set(KindCondition, "code", "I10")
	smith.Set(KindCondition, "clinical_status", "resolved")
	smith.Set(KindDocument, "content", "Hypertension check")

	jane := newChart("jane", "Doe", "Jane", "MRN-3")
	return []*chart{doe, smith, jane}
}

func names(cs []*chart) []string {
	var out []string
	for _, c := range cs {
		out = append(out, c.name)
	}
	return out
}

func assertNames(t *testing.T, got []*chart, want ...string) {
	t.Helper()
	g := names(got)
	if len(g) != len(want) {
		t.Fatalf("got %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("got %v, want %v", g, want)
		}
	}
}

func TestMatch_NilPredicateMatchesEverything(t *testing.T) {
	all := fixtures()
	assertNames(t, Filter(Parse(""), all), "doe", "smith", "jane")
}

func TestMatch_ContainsIsCaseInsensitive(t *testing.T) {
	assertNames(t, Filter(Parse("patient.name:DOE"), fixtures()), "doe", "jane")
	assertNames(t, Filter(Parse("patient.name:jan"), fixtures()), "smith", "jane")
	assertNames(t, Filter(Parse("condition.code:e11"), fixtures()), "doe")
}

func TestMatch_IdentifierIsExact(t *testing.T) {
	assertNames(t, Filter(Parse("patient.id:mrn-1"), fixtures()), "doe")
	assertNames(t, Filter(Parse("patient.id:MRN"), fixtures()))
}

func TestMatch_RelatedRecords(t *testing.T) {
	assertNames(t, Filter(Parse("document:physical"), fixtures()), "doe")
	assertNames(t, Filter(Parse("condition.status:resolved"), fixtures()), "smith")
}

func TestMatch_FreeText(t *testing.T) {
	assertNames(t, Filter(Parse("diabetes"), fixtures()), "doe")
	assertNames(t, Filter(Parse("boston"), fixtures()), "doe")
	assertNames(t, Filter(Parse(`"Hypertension check"`), fixtures()), "smith")
}

func TestMatch_NotInvertsMatchSet(t *testing.T) {
	queries := []string{"patient.name:doe", "condition.code:I10", "diabetes", "patient.id:MRN-3"}
	for _, q := range queries {
		p := Parse(q)
		n := Parse("NOT " + q)
		for _, c := range fixtures() {
			if Match(p, c) == Match(n, c) {
				t.Errorf("%q: NOT did not invert match for %s", q, c.name)
			}
		}
	}
}

func TestMatch_LeftAssociativityChangesResult(t *testing.T) {
	a := "patient.name:Smith"
	b := "patient.name:Nobody"
	c := "condition.code:E11"
	p := Parse(a + " OR " + b + " AND " + c)

	smith := fixtures()[1]
	if Match(p, smith) {
		t.Error("(a OR b) AND c should not match smith")
	}
	rightGrouped := Or{Left: Parse(a), Right: And{Left: Parse(b), Right: Parse(c)}}
	if !Match(rightGrouped, smith) {
		t.Fatal("fixture does not separate the two groupings")
	}
	assertNames(t, Filter(p, fixtures()))
}

func TestMatch_Combinations(t *testing.T) {
	assertNames(t, Filter(Parse("patient.name:doe AND condition.code:E11"), fixtures()), "doe")
	assertNames(t, Filter(Parse("patient.name:doe AND NOT condition.code:E11"), fixtures()), "jane")
	assertNames(t, Filter(Parse("condition.code:I10 OR patient.id:MRN-3"), fixtures()), "smith", "jane")
}
