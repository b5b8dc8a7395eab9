package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/chartnotes/internal/domain/condition"
	"github.com/ehr/chartnotes/internal/domain/document"
	"github.com/ehr/chartnotes/internal/domain/patient"
	"github.com/ehr/chartnotes/internal/htql"
	"github.com/ehr/chartnotes/pkg/pagination"
)

type fakePatients struct {
	items []*patient.Patient
	err   error
	calls int
}

func (f *fakePatients) Filter(_ context.Context, pred htql.Predicate, limit, offset int) ([]*patient.Patient, int, error) {
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	out := htql.Filter(pred, f.items)
	return out, len(out), nil
}

type fakeDocuments struct {
	items []*document.Document
	calls int
}

func (f *fakeDocuments) Filter(_ context.Context, pred htql.Predicate, limit, offset int) ([]*document.Document, int, error) {
	f.calls++
	out := htql.Filter(pred, f.items)
	return out, len(out), nil
}

type fakeConditions struct {
	items []*condition.Condition
	calls int
}

func (f *fakeConditions) Filter(_ context.Context, pred htql.Predicate, limit, offset int) ([]*condition.Condition, int, error) {
	f.calls++
	out := htql.Filter(pred, f.items)
	return out, len(out), nil
}

func strPtr(s string) *string { return &s }

type fixture struct {
	svc        *Service
	patients   *fakePatients
	documents  *fakeDocuments
	conditions *fakeConditions
}

func newFixture() *fixture {
	f := &fixture{
		patients: &fakePatients{items: []*patient.Patient{
			{ID: uuid.New(), Identifier: "MRN-1", FamilyName: "Doe", GivenName: "John", City: strPtr("Boston")},
			{ID: uuid.New(), Identifier: "MRN-2", FamilyName: "OBrien", GivenName: "Jane", City: strPtr("Denver")},
			{ID: uuid.New(), Identifier: "MRN-3", FamilyName: "Smith", GivenName: "Alice", City: strPtr("Boston")},
		}},
		documents: &fakeDocuments{items: []*document.Document{
			{ID: uuid.New(), Title: "Intake", Content: "Patient reports chest pain"},
			{ID: uuid.New(), Title: "Follow-up", Content: "Blood pressure stable"},
		}},
		conditions: &fakeConditions{items: []*condition.Condition{
			{ID: uuid.New(), Code: "E11.9", ClinicalStatus: "active"},
			{ID: uuid.New(), Code: "I10", ClinicalStatus: "resolved"},
		}},
	}
	f.svc = NewService(f.patients, f.documents, f.conditions, 500, zerolog.Nop())
	return f
}

func TestSearch_ByType(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		typ     string
		wantPat int
		wantDoc int
		wantCon int
		skipped []string
	}{
		{"patients by city", "patient.city:boston", TypePatients, 2, -1, -1, []string{"documents", "conditions"}},
		{"documents by content", "document.content:chest", TypeDocuments, -1, 1, -1, []string{"patients", "conditions"}},
		{"conditions by code", "condition.code:E11", TypeConditions, -1, -1, 1, []string{"patients", "documents"}},
		{"negated status", "NOT condition.status:resolved", TypeConditions, -1, -1, 1, nil},
		{"empty query returns everything", "", TypeAll, 3, 2, 2, nil},
		{"unknown field is no filter", "patient.shoe:9", TypePatients, 3, -1, -1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			res, err := f.svc.Search(context.Background(), tt.query, tt.typ, 20, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			check := func(kind string, page *pagination.Response, want int) {
				t.Helper()
				if want < 0 {
					return
				}
				if page == nil {
					t.Fatalf("%s: expected a page", kind)
				}
				if page.Total != want {
					t.Errorf("%s: expected %d, got %d", kind, want, page.Total)
				}
			}
			check("patients", res.Patients, tt.wantPat)
			check("documents", res.Documents, tt.wantDoc)
			check("conditions", res.Conditions, tt.wantCon)

			raw, _ := json.Marshal(res)
			for _, kind := range tt.skipped {
				if strings.Contains(string(raw), `"`+kind+`"`) {
					t.Errorf("%s should be omitted for type %s", kind, tt.typ)
				}
			}
		})
	}
}

func TestSearch_SanitizesQuery(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Search(context.Background(), `patient.name:o'brien;`, TypePatients, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Query != "patient.name:obrien" {
		t.Errorf("query = %q", res.Query)
	}
	if res.Patients.Total != 1 {
		t.Errorf("expected 1 patient, got %d", res.Patients.Total)
	}
}

func TestSearch_TruncatesLongQuery(t *testing.T) {
	f := newFixture()
	f.svc = NewService(f.patients, f.documents, f.conditions, 10, zerolog.Nop())
	res, err := f.svc.Search(context.Background(), strings.Repeat("a", 50), TypePatients, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Query) != 10 {
		t.Errorf("expected query truncated to 10 runes, got %q", res.Query)
	}
}

func TestSearch_Errors(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Search(context.Background(), "x", "labs", 20, 0); !errors.Is(err, ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
	if f.patients.calls != 0 {
		t.Error("invalid type should not reach the repositories")
	}

	boom := errors.New("db down")
	f.patients.err = boom
	if _, err := f.svc.Search(context.Background(), "x", TypeAll, 20, 0); !errors.Is(err, boom) {
		t.Errorf("expected wrapped repo error, got %v", err)
	}
}

func TestHandler_Search(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/search?q=Doe&type=patients", nil)
	rec := httptest.NewRecorder()
	if err := h.Search(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Type     string `json:"type"`
		Patients struct {
			Total int `json:"total"`
		} `json:"patients"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Type != TypePatients || body.Patients.Total != 1 {
		t.Errorf("body = %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/search?q=x&type=labs", nil)
	err := h.Search(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
