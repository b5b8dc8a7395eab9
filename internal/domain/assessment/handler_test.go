package assessment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/ehr/chartnotes/internal/platform/auth"
	"github.com/ehr/chartnotes/internal/platform/export"
)

func newContext(e *echo.Echo, ctx context.Context, method, body, id string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	return c, rec
}

func assertHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d", code, he.Code)
	}
}

func TestHandler_CreateUsesCaller(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	ctx := auth.WithIdentity(context.Background(), f.assessor.String(), "dr", auth.RoleProvider)

	body := `{"patient_id":"` + f.patientID.String() + `","tool_id":"` + f.tool.ID.String() + `"}`
	c, rec := newContext(e, ctx, http.MethodPost, body, "")
	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var res Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AssessorID != f.assessor || res.Status != StatusDraft {
		t.Errorf("result = %+v", res)
	}

	c, _ = newContext(e, context.Background(), http.MethodPost, body, "")
	assertHTTPError(t, h.Create(c), http.StatusUnauthorized)
}

func TestHandler_SubmitComplete(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	res := f.draft(t)

	body := `{"answers":{"` + f.q1.ID.String() + `":"1"},"action":"complete"}`
	c, rec := newContext(e, context.Background(), http.MethodPost, body, res.ID.String())
	if err := h.Submit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got Result
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusCompleted || got.TotalScore == nil || *got.TotalScore != 1 {
		t.Errorf("result = %+v", got)
	}
}

func TestHandler_SubmitMissingRequired(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	res := f.draft(t)

	c, rec := newContext(e, context.Background(), http.MethodPost, `{"answers":{},"action":"complete"}`, res.ID.String())
	if err := h.Submit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body struct {
		Missing []MissingQuestion `json:"missing"`
		Result  Result            `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body.Missing) != 1 || body.Missing[0].ID != f.q1.ID {
		t.Errorf("missing = %+v", body.Missing)
	}
	if body.Result.Status != StatusDraft {
		t.Errorf("status = %s", body.Result.Status)
	}
}

func TestHandler_ErrorCodes(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	done := f.draft(t)
	if _, err := f.svc.Submit(context.Background(), done.ID, map[uuid.UUID]string{f.q1.ID: "0"}, ActionComplete); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	draft := f.draft(t)

	tests := []struct {
		name    string
		handler func(echo.Context) error
		body    string
		id      string
		want    int
	}{
		{"bad id", h.Get, "", "abc", http.StatusBadRequest},
		{"missing result", h.Get, "", uuid.New().String(), http.StatusNotFound},
		{"missing tool", h.GetTool, "", uuid.New().String(), http.StatusNotFound},
		{"completed result", h.Submit, `{"answers":{},"action":"save"}`, done.ID.String(), http.StatusConflict},
		{"bad action", h.Submit, `{"action":"publish"}`, draft.ID.String(), http.StatusBadRequest},
		{"unknown question", h.Submit, `{"answers":{"` + uuid.New().String() + `":"1"}}`, draft.ID.String(), http.StatusBadRequest},
		{"attach without document", h.AttachDocument, `{}`, draft.ID.String(), http.StatusBadRequest},
		{"attach unknown document", h.AttachDocument, `{"document_id":"` + uuid.New().String() + `"}`, draft.ID.String(), http.StatusNotFound},
		{"invalidate without reason", h.Invalidate, `{"reason":""}`, draft.ID.String(), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := http.MethodGet
			if tt.body != "" {
				method = http.MethodPost
			}
			c, _ := newContext(e, context.Background(), method, tt.body, tt.id)
			assertHTTPError(t, tt.handler(c), tt.want)
		})
	}
}

func TestHandler_DetachAndInvalidate(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	res := f.draft(t)

	c, rec := newContext(e, context.Background(), http.MethodDelete, "", res.ID.String())
	if err := h.DetachDocument(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"entry_mode":"manual"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	c, rec = newContext(e, context.Background(), http.MethodPost, `{"reason":"duplicate entry"}`, res.ID.String())
	if err := h.Invalidate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"invalid"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandler_ListTools(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()

	c, rec := newContext(e, context.Background(), http.MethodGet, "", "")
	if err := h.ListTools(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var tools []Tool
	if err := json.Unmarshal(rec.Body.Bytes(), &tools); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "Example" {
		t.Errorf("tools = %+v", tools)
	}
}

func TestHandler_Export(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	res := f.draft(t)
	answers := map[uuid.UUID]string{f.q1.ID: "1", f.q2.ID: "follow up"}
	if _, err := f.svc.Submit(context.Background(), res.ID, answers, ActionComplete); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, rec := newContext(e, context.Background(), http.MethodGet, "", res.ID.String())
	if err := h.Export(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != export.ContentType {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, ".xlsx") {
		t.Errorf("content disposition = %q", cd)
	}

	wb, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer wb.Close()
	rows, err := wb.GetRows("Responses")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 responses, got %d rows", len(rows))
	}
	if rows[1][0] != "1" || rows[1][2] != "1" || rows[1][3] != "1" {
		t.Errorf("first response row = %v", rows[1])
	}
	summary, err := wb.GetCellValue("Summary", "B9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "1" {
		t.Errorf("total score cell = %q", summary)
	}
}
