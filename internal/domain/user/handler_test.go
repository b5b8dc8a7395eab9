package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ehr/chartnotes/internal/platform/auth"
)

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func expectHTTPStatus(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d", code, he.Code)
	}
}

func TestHandler_RegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register",
		`{"username":"drwho","email":"who@example.com","password":"tardis1"}`), rec)
	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("password hash must not be serialized")
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"username":"drwho","password":"tardis1"}`), rec)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected token")
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"username":"drwho","password":"nope"}`), httptest.NewRecorder())
	expectHTTPStatus(t, h.Login(c), http.StatusUnauthorized)
}

func TestHandler_RegisterDuplicate(t *testing.T) {
	svc, _, _ := newTestService()
	_, _ = svc.Register(context.Background(), RegisterRequest{Username: "dup", Email: "d1@example.com", Password: "secret1"})
	h := NewHandler(svc)
	e := echo.New()

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register",
		`{"username":"dup","email":"d2@example.com","password":"secret1"}`), httptest.NewRecorder())
	expectHTTPStatus(t, h.Register(c), http.StatusConflict)
}

func TestHandler_Me(t *testing.T) {
	svc, _, _ := newTestService()
	u, _ := svc.Register(context.Background(), RegisterRequest{Username: "me", Email: "me@example.com", Password: "secret1"})
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), u.ID.String(), u.Username, u.Role))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Me(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"username":"me"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandler_DeleteSelf(t *testing.T) {
	svc, _, _ := newTestService()
	admin, _ := svc.CreateAdmin(context.Background(), "root", "root@example.com", "secret1")
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodDelete, "/admin/users/"+admin.ID.String(), nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), admin.ID.String(), "root", auth.RoleAdmin))
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(admin.ID.String())
	expectHTTPStatus(t, h.Delete(c), http.StatusForbidden)
}

func TestHandler_GetInvalidID(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/admin/users/bad", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("bad")
	expectHTTPStatus(t, h.Get(c), http.StatusBadRequest)
}
