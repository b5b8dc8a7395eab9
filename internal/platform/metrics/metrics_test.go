package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_CountsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/v1/patients/:id", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/api/v1/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/v1/patients/:id", "200"))
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/patients/abc", nil))
	}
	after := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/v1/patients/:id", "200"))
	if after-before != 2 {
		t.Errorf("expected 2 requests counted, got %v", after-before)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/missing", nil))
	if got := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/v1/missing", "404")); got < 1 {
		t.Errorf("expected 404 to be counted, got %v", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	SearchQueries.WithLabelValues("patients").Inc()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "chartnotes_search_queries_total") {
		t.Error("expected search counter in exposition output")
	}
}
