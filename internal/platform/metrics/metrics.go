package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chartnotes"

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	SearchQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "search_queries_total", Help: "HTQL searches by target type",
	}, []string{"type"})
	AssessmentTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "assessment_transitions_total", Help: "Assessment result state changes",
	}, []string{"status"})
	LLMRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "llm_requests_total", Help: "Outbound LLM calls",
	}, []string{"operation", "outcome"})
	SuggestionCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "suggestion_cache_total", Help: "Code suggestion cache lookups",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, DBPing, SearchQueries,
		AssessmentTransitions, LLMRequests, SuggestionCache)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// Middleware records request counts and latency labelled by route pattern.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
