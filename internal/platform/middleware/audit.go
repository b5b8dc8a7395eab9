package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/chartnotes/internal/platform/auth"
)

// AuditEntry describes one mutating API call.
type AuditEntry struct {
	UserID       string
	Action       string // create, update, delete
	ResourceType string
	ResourceID   string
	Method       string
	Path         string
	IPAddress    string
	UserAgent    string
	RequestID    string
	StatusCode   int
	Timestamp    time.Time
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(ctx context.Context, entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(ctx context.Context, entry AuditEntry) error {
	return f(ctx, entry)
}

// Audit records every successful mutation under /api/v1/. Reads are not
// recorded. A nil recorder only emits the structured log line.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			action := httpMethodToAction(req.Method)

			if action == "" || !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			if err != nil && status < 400 {
				status = http.StatusInternalServerError
			}
			if status >= 400 {
				return err
			}

			entry := AuditEntry{
				UserID:       auth.UserIDFromContext(req.Context()),
				Action:       action,
				Method:       req.Method,
				Path:         path,
				IPAddress:    c.RealIP(),
				UserAgent:    req.UserAgent(),
				StatusCode:   status,
				Timestamp:    time.Now().UTC(),
				ResourceType: extractResourceType(path),
				ResourceID:   extractResourceID(path),
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			if recorder != nil {
				ctx := context.WithoutCancel(req.Context())
				if recErr := recorder.RecordAccess(ctx, entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("action", entry.Action).
				Str("resource_type", entry.ResourceType).
				Str("resource_id", entry.ResourceID).
				Str("path", entry.Path).
				Int("status", entry.StatusCode).
				Msg("api mutation")

			return err
		}
	}
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return ""
	}
}

// extractResourceType returns the first segment after /api/v1/:
//
//	/api/v1/patients/123 -> patients
func extractResourceType(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if len(segments) > 0 && segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}

// extractResourceID returns the first UUID segment of the path, if any.
func extractResourceID(path string) string {
	for _, seg := range strings.Split(path, "/") {
		if _, err := uuid.Parse(seg); err == nil && len(seg) == 36 {
			return seg
		}
	}
	return ""
}
