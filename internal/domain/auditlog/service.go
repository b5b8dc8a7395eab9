package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/chartnotes/internal/platform/auth"
	"github.com/ehr/chartnotes/internal/platform/export"
	"github.com/ehr/chartnotes/internal/platform/middleware"
)

const (
	DefaultPageSize = 50
	// ExportLimit caps the number of rows written to a workbook.
	ExportLimit = 10000
)

// Recorder is implemented by Service and consumed by domain services that
// emit audit events.
type Recorder interface {
	RecordEvent(ctx context.Context, ev Event) error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Record(ctx context.Context, e *Entry) error {
	if e.Action == "" {
		return fmt.Errorf("action is required")
	}
	if e.ResourceType == "" {
		return fmt.Errorf("resource_type is required")
	}
	return s.repo.Create(ctx, e)
}

// RecordEvent stores a domain event. The acting user defaults to the
// authenticated user in ctx.
func (s *Service) RecordEvent(ctx context.Context, ev Event) error {
	userID := ev.UserID
	if userID == "" {
		userID = auth.UserIDFromContext(ctx)
	}
	e := &Entry{
		UserID:       parseUserID(userID),
		Action:       ev.Action,
		ResourceType: ev.ResourceType,
		ResourceID:   ev.ResourceID,
		Details:      ev.Details,
	}
	var err error
	if e.BeforeValue, err = marshalValue(ev.Before); err != nil {
		return fmt.Errorf("marshal before value: %w", err)
	}
	if e.AfterValue, err = marshalValue(ev.After); err != nil {
		return fmt.Errorf("marshal after value: %w", err)
	}
	return s.Record(ctx, e)
}

// RecordAccess adapts HTTP audit entries from middleware.Audit.
func (s *Service) RecordAccess(ctx context.Context, a middleware.AuditEntry) error {
	details := a.Method + " " + a.Path + " -> " + strconv.Itoa(a.StatusCode)
	if a.RequestID != "" {
		details += " (request " + a.RequestID + ")"
	}
	return s.Record(ctx, &Entry{
		UserID:       parseUserID(a.UserID),
		Action:       a.Action,
		ResourceType: a.ResourceType,
		ResourceID:   a.ResourceID,
		Details:      details,
		IPAddress:    a.IPAddress,
		UserAgent:    a.UserAgent,
	})
}

func (s *Service) Search(ctx context.Context, q string, limit, offset int) ([]*Entry, int, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return s.repo.Search(ctx, q, limit, offset)
}

var exportHeader = []string{"Timestamp", "User ID", "Action", "Resource Type", "Resource ID", "Details", "IP Address", "User Agent"}

// Export renders the entries matching q as an xlsx workbook. The caller
// must Close the workbook.
func (s *Service) Export(ctx context.Context, q string) (*export.Workbook, error) {
	entries, _, err := s.repo.Search(ctx, q, ExportLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("export audit log: %w", err)
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		user := ""
		if e.UserID != nil {
			user = e.UserID.String()
		}
		rows = append(rows, []string{
			e.Timestamp.UTC().Format(time.RFC3339), user, e.Action, e.ResourceType,
			e.ResourceID, e.Details, e.IPAddress, e.UserAgent,
		})
	}
	return export.NewWorkbook([]export.SheetSpec{{Title: "Audit Log", Header: exportHeader, Rows: rows}})
}

// ExportFileName returns the attachment name for an export taken now.
func (s *Service) ExportFileName() string {
	return "audit_log_" + s.now().UTC().Format("20060102_150405") + ".xlsx"
}

func parseUserID(s string) *uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func marshalValue(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
