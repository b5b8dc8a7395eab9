package auditlog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry maps to the audit_log table.
type Entry struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	UserID       *uuid.UUID      `db:"user_id" json:"user_id,omitempty"`
	Action       string          `db:"action" json:"action"`
	ResourceType string          `db:"resource_type" json:"resource_type"`
	ResourceID   string          `db:"resource_id" json:"resource_id,omitempty"`
	Details      string          `db:"details" json:"details,omitempty"`
	BeforeValue  json.RawMessage `db:"before_value" json:"before_value,omitempty"`
	AfterValue   json.RawMessage `db:"after_value" json:"after_value,omitempty"`
	IPAddress    string          `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    string          `db:"user_agent" json:"user_agent,omitempty"`
	Timestamp    time.Time       `db:"timestamp" json:"timestamp"`
}

// Event is a domain-level audit record written by services, for example
// when an assessment is completed or a user is deleted. Before and After
// are marshalled to JSON.
type Event struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Details      string
	Before       interface{}
	After        interface{}
}
