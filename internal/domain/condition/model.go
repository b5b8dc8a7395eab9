package condition

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/chartnotes/internal/htql"
)

var ErrNotFound = errors.New("condition not found")

const DefaultCodeSystem = "ICD-10"

var validClinicalStatuses = map[string]bool{
	"active": true, "recurrence": true, "relapse": true,
	"inactive": true, "remission": true, "resolved": true,
}

var validVerificationStatuses = map[string]bool{
	"unconfirmed": true, "provisional": true, "differential": true,
	"confirmed": true, "refuted": true, "entered-in-error": true,
}

var validSeverities = map[string]bool{
	"mild": true, "moderate": true, "severe": true,
}

// Condition maps to the condition table.
type Condition struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	RecorderID         *uuid.UUID `db:"recorder_id" json:"recorder_id,omitempty"`
	Code               string     `db:"code" json:"code"`
	CodeSystem         string     `db:"code_system" json:"code_system"`
	Description        string     `db:"description" json:"description"`
	ClinicalStatus     string     `db:"clinical_status" json:"clinical_status"`
	VerificationStatus *string    `db:"verification_status" json:"verification_status,omitempty"`
	Severity           *string    `db:"severity" json:"severity,omitempty"`
	OnsetDate          *time.Time `db:"onset_date" json:"onset_date,omitempty"`
	AbatementDate      *time.Time `db:"abatement_date" json:"abatement_date,omitempty"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Values exposes the condition's searchable attributes to htql.Match.
func (c *Condition) Values(kind htql.Kind, attr string) []string {
	if kind != htql.KindCondition {
		return nil
	}
	switch attr {
	case "code":
		return []string{c.Code}
	case "clinical_status":
		return []string{c.ClinicalStatus}
	case "severity":
		if c.Severity != nil {
			return []string{*c.Severity}
		}
	}
	return nil
}
