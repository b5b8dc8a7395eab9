package assessment

import (
	"time"

	"github.com/google/uuid"
)

// Result statuses. Completed and invalid are terminal.
const (
	StatusDraft     = "draft"
	StatusCompleted = "completed"
	StatusInvalid   = "invalid"
)

// Entry modes record where a result's responses came from.
const (
	EntryManual   = "manual"
	EntryDocument = "document"
)

// Submit actions.
const (
	ActionSave     = "save"
	ActionComplete = "complete"
)

const (
	QuestionScale          = "scale"
	QuestionMultipleChoice = "multiple_choice"
	QuestionText           = "text"
	QuestionNumber         = "number"
	QuestionBoolean        = "boolean"
)

// ScoreRange maps an inclusive total score interval to a severity label.
type ScoreRange struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Severity    string  `json:"severity"`
	Description string  `json:"description,omitempty"`
}

// Option is one selectable answer. Value is the token stored as the
// response value; Score is credited when a response matches it exactly.
type Option struct {
	Value string  `json:"value"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type Question struct {
	ID       uuid.UUID `db:"id" json:"id"`
	ToolID   uuid.UUID `db:"tool_id" json:"tool_id"`
	Order    int       `db:"question_order" json:"order"`
	Text     string    `db:"question_text" json:"question_text"`
	Type     string    `db:"question_type" json:"question_type"`
	Options  []Option  `db:"options" json:"options,omitempty"`
	Required bool      `db:"required" json:"required"`
	HelpText *string   `db:"help_text" json:"help_text,omitempty"`
}

// Tool is a versioned questionnaire such as COWS or PRAPARE.
type Tool struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	Name          string       `db:"name" json:"name"`
	Description   *string      `db:"description" json:"description,omitempty"`
	Version       string       `db:"version" json:"version"`
	ToolType      string       `db:"tool_type" json:"tool_type"`
	ScoringRanges []ScoreRange `db:"scoring_ranges" json:"scoring_ranges,omitempty"`
	Active        bool         `db:"active" json:"active"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	Questions     []*Question  `json:"questions,omitempty"`
}

// Result is one administration of a tool to a patient.
type Result struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	PatientID      uuid.UUID   `db:"patient_id" json:"patient_id"`
	ToolID         uuid.UUID   `db:"tool_id" json:"tool_id"`
	AssessorID     uuid.UUID   `db:"assessor_id" json:"assessor_id"`
	Status         string      `db:"status" json:"status"`
	EntryMode      string      `db:"entry_mode" json:"entry_mode"`
	DocumentID     *uuid.UUID  `db:"document_id" json:"document_id,omitempty"`
	TotalScore     *float64    `db:"total_score" json:"total_score"`
	Severity       *string     `db:"severity" json:"severity,omitempty"`
	Notes          *string     `db:"notes" json:"notes,omitempty"`
	InvalidReason  *string     `db:"invalid_reason" json:"invalid_reason,omitempty"`
	AssessmentDate time.Time   `db:"assessment_date" json:"assessment_date"`
	VersionID      int         `db:"version_id" json:"version_id"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
	Responses      []*Response `json:"responses,omitempty"`
}

type Response struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ResultID   uuid.UUID `db:"result_id" json:"result_id"`
	QuestionID uuid.UUID `db:"question_id" json:"question_id"`
	Value      string    `db:"response_value" json:"response_value"`
	Score      *float64  `db:"score" json:"score"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
