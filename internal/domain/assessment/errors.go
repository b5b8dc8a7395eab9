package assessment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotDraft is returned for any mutation of a completed or invalid result.
// ErrConflict means the result changed since it was read.
var (
	ErrNotFound         = errors.New("assessment result not found")
	ErrToolNotFound     = errors.New("assessment tool not found")
	ErrToolInactive     = errors.New("assessment tool is not active")
	ErrNotDraft         = errors.New("assessment result is not a draft")
	ErrConflict         = errors.New("assessment result was modified concurrently")
	ErrAlreadyInvalid   = errors.New("assessment result is already invalid")
	ErrUnknownQuestion  = errors.New("question does not belong to this tool")
	ErrInvalidAction    = errors.New("action must be save or complete")
	ErrInvalidEntryMode = errors.New("entry_mode must be manual or document")
	ErrDocumentMismatch = errors.New("document belongs to a different patient")
	ErrReasonRequired   = errors.New("reason is required")
	ErrAssessorRequired = errors.New("assessor is required")
)

// MissingQuestion identifies a required question left unanswered.
type MissingQuestion struct {
	ID    uuid.UUID `json:"id"`
	Order int       `json:"order"`
	Text  string    `json:"question_text"`
}

// ValidationError reports that completion was refused. The submitted
// responses are still saved and the result stays in draft.
type ValidationError struct {
	Missing []MissingQuestion `json:"missing"`
}

func (e *ValidationError) Error() string {
	orders := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		orders[i] = fmt.Sprintf("%d", m.Order)
	}
	return fmt.Sprintf("required questions unanswered: %s", strings.Join(orders, ", "))
}
