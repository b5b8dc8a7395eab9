package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/chartnotes/internal/domain/auditlog"
	"github.com/ehr/chartnotes/internal/domain/patient"
	"github.com/ehr/chartnotes/internal/platform/db"
	"github.com/ehr/chartnotes/internal/platform/metrics"
)

const resourceType = "assessment_result"

type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// DocumentSource returns the owning patient and narrative of a document.
// *document.Service satisfies it.
type DocumentSource interface {
	DocumentText(ctx context.Context, id uuid.UUID) (uuid.UUID, string, error)
}

type Service struct {
	tools     ToolRepository
	results   ResultRepository
	tx        db.Transactor
	patients  PatientLookup
	documents DocumentSource
	extractor Extractor
	audit     auditlog.Recorder
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(tools ToolRepository, results ResultRepository, tx db.Transactor, patients PatientLookup,
	documents DocumentSource, extractor Extractor, audit auditlog.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		tools:     tools,
		results:   results,
		tx:        tx,
		patients:  patients,
		documents: documents,
		extractor: extractor,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) ListTools(ctx context.Context) ([]*Tool, error) {
	return s.tools.List(ctx, true)
}

func (s *Service) GetTool(ctx context.Context, id uuid.UUID) (*Tool, error) {
	return s.tools.GetByID(ctx, id)
}

// CreateResult starts a draft for the patient with empty score fields.
func (s *Service) CreateResult(ctx context.Context, patientID, toolID, assessorID uuid.UUID, mode string) (*Result, error) {
	if mode == "" {
		mode = EntryManual
	}
	if mode != EntryManual && mode != EntryDocument {
		return nil, ErrInvalidEntryMode
	}
	if assessorID == uuid.Nil {
		return nil, ErrAssessorRequired
	}
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}
	tool, err := s.tools.GetByID(ctx, toolID)
	if err != nil {
		return nil, err
	}
	if !tool.Active {
		return nil, ErrToolInactive
	}

	res := &Result{
		PatientID:      patientID,
		ToolID:         toolID,
		AssessorID:     assessorID,
		Status:         StatusDraft,
		EntryMode:      mode,
		AssessmentDate: s.now().UTC(),
	}
	if err := s.results.Create(ctx, res); err != nil {
		return nil, err
	}
	metrics.AssessmentTransitions.WithLabelValues(StatusDraft).Inc()
	return res, nil
}

// loadDraft reads the result and its tool, refusing anything but a draft.
func (s *Service) loadDraft(ctx context.Context, id uuid.UUID) (*Result, *Tool, error) {
	res, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if res.Status != StatusDraft {
		return nil, nil, ErrNotDraft
	}
	tool, err := s.tools.GetByID(ctx, res.ToolID)
	if err != nil {
		return nil, nil, err
	}
	return res, tool, nil
}

// Submit replaces the draft's responses with answers. With ActionComplete
// the result is completed once every required question is answered; when
// some are missing the responses are still saved, the result stays a draft
// and a *ValidationError is returned together with the saved result.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, answers map[uuid.UUID]string, action string) (*Result, error) {
	if action == "" {
		action = ActionSave
	}
	if action != ActionSave && action != ActionComplete {
		return nil, ErrInvalidAction
	}

	var (
		out  *Result
		verr *ValidationError
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		res, tool, err := s.loadDraft(ctx, id)
		if err != nil {
			return err
		}
		known := make(map[uuid.UUID]bool, len(tool.Questions))
		for _, q := range tool.Questions {
			known[q.ID] = true
		}
		for qid := range answers {
			if !known[qid] {
				return fmt.Errorf("%w: %s", ErrUnknownQuestion, qid)
			}
		}

		responses := buildResponses(res.ID, tool.Questions, answers)
		if err := s.results.ReplaceResponses(ctx, res.ID, responses); err != nil {
			return err
		}
		res.TotalScore = nil
		res.Severity = nil

		if action == ActionComplete {
			if missing := MissingRequired(tool.Questions, responses); len(missing) > 0 {
				verr = &ValidationError{Missing: missing}
			} else {
				res.Status = StatusCompleted
				total := ComputeTotal(responses)
				res.TotalScore = &total
				res.Severity = tool.SeverityFor(total)
			}
		}
		if err := s.results.Update(ctx, res); err != nil {
			return err
		}
		res.Responses = responses
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Status == StatusCompleted {
		metrics.AssessmentTransitions.WithLabelValues(StatusCompleted).Inc()
		s.record(ctx, auditlog.Event{
			Action:       "complete",
			ResourceType: resourceType,
			ResourceID:   out.ID.String(),
			After:        map[string]interface{}{"total_score": out.TotalScore, "severity": out.Severity},
		})
	}
	if verr != nil {
		return out, verr
	}
	return out, nil
}

// AttachDocument fills a draft from a document. Extraction runs before the
// transaction; if the result changes meanwhile the write fails with
// ErrConflict. Extraction failures yield zero responses.
func (s *Service) AttachDocument(ctx context.Context, id, documentID uuid.UUID) (*Result, error) {
	res, tool, err := s.loadDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	patientID, text, err := s.documents.DocumentText(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if patientID != res.PatientID {
		return nil, ErrDocumentMismatch
	}

	answers := s.extract(ctx, text, tool.Questions)
	responses := buildResponses(res.ID, tool.Questions, answers)

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.results.ReplaceResponses(ctx, res.ID, responses); err != nil {
			return err
		}
		res.EntryMode = EntryDocument
		res.DocumentID = &documentID
		res.TotalScore = nil
		res.Severity = nil
		return s.results.Update(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	res.Responses = responses
	s.logger.Info().Str("result_id", id.String()).Str("document_id", documentID.String()).
		Int("responses", len(responses)).Msg("assessment populated from document")
	return res, nil
}

func (s *Service) extract(ctx context.Context, text string, questions []*Question) map[uuid.UUID]string {
	if s.extractor == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	answers, err := s.extractor.Extract(ctx, text, questions)
	if err != nil {
		s.logger.Warn().Err(err).Msg("assessment extraction failed, continuing with no responses")
		return nil
	}
	return answers
}

// DetachDocument resets a document-derived draft to manual entry and removes
// every response.
func (s *Service) DetachDocument(ctx context.Context, id uuid.UUID) (*Result, error) {
	var out *Result
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		res, err := s.results.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if res.Status != StatusDraft {
			return ErrNotDraft
		}
		if err := s.results.DeleteResponses(ctx, res.ID); err != nil {
			return err
		}
		res.EntryMode = EntryManual
		res.DocumentID = nil
		res.TotalScore = nil
		res.Severity = nil
		if err := s.results.Update(ctx, res); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate marks a draft or completed result invalid.
func (s *Service) Invalidate(ctx context.Context, id uuid.UUID, reason string) (*Result, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	res, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status == StatusInvalid {
		return nil, ErrAlreadyInvalid
	}
	before := res.Status
	res.Status = StatusInvalid
	res.InvalidReason = &reason
	if err := s.results.Update(ctx, res); err != nil {
		return nil, err
	}

	metrics.AssessmentTransitions.WithLabelValues(StatusInvalid).Inc()
	s.record(ctx, auditlog.Event{
		Action:       "invalidate",
		ResourceType: resourceType,
		ResourceID:   res.ID.String(),
		Details:      reason,
		Before:       map[string]string{"status": before},
		After:        map[string]string{"status": StatusInvalid},
	})
	return res, nil
}

// GetResult returns the result with its responses. A missing total is
// recomputed from the responses and cached.
func (s *Service) GetResult(ctx context.Context, id uuid.UUID) (*Result, error) {
	res, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	responses, err := s.results.Responses(ctx, id)
	if err != nil {
		return nil, err
	}
	res.Responses = responses

	if res.TotalScore == nil && (len(responses) > 0 || res.Status == StatusCompleted) {
		total := ComputeTotal(responses)
		if err := s.results.CacheTotal(ctx, id, total); err != nil {
			s.logger.Warn().Err(err).Str("result_id", id.String()).Msg("failed to cache total score")
		}
		res.TotalScore = &total
	}
	return res, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Result, int, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.results.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) record(ctx context.Context, ev auditlog.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).Str("action", ev.Action).Str("resource_id", ev.ResourceID).Msg("failed to record audit event")
	}
}

// IsValidation reports whether err is a *ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
