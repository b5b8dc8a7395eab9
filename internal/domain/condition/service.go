package condition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/chartnotes/internal/domain/patient"
	"github.com/ehr/chartnotes/internal/htql"
	"github.com/ehr/chartnotes/internal/platform/auth"
)

const dateLayout = "2006-01-02"

// PatientLookup resolves the patient a condition belongs to.
type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// Input is the create/update payload. PatientID is ignored on update.
type Input struct {
	PatientID          uuid.UUID `json:"patient_id"`
	Code               string    `json:"code"`
	CodeSystem         string    `json:"code_system"`
	Description        string    `json:"description"`
	ClinicalStatus     string    `json:"clinical_status"`
	VerificationStatus *string   `json:"verification_status"`
	Severity           *string   `json:"severity"`
	OnsetDate          *string   `json:"onset_date"`
	AbatementDate      *string   `json:"abatement_date"`
	Notes              *string   `json:"notes"`
}

func parseDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, strings.TrimSpace(*s))
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD", field)
	}
	return &d, nil
}

func normalizeEnum(field string, s *string, valid map[string]bool) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v := strings.ToLower(strings.TrimSpace(*s))
	if v == "" {
		return nil, nil
	}
	if !valid[v] {
		return nil, fmt.Errorf("invalid %s: %s", field, *s)
	}
	return &v, nil
}

func (in Input) apply(c *Condition) error {
	c.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	if c.Code == "" {
		return fmt.Errorf("code is required")
	}
	c.Description = strings.TrimSpace(in.Description)
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}
	c.CodeSystem = strings.TrimSpace(in.CodeSystem)
	if c.CodeSystem == "" {
		c.CodeSystem = DefaultCodeSystem
	}
	c.ClinicalStatus = strings.ToLower(strings.TrimSpace(in.ClinicalStatus))
	if c.ClinicalStatus == "" {
		c.ClinicalStatus = "active"
	}
	if !validClinicalStatuses[c.ClinicalStatus] {
		return fmt.Errorf("invalid clinical_status: %s", in.ClinicalStatus)
	}

	var err error
	if c.VerificationStatus, err = normalizeEnum("verification_status", in.VerificationStatus, validVerificationStatuses); err != nil {
		return err
	}
	if c.Severity, err = normalizeEnum("severity", in.Severity, validSeverities); err != nil {
		return err
	}
	if c.OnsetDate, err = parseDate("onset_date", in.OnsetDate); err != nil {
		return err
	}
	if c.AbatementDate, err = parseDate("abatement_date", in.AbatementDate); err != nil {
		return err
	}
	if c.OnsetDate != nil && c.AbatementDate != nil && c.AbatementDate.Before(*c.OnsetDate) {
		return fmt.Errorf("abatement_date cannot precede onset_date")
	}
	c.Notes = in.Notes
	return nil
}

type Service struct {
	repo     Repository
	patients PatientLookup
}

func NewService(repo Repository, patients PatientLookup) *Service {
	return &Service{repo: repo, patients: patients}
}

func (s *Service) Create(ctx context.Context, in Input) (*Condition, error) {
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if _, err := s.patients.Get(ctx, in.PatientID); err != nil {
		return nil, err
	}
	c := &Condition{PatientID: in.PatientID}
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if uid, err := uuid.Parse(auth.UserIDFromContext(ctx)); err == nil {
		c.RecorderID = &uid
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Condition, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Condition, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(c); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Condition, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Condition, int, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Filter(ctx context.Context, pred htql.Predicate, limit, offset int) ([]*Condition, int, error) {
	return s.repo.Filter(ctx, pred, limit, offset)
}
