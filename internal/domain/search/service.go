// Package search runs HTQL queries across patients, documents and
// conditions.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/chartnotes/internal/domain/condition"
	"github.com/ehr/chartnotes/internal/domain/document"
	"github.com/ehr/chartnotes/internal/domain/patient"
	"github.com/ehr/chartnotes/internal/htql"
	"github.com/ehr/chartnotes/internal/platform/metrics"
	"github.com/ehr/chartnotes/internal/platform/middleware"
	"github.com/ehr/chartnotes/pkg/pagination"
)

const (
	TypeAll        = "all"
	TypePatients   = "patients"
	TypeDocuments  = "documents"
	TypeConditions = "conditions"
)

var ErrInvalidType = errors.New("type must be one of all, patients, documents, conditions")

type PatientFilter interface {
	Filter(ctx context.Context, pred htql.Predicate, limit, offset int) ([]*patient.Patient, int, error)
}

type DocumentFilter interface {
	Filter(ctx context.Context, pred htql.Predicate, limit, offset int) ([]*document.Document, int, error)
}

type ConditionFilter interface {
	Filter(ctx context.Context, pred htql.Predicate, limit, offset int) ([]*condition.Condition, int, error)
}

// Results holds one page per searched record kind. Kinds outside the
// requested type are omitted.
type Results struct {
	Query      string               `json:"query"`
	Type       string               `json:"type"`
	Patients   *pagination.Response `json:"patients,omitempty"`
	Documents  *pagination.Response `json:"documents,omitempty"`
	Conditions *pagination.Response `json:"conditions,omitempty"`
}

type Service struct {
	patients   PatientFilter
	documents  DocumentFilter
	conditions ConditionFilter
	maxLen     int
	logger     zerolog.Logger
}

// NewService builds the search service. Queries are truncated to maxLen
// runes after sanitizing.
func NewService(patients PatientFilter, documents DocumentFilter, conditions ConditionFilter, maxLen int, logger zerolog.Logger) *Service {
	return &Service{patients: patients, documents: documents, conditions: conditions, maxLen: maxLen, logger: logger}
}

func wants(typ, kind string) bool { return typ == TypeAll || typ == kind }

// Search sanitizes and parses query, then filters each requested kind. A
// query without usable operands matches every record.
func (s *Service) Search(ctx context.Context, query, typ string, limit, offset int) (*Results, error) {
	if typ == "" {
		typ = TypeAll
	}
	switch typ {
	case TypeAll, TypePatients, TypeDocuments, TypeConditions:
	default:
		return nil, ErrInvalidType
	}

	clean := middleware.SanitizeQuery(query, s.maxLen)
	pred := htql.Parse(clean)
	metrics.SearchQueries.WithLabelValues(typ).Inc()

	out := &Results{Query: clean, Type: typ}
	if wants(typ, TypePatients) {
		items, total, err := s.patients.Filter(ctx, pred, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("search patients: %w", err)
		}
		out.Patients = pagination.NewResponse(nonNil(items), total, limit, offset)
	}
	if wants(typ, TypeDocuments) {
		items, total, err := s.documents.Filter(ctx, pred, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("search documents: %w", err)
		}
		out.Documents = pagination.NewResponse(nonNil(items), total, limit, offset)
	}
	if wants(typ, TypeConditions) {
		items, total, err := s.conditions.Filter(ctx, pred, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("search conditions: %w", err)
		}
		out.Conditions = pagination.NewResponse(nonNil(items), total, limit, offset)
	}

	s.logger.Debug().Str("query", clean).Str("type", typ).Bool("filtered", pred != nil).Msg("search")
	return out, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
