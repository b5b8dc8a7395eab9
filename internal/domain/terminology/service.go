package terminology

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/chartnotes/internal/platform/cache"
	"github.com/ehr/chartnotes/internal/platform/metrics"
)

const (
	suggestCacheTTL = 10 * time.Minute
	candidateLimit  = 100
)

type Service struct {
	codes  CodeRepository
	cache  cache.JSONCache
	logger zerolog.Logger
}

// NewService builds the terminology service. c may be nil, in which case
// every suggestion is computed from the database.
func NewService(codes CodeRepository, c cache.JSONCache, logger zerolog.Logger) *Service {
	return &Service{codes: codes, cache: c, logger: logger}
}

func suggestKey(system, prefix string) string {
	return "suggest:" + strings.ToLower(system) + ":" + strings.ToLower(prefix)
}

// Suggest returns up to MaxSuggestions codes for prefix. Persisted codes take
// priority over the built-in table when both carry the same code.
func (s *Service) Suggest(ctx context.Context, prefix, system string) ([]Suggestion, error) {
	prefix = strings.TrimSpace(prefix)
	system = strings.TrimSpace(system)
	if prefix == "" {
		return []Suggestion{}, nil
	}

	key := suggestKey(system, prefix)
	if s.cache != nil {
		var cached []Suggestion
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		switch {
		case err != nil:
			metrics.SuggestionCache.WithLabelValues("error").Inc()
			s.logger.Warn().Err(err).Str("key", key).Msg("suggestion cache read failed")
		case hit:
			metrics.SuggestionCache.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			metrics.SuggestionCache.WithLabelValues("miss").Inc()
		}
	}

	rows, err := s.codes.Search(ctx, prefix, system, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("suggest codes: %w", err)
	}
	candidates := make([]Suggestion, 0, len(rows)+len(staticICD10))
	for _, r := range rows {
		candidates = append(candidates, Suggestion{Code: r.Code, Description: r.Display, System: r.CodeSystem})
	}
	if system == "" || strings.EqualFold(system, SystemICD10) {
		for _, st := range staticICD10 {
			if candidateMatches(st, prefix) {
				st.System = SystemICD10
				candidates = append(candidates, st)
			}
		}
	}

	out := Rank(prefix, candidates)
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, out, suggestCacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("suggestion cache write failed")
		}
	}
	return out, nil
}

// SeedICD10 upserts the built-in ICD-10 table and returns the row count.
func (s *Service) SeedICD10(ctx context.Context) (int, error) {
	entries := StaticICD10()
	for _, e := range entries {
		if err := s.codes.Upsert(ctx, e); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}

// Import upserts caller-supplied codes. Category defaults to the code prefix.
func (s *Service) Import(ctx context.Context, entries []*CodeEntry) (int, error) {
	for i, e := range entries {
		e.Code = strings.TrimSpace(e.Code)
		if e.Code == "" {
			return i, fmt.Errorf("entry %d: code is required", i)
		}
		if e.Display == "" {
			return i, fmt.Errorf("entry %d: display is required", i)
		}
		if e.CodeSystem == "" {
			e.CodeSystem = SystemICD10
		}
		if e.Category == "" {
			e.Category = CategoryOf(e.Code)
		}
		if err := s.codes.Upsert(ctx, e); err != nil {
			return i, err
		}
	}
	return len(entries), nil
}
