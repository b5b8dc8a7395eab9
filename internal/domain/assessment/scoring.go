package assessment

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ScoreTable indexes option scores by question and option token.
type ScoreTable map[uuid.UUID]map[string]float64

func NewScoreTable(questions []*Question) ScoreTable {
	t := make(ScoreTable, len(questions))
	for _, q := range questions {
		if len(q.Options) == 0 {
			continue
		}
		opts := make(map[string]float64, len(q.Options))
		for _, o := range q.Options {
			if _, dup := opts[o.Value]; !dup {
				opts[o.Value] = o.Score
			}
		}
		t[q.ID] = opts
	}
	return t
}

// Score returns the option score for value, or nil when the question has no
// options or value is not one of its tokens. Matching is exact.
func (t ScoreTable) Score(questionID uuid.UUID, value string) *float64 {
	opts, ok := t[questionID]
	if !ok {
		return nil
	}
	s, ok := opts[value]
	if !ok {
		return nil
	}
	return &s
}

// ComputeTotal sums the non-null response scores. An empty sum is 0.
func ComputeTotal(responses []*Response) float64 {
	var total float64
	for _, r := range responses {
		if r.Score != nil {
			total += *r.Score
		}
	}
	return total
}

// SeverityFor returns the label of the first range containing total.
func (t *Tool) SeverityFor(total float64) *string {
	for _, r := range t.ScoringRanges {
		if total >= r.Min && total <= r.Max {
			s := r.Severity
			return &s
		}
	}
	return nil
}

// MissingRequired lists required questions without a non-empty response,
// in question order.
func MissingRequired(questions []*Question, responses []*Response) []MissingQuestion {
	answered := make(map[uuid.UUID]bool, len(responses))
	for _, r := range responses {
		if strings.TrimSpace(r.Value) != "" {
			answered[r.QuestionID] = true
		}
	}
	var missing []MissingQuestion
	for _, q := range questions {
		if q.Required && !answered[q.ID] {
			missing = append(missing, MissingQuestion{ID: q.ID, Order: q.Order, Text: q.Text})
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].Order < missing[j].Order })
	return missing
}

// buildResponses turns submitted answers into scored responses ordered by
// question. Blank answers are dropped.
func buildResponses(resultID uuid.UUID, questions []*Question, answers map[uuid.UUID]string) []*Response {
	table := NewScoreTable(questions)
	out := make([]*Response, 0, len(answers))
	for _, q := range sortedQuestions(questions) {
		v, ok := answers[q.ID]
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, &Response{
			ID:         uuid.New(),
			ResultID:   resultID,
			QuestionID: q.ID,
			Value:      v,
			Score:      table.Score(q.ID, v),
		})
	}
	return out
}

func sortedQuestions(questions []*Question) []*Question {
	out := make([]*Question, len(questions))
	copy(out, questions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
