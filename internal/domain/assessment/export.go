package assessment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/chartnotes/internal/platform/export"
)

// ExportResult renders a result as a two-sheet workbook: a summary and the
// individual responses in question order.
func (s *Service) ExportResult(ctx context.Context, id uuid.UUID) (*export.Workbook, *Result, error) {
	res, err := s.GetResult(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	tool, err := s.tools.GetByID(ctx, res.ToolID)
	if err != nil {
		return nil, nil, err
	}

	summary := [][]string{
		{"Tool", tool.Name},
		{"Version", tool.Version},
		{"Patient ID", res.PatientID.String()},
		{"Assessor ID", res.AssessorID.String()},
		{"Status", res.Status},
		{"Entry mode", res.EntryMode},
		{"Assessment date", res.AssessmentDate.UTC().Format(time.RFC3339)},
		{"Total score", formatScore(res.TotalScore)},
		{"Severity", deref(res.Severity)},
	}
	if res.InvalidReason != nil {
		summary = append(summary, []string{"Invalid reason", *res.InvalidReason})
	}

	byID := make(map[uuid.UUID]*Question, len(tool.Questions))
	for _, q := range tool.Questions {
		byID[q.ID] = q
	}
	rows := make([][]string, 0, len(res.Responses))
	for _, r := range res.Responses {
		order, text := "", ""
		if q, ok := byID[r.QuestionID]; ok {
			order, text = strconv.Itoa(q.Order), q.Text
		}
		rows = append(rows, []string{order, text, r.Value, formatScore(r.Score)})
	}

	wb, err := export.NewWorkbook([]export.SheetSpec{
		{Title: "Summary", Header: []string{"Field", "Value"}, Rows: summary},
		{Title: "Responses", Header: []string{"Order", "Question", "Response", "Score"}, Rows: rows},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build workbook: %w", err)
	}
	return wb, res, nil
}

// ExportFileName names the download for a result.
func ExportFileName(res *Result) string {
	return fmt.Sprintf("assessment_%s_%s.xlsx", res.ID.String()[:8], res.AssessmentDate.UTC().Format("20060102"))
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
