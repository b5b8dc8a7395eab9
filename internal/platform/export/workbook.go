// Package export renders tabular data as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the rendered workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheet = "Sheet1"

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

type Workbook struct {
	file *excelize.File
}

// NewWorkbook builds one sheet per SheetSpec with a bold, filterable header row.
func NewWorkbook(sheets []SheetSpec) (*Workbook, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("at least one sheet is required")
	}

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, s := range sheets {
		if s.Title == "" {
			return nil, fmt.Errorf("sheet %d: title is required", i)
		}
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, s.Title); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.Title); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}

		if err := writeSheet(f, s, bold); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", s.Title, err)
		}
	}
	return &Workbook{file: f}, nil
}

func writeSheet(f *excelize.File, s SheetSpec, headerStyle int) error {
	for col, h := range s.Header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellStr(s.Title, cell, h); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	if len(s.Header) > 0 {
		end, _ := excelize.CoordinatesToCellName(len(s.Header), 1)
		_ = f.SetCellStyle(s.Title, "A1", end, headerStyle)
		_ = f.AutoFilter(s.Title, "A1:"+end, nil)
	}

	for r, row := range s.Rows {
		for c, val := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStr(s.Title, cell, val); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	// width heuristic from the header and the first rows
	for c := range s.Header {
		width := utf8.RuneCountInString(s.Header[c])
		for r := 0; r < min(50, len(s.Rows)); r++ {
			if c < len(s.Rows[r]) {
				width = max(width, utf8.RuneCountInString(s.Rows[r][c]))
			}
		}
		w := float64(width) * 0.9
		w = max(12, min(40, w))
		name, _ := excelize.ColumnNumberToName(c + 1)
		_ = f.SetColWidth(s.Title, name, name, w)
	}
	return nil
}

// WriteTo streams the workbook.
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.file.WriteTo(out)
}

func (w *Workbook) Close() error {
	return w.file.Close()
}
