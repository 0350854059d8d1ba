package export

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/entity"
	"github.com/joseph-ayodele/transcript-reader/internal/repository"
)

const sheet = "Transcripts"

var headers = []string{"Name", "Class", "Subject", "HK1", "HK2", "Final", "Review", "Source"}

// Service is a tiny façade over the transcript repository that produces
// XLSX bytes for exports.
type Service struct {
	transcripts repository.TranscriptRepository
	logger      *slog.Logger
}

func NewService(repo repository.TranscriptRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{transcripts: repo, logger: logger}
}

// ExportTranscriptsXLSX returns an XLSX workbook (as bytes) with one row per
// stored subject line matching f.
func (s *Service) ExportTranscriptsXLSX(ctx context.Context, f repository.ListFilter) ([]byte, error) {
	start := time.Now()

	rows, err := s.transcripts.ListSubjectRows(ctx, f)
	if err != nil {
		return nil, common.WrapError(err, "query subject rows")
	}

	book, err := Workbook(rows)
	if err != nil {
		return nil, err
	}
	defer func() { _ = book.Close() }()

	buf, err := book.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// Workbook lays rows out on a single "Transcripts" sheet.
func Workbook(rows []entity.SubjectRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", "H1", style)
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, deref(r.StudentName))
		write(2, deref(r.ClassCode))
		write(3, r.Subject)
		write(4, scoreCell(r.Term1))
		write(5, scoreCell(r.Term2))
		write(6, scoreCell(r.Final))
		write(7, reviewNote(r))
		write(8, r.SourcePath)
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 26) // name
	_ = f.SetColWidth(sheet, "B", "B", 8)  // class
	_ = f.SetColWidth(sheet, "C", "C", 28) // subject
	_ = f.SetColWidth(sheet, "D", "F", 8)  // scores
	_ = f.SetColWidth(sheet, "G", "G", 22) // review
	_ = f.SetColWidth(sheet, "H", "H", 60) // path
	return f, nil
}

// scoreCell writes numeric grades as numbers so spreadsheets can average
// them; pass/fail markers stay text.
func scoreCell(s *string) any {
	if s == nil {
		return ""
	}
	if v, err := strconv.ParseFloat(*s, 64); err == nil {
		return v
	}
	return *s
}

func reviewNote(r entity.SubjectRow) string {
	switch {
	case !r.Recognized:
		return "unrecognized subject"
	case r.NeedsReview:
		return "needs review"
	}
	return ""
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
