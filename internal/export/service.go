package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/agentic-ocr/internal/agent"
)

// Service produces XLSX bytes for extraction run results.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// RunXLSX renders a completed run into a workbook with a Summary sheet
// (report metrics) and a Fields sheet (one row per schema field, in schema
// order).
func (s *Service) RunXLSX(res *agent.RunResult) ([]byte, error) {
	start := time.Now()
	rep := res.Report
	if rep == nil {
		return nil, fmt.Errorf("run result has no report")
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Warn("export.xlsx.close_error", "error", cerr)
		}
	}()

	const summary = "Summary"
	const fields = "Fields"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(fields); err != nil {
		return nil, fmt.Errorf("create fields sheet: %w", err)
	}

	summaryRows := [][]any{
		{"Run ID", res.RunID},
		{"Pages", res.Pages},
		{"Retry attempts", res.Attempts},
		{"Total fields", rep.TotalFields},
		{"Filled", rep.FilledFields},
		{"Unfilled", rep.UnfilledFields},
		{"Low confidence", rep.LowConfidenceFields},
		{"Invalid", rep.InvalidFields},
		{"Needs review", rep.NeedsReviewFields},
		{"Average confidence", rep.AverageConfidence},
		{"Completion rate (%)", rep.CompletionRate},
		{"Validation success (%)", rep.ValidationSuccessRate},
		{"Quality score", rep.QualityScore},
		{"Flagged fields", strings.Join(rep.FlaggedFieldNames, ", ")},
	}
	for i, row := range summaryRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("summary cell: %w", err)
		}
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return nil, fmt.Errorf("write summary row: %w", err)
		}
	}

	header := []any{"Field", "Value", "Confidence", "Status", "Retries", "Source page", "Validation errors", "Notes"}
	if err := f.SetSheetRow(fields, "A1", &header); err != nil {
		return nil, fmt.Errorf("write fields header: %w", err)
	}
	for i, name := range res.FieldOrder {
		detail, ok := rep.FieldDetails[name]
		if !ok {
			continue
		}
		row := []any{
			detail.Name,
			detail.Value,
			detail.Confidence,
			string(detail.Status),
			detail.RetryCount,
			detail.SourcePage,
			strings.Join(detail.ValidationErrors, "; "),
			detail.Notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("fields cell: %w", err)
		}
		if err := f.SetSheetRow(fields, cell, &row); err != nil {
			return nil, fmt.Errorf("write field row %q: %w", name, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"run_id", res.RunID,
		"fields", rep.TotalFields,
		"bytes", buf.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
