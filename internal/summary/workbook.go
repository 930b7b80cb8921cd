package summary

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "Summary"

var workbookHeader = []string{
	"Tool", "Runs", "Complete", "Avg Score", "Min Score", "Max Score",
	"Context", "Research", "QA", "Quality", "Docs",
}

// WriteWorkbook writes the summaries to an xlsx spreadsheet, one row per
// tool.
func WriteWorkbook(summaries []ToolSummary, outPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("naming summary sheet: %w", err)
	}
	if err := f.SetSheetRow(summarySheet, "A1", &workbookHeader); err != nil {
		return fmt.Errorf("writing workbook header: %w", err)
	}

	for i, s := range summaries {
		row := []any{
			s.Tool, s.Runs, s.Complete,
			floatValue(s.AvgScore), floatValue(s.MinScore), floatValue(s.MaxScore),
			floatValue(s.Context), floatValue(s.Research), floatValue(s.QA),
			floatValue(s.Quality), floatValue(s.Docs),
		}
		anchor, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("computing workbook cell: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, anchor, &row); err != nil {
			return fmt.Errorf("writing workbook row: %w", err)
		}
	}

	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}

func floatValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
