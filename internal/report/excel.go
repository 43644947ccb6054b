package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// sheetWriter is a thin cursor over an excelize workbook.
type sheetWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func newSheetWriter() *sheetWriter {
	return &sheetWriter{file: excelize.NewFile()}
}

func (w *sheetWriter) addSheet(name string) error {
	// Excel caps sheet names at 31 chars.
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		// Rename the default sheet instead of leaving an empty Sheet1.
		w.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *sheetWriter) writeHeader(columns []string) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

func (w *sheetWriter) writeRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

func (w *sheetWriter) save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *sheetWriter) close() error {
	return w.file.Close()
}

// Export writes the drinking report as an XLSX workbook: one sheet with
// the per-day history and one with the summary statistics.
func (s *Service) Export(ctx context.Context, wr io.Writer) error {
	daily, err := s.intake.DailyTotals(ctx)
	if err != nil {
		return fmt.Errorf("load daily totals: %w", err)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return fmt.Errorf("compute stats: %w", err)
	}
	goalML, err := s.goals.Goal(ctx)
	if err != nil {
		return fmt.Errorf("load goal: %w", err)
	}

	w := newSheetWriter()
	defer w.close()

	if err := w.addSheet("Daily History"); err != nil {
		return err
	}
	if err := w.writeHeader([]string{"Date", "Total (mL)", "Goal (mL)", "Completion %"}); err != nil {
		return err
	}
	for _, day := range daily {
		completion := 0.0
		if goalML > 0 {
			completion = float64(day.Total) / float64(goalML) * 100
		}
		if err := w.writeRow([]interface{}{day.Date, day.Total, goalML, completion}); err != nil {
			return err
		}
	}

	if err := w.addSheet("Summary"); err != nil {
		return err
	}
	if err := w.writeHeader([]string{"Metric", "Value"}); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Weekly average (mL/day)", stats.WeeklyAvgML},
		{"Monthly average (mL/day)", stats.MonthlyAvgML},
		{"Average goal completion (%)", stats.AvgCompletion},
		{"Drinks per day", stats.DrinkFreq},
		{"Generated at", time.Now().In(s.loc).Format("2006-01-02 15:04:05")},
	}
	for _, row := range rows {
		if err := w.writeRow(row); err != nil {
			return err
		}
	}

	if err := w.save(wr); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
