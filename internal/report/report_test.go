package report

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hydromate/internal/model"
)

type stubIntake struct {
	logs  []model.WaterLog
	daily []model.DailyTotal
}

func (s stubIntake) AllLogs(context.Context) ([]model.WaterLog, error) { return s.logs, nil }

func (s stubIntake) DailyTotals(context.Context) ([]model.DailyTotal, error) {
	return s.daily, nil
}

type stubGoal struct{ goal int }

func (s stubGoal) Goal(context.Context) (int, error) { return s.goal, nil }

func logAt(day, hour, amount int) model.WaterLog {
	ts := time.Date(2025, 7, day, hour, 0, 0, 0, time.UTC)
	return model.WaterLog{ID: fmt.Sprintf("%d-%d", day, hour), AmountML: amount, Timestamp: ts.UnixMilli()}
}

func newTestService(intake IntakeSource, goalML int) *Service {
	logger := zerolog.Nop()
	return NewService(intake, stubGoal{goal: goalML}, time.UTC, &logger)
}

func TestStats_Averages(t *testing.T) {
	intake := stubIntake{logs: []model.WaterLog{
		// Day 1: 1000 mL in two drinks, day 2: 2500 mL in two drinks.
		logAt(1, 9, 500),
		logAt(1, 15, 500),
		logAt(2, 9, 2000),
		logAt(2, 15, 500),
	}}
	s := newTestService(intake, 2000)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1750, stats.WeeklyAvgML)
	assert.Equal(t, 1750, stats.MonthlyAvgML)
	// Day 1 at 50%, day 2 capped at 100%.
	assert.Equal(t, 75, stats.AvgCompletion)
	assert.InDelta(t, 2.0, stats.DrinkFreq, 0.001)
}

func TestStats_LastSevenActiveDaysOnly(t *testing.T) {
	var logs []model.WaterLog
	// Ten active days: 100, 200, ..., 1000 mL.
	for day := 1; day <= 10; day++ {
		logs = append(logs, logAt(day, 12, day*100))
	}
	s := newTestService(stubIntake{logs: logs}, 2000)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)

	// Weekly window covers days 4..10, monthly all ten.
	assert.Equal(t, 700, stats.WeeklyAvgML)
	assert.Equal(t, 550, stats.MonthlyAvgML)
}

func TestStats_SkipsInactiveDays(t *testing.T) {
	// Two active days a week apart still average over two days, not nine.
	intake := stubIntake{logs: []model.WaterLog{
		logAt(1, 12, 1000),
		logAt(8, 12, 2000),
	}}
	s := newTestService(intake, 2000)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1500, stats.WeeklyAvgML)
}

func TestStats_EmptyHistory(t *testing.T) {
	s := newTestService(stubIntake{}, 2000)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestStats_ZeroGoal(t *testing.T) {
	intake := stubIntake{logs: []model.WaterLog{logAt(1, 12, 1000)}}
	s := newTestService(intake, 0)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.AvgCompletion)
	assert.Equal(t, 1000, stats.WeeklyAvgML)
}

func TestStats_DrinkFreqOneDecimal(t *testing.T) {
	// Day 1 has one drink, day 2 has two: 1.5 drinks per day.
	intake := stubIntake{logs: []model.WaterLog{
		logAt(1, 12, 300),
		logAt(2, 9, 300),
		logAt(2, 15, 300),
	}}
	s := newTestService(intake, 2000)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.5, stats.DrinkFreq, 0.001)
}

func TestExport_WritesWorkbook(t *testing.T) {
	intake := stubIntake{
		logs: []model.WaterLog{
			logAt(1, 9, 500),
			logAt(1, 15, 1500),
		},
		daily: []model.DailyTotal{{Date: "2025-07-01", Total: 2000}},
	}
	s := newTestService(intake, 2000)

	var buf bytes.Buffer
	require.NoError(t, s.Export(context.Background(), &buf))

	file, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer file.Close()

	assert.ElementsMatch(t, []string{"Daily History", "Summary"}, file.GetSheetList())

	date, err := file.GetCellValue("Daily History", "A2")
	require.NoError(t, err)
	assert.Equal(t, "2025-07-01", date)

	total, err := file.GetCellValue("Daily History", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2000", total)
}
