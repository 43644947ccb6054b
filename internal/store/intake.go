package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hydromate/internal/model"
)

// IntakeStore persists the append-only water log. All date bucketing
// uses the store's location, never the UTC epoch day.
type IntakeStore struct {
	db  *DB
	loc *time.Location
	mu  sync.Mutex
	now func() time.Time
}

// NewIntakeStore creates an intake store bucketing by loc.
func NewIntakeStore(db *DB, loc *time.Location) *IntakeStore {
	return &IntakeStore{db: db, loc: loc, now: time.Now}
}

// Append records an intake event at the current instant and returns
// the full updated log. Non-positive amounts are rejected with
// ErrInvalidAmount and nothing is written.
func (s *IntakeStore) Append(ctx context.Context, amountML int) ([]model.WaterLog, error) {
	if amountML <= 0 {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := model.WaterLog{
		ID:        uuid.NewString(),
		AmountML:  amountML,
		Timestamp: s.now().UnixMilli(),
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO water_logs (id, amount, timestamp) VALUES (?, ?, ?)`,
		log.ID, log.AmountML, log.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("append water log: %w", err)
	}
	return s.AllLogs(ctx)
}

// AllLogs returns every log, oldest first.
func (s *IntakeStore) AllLogs(ctx context.Context) ([]model.WaterLog, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, amount, timestamp FROM water_logs ORDER BY timestamp ASC`)
	if err != nil {
		return nil, fmt.Errorf("list water logs: %w", err)
	}
	defer rows.Close()

	var logs []model.WaterLog
	for rows.Next() {
		var l model.WaterLog
		if err := rows.Scan(&l.ID, &l.AmountML, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("scan water log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// TodayLogs returns the logs whose local calendar date matches today's.
func (s *IntakeStore) TodayLogs(ctx context.Context) ([]model.WaterLog, error) {
	logs, err := s.AllLogs(ctx)
	if err != nil {
		return nil, err
	}

	today := s.now().In(s.loc).Format("2006-01-02")
	var out []model.WaterLog
	for _, l := range logs {
		if l.LocalDate(s.loc) == today {
			out = append(out, l)
		}
	}
	return out, nil
}

// TodayTotal returns the summed intake for today, in millilitres.
func (s *IntakeStore) TodayTotal(ctx context.Context) (int, error) {
	logs, err := s.TodayLogs(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, l := range logs {
		total += l.AmountML
	}
	return total, nil
}

// Delete removes the log with the given id and returns the full
// updated list. Returns ErrNotFound for unknown ids.
func (s *IntakeStore) Delete(ctx context.Context, id string) ([]model.WaterLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM water_logs WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("delete water log %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.AllLogs(ctx)
}

// DailyTotals groups all logs by local calendar date, ascending.
func (s *IntakeStore) DailyTotals(ctx context.Context) ([]model.DailyTotal, error) {
	logs, err := s.AllLogs(ctx)
	if err != nil {
		return nil, err
	}

	byDate := map[string]int{}
	for _, l := range logs {
		byDate[l.LocalDate(s.loc)] += l.AmountML
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]model.DailyTotal, 0, len(dates))
	for _, d := range dates {
		out = append(out, model.DailyTotal{Date: d, Total: byDate[d]})
	}
	return out, nil
}

// MonthlyTotals groups all logs by local year-month, ascending.
func (s *IntakeStore) MonthlyTotals(ctx context.Context) ([]model.MonthlyTotal, error) {
	logs, err := s.AllLogs(ctx)
	if err != nil {
		return nil, err
	}

	byMonth := map[string]int{}
	for _, l := range logs {
		byMonth[l.Time().In(s.loc).Format("2006-01")] += l.AmountML
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]model.MonthlyTotal, 0, len(months))
	for _, m := range months {
		out = append(out, model.MonthlyTotal{Month: m, Total: byMonth[m]})
	}
	return out, nil
}

// WeeklyTotals groups all logs by local year-week, ascending.
func (s *IntakeStore) WeeklyTotals(ctx context.Context) ([]model.WeeklyTotal, error) {
	logs, err := s.AllLogs(ctx)
	if err != nil {
		return nil, err
	}

	byWeek := map[string]int{}
	var weeks []string
	for _, l := range logs {
		key := weekKey(l.Time().In(s.loc))
		if _, seen := byWeek[key]; !seen {
			weeks = append(weeks, key)
		}
		byWeek[key] += l.AmountML
	}
	sort.Strings(weeks)

	out := make([]model.WeeklyTotal, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, model.WeeklyTotal{Week: w, Total: byWeek[w]})
	}
	return out, nil
}

// weekKey formats a date as "2006-Wn" counting weeks from January 1st
// of that year, matching the history the mobile app rendered.
func weekKey(t time.Time) string {
	firstDay := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	pastDays := int(t.Sub(firstDay).Hours() / 24)
	week := (pastDays+int(firstDay.Weekday()))/7 + 1
	return fmt.Sprintf("%d-W%d", t.Year(), week)
}

// SetClock overrides the store's time source. Tests only.
func (s *IntakeStore) SetClock(now func() time.Time) {
	s.now = now
}
