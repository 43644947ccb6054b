// Package report derives read-only statistics from the intake history.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"hydromate/internal/model"
)

const statsCacheKey = "report:stats"

// Stats is the drinking report summary.
type Stats struct {
	// WeeklyAvgML is the average daily intake over the last 7 active days.
	WeeklyAvgML int `json:"weekly_avg_ml"`
	// MonthlyAvgML is the average daily intake over the last 30 active days.
	MonthlyAvgML int `json:"monthly_avg_ml"`
	// AvgCompletion is the average goal-completion percentage over the
	// last 7 active days, each day capped at 100.
	AvgCompletion int `json:"avg_completion_percent"`
	// DrinkFreq is the average number of drinks per active day, rounded
	// to one decimal.
	DrinkFreq float64 `json:"drinks_per_day"`
}

// IntakeSource provides the intake history the report is built from.
type IntakeSource interface {
	AllLogs(ctx context.Context) ([]model.WaterLog, error)
	DailyTotals(ctx context.Context) ([]model.DailyTotal, error)
}

// GoalSource provides the selected daily goal.
type GoalSource interface {
	Goal(ctx context.Context) (int, error)
}

// Service computes report statistics, optionally caching them in Redis.
type Service struct {
	intake IntakeSource
	goals  GoalSource
	loc    *time.Location
	logger *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewService creates a report service bucketing by loc's calendar days.
func NewService(intake IntakeSource, goals GoalSource, loc *time.Location, logger *zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{intake: intake, goals: goals, loc: loc, logger: logger}
}

// UseRedisCache configures optional Redis caching of computed stats.
func (s *Service) UseRedisCache(client *redis.Client, ttl time.Duration) {
	s.redis = client
	s.cacheTTL = ttl
}

// Stats computes the drinking report summary. Days with no logs do not
// count as active days; an empty history yields all zeroes.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var cached Stats
	if s.readCache(ctx, statsCacheKey, &cached) {
		return cached, nil
	}

	logs, err := s.intake.AllLogs(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load intake logs: %w", err)
	}
	goalML, err := s.goals.Goal(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load goal: %w", err)
	}

	byDate := make(map[string][]int)
	for _, log := range logs {
		date := log.LocalDate(s.loc)
		byDate[date] = append(byDate[date], log.AmountML)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	last7 := tail(dates, 7)
	last30 := tail(dates, 30)

	dayTotal := func(date string) float64 {
		var total int
		for _, amount := range byDate[date] {
			total += amount
		}
		return float64(total)
	}

	var weekly, monthly, completion, freq []float64
	for _, date := range last7 {
		total := dayTotal(date)
		weekly = append(weekly, total)
		freq = append(freq, float64(len(byDate[date])))
		if goalML > 0 {
			completion = append(completion, math.Min(total/float64(goalML)*100, 100))
		} else {
			completion = append(completion, 0)
		}
	}
	for _, date := range last30 {
		monthly = append(monthly, dayTotal(date))
	}

	stats := Stats{
		WeeklyAvgML:   int(math.Round(average(weekly))),
		MonthlyAvgML:  int(math.Round(average(monthly))),
		AvgCompletion: int(math.Round(average(completion))),
		DrinkFreq:     math.Round(average(freq)*10) / 10,
	}

	s.writeCache(ctx, statsCacheKey, stats)
	return stats, nil
}

// Invalidate drops the cached stats, e.g. after a new intake log.
func (s *Service) Invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, statsCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate stats cache")
	}
}

func (s *Service) readCache(ctx context.Context, key string, out any) bool {
	if s.redis == nil || s.cacheTTL <= 0 {
		return false
	}
	val, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (s *Service) writeCache(ctx context.Context, key string, val any) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache stats")
	}
}

func tail(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	return list[len(list)-n:]
}

func average(list []float64) float64 {
	if len(list) == 0 {
		return 0
	}
	var sum float64
	for _, v := range list {
		sum += v
	}
	return sum / float64(len(list))
}
