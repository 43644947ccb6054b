package model

import (
	"time"
)

// Gender of the user, as collected during onboarding.
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderUnspecified Gender = ""
)

// ActivityLevel describes how physically active the user is.
type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLight     ActivityLevel = "light"
	ActivityModerate  ActivityLevel = "moderate"
	ActivityVery      ActivityLevel = "very"
)

// Climate the user lives in.
type Climate string

const (
	ClimateHot       Climate = "hot"
	ClimateTemperate Climate = "temperate"
	ClimateCold      Climate = "cold"
)

// GoalChoice records which goal the user picked from the computed range.
type GoalChoice string

const (
	GoalChoiceMin    GoalChoice = "min"
	GoalChoiceMax    GoalChoice = "max"
	GoalChoiceCustom GoalChoice = "custom"
)

// UserProfile holds the onboarding attributes the hydration goal and the
// reminder window are derived from.
type UserProfile struct {
	Gender        Gender        `json:"gender"`
	HeightCm      int           `json:"height_cm"`
	WeightKg      int           `json:"weight_kg"`
	Age           int           `json:"age"`
	WakeTime      TimeOfDay     `json:"wake_time"`
	SleepTime     TimeOfDay     `json:"sleep_time"`
	ActivityLevel ActivityLevel `json:"activity_level"`
	Climate       Climate       `json:"climate"`
}

// GoalRange is a hydration goal band in millilitres.
type GoalRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Reminder is a persisted daily time-of-day at which a hydration
// notification should fire.
type Reminder struct {
	ID      string    `json:"id"`
	Time    TimeOfDay `json:"time"`
	Enabled bool      `json:"enabled"`
}

// ReminderPatch carries partial updates for a reminder. Nil fields are
// left unchanged.
type ReminderPatch struct {
	Time    *TimeOfDay `json:"time,omitempty"`
	Enabled *bool      `json:"enabled,omitempty"`
}

// WaterLog is a single timestamped intake event.
type WaterLog struct {
	ID        string `json:"id"`
	AmountML  int    `json:"amount"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// Time returns the log timestamp as a time.Time.
func (l WaterLog) Time() time.Time {
	return time.UnixMilli(l.Timestamp)
}

// LocalDate returns the log's calendar date in the given location,
// formatted YYYY-MM-DD. Aggregation buckets by this key, never by the
// UTC epoch day.
func (l WaterLog) LocalDate(loc *time.Location) string {
	return l.Time().In(loc).Format("2006-01-02")
}

// DailyTotal is the summed intake for one local calendar date.
type DailyTotal struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Total int    `json:"total"`
}

// WeeklyTotal is the summed intake for one week of a year.
type WeeklyTotal struct {
	Week  string `json:"week"` // e.g. "2025-W27"
	Total int    `json:"total"`
}

// MonthlyTotal is the summed intake for one calendar month.
type MonthlyTotal struct {
	Month string `json:"month"` // YYYY-MM
	Total int    `json:"total"`
}
