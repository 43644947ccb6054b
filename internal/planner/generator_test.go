package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydromate/internal/model"
)

var loc = time.FixedZone("UTC+2", 2*3600)

func at(hour, min int) time.Time {
	return time.Date(2025, 7, 15, hour, min, 0, 0, loc)
}

func TestGenerateByCount_EvenSpacing(t *testing.T) {
	// wake 07:00, sleep 23:00 -> window [08:00, 22:30) = 870 min.
	// maxReminders = floor(870/75) = 11, so 8 requested stay 8.
	// interval = 870/8 = 108.75 min; last slot = 08:00 + 7*108.75m = 20:41:15.
	got := GenerateByCount(at(7, 30), model.MustTimeOfDay("07:00"), model.MustTimeOfDay("23:00"), 8)

	require.Len(t, got, 8)
	assert.Equal(t, model.MustTimeOfDay("08:00:00"), got[0].Time)
	assert.Equal(t, model.MustTimeOfDay("20:41:15"), got[7].Time)
	for _, r := range got {
		assert.True(t, r.Enabled)
		assert.NotEmpty(t, r.ID)
	}
}

func TestGenerateByCount_ClampsToMinSpacing(t *testing.T) {
	wake := model.MustTimeOfDay("07:00")
	sleep := model.MustTimeOfDay("23:00")

	got := GenerateByCount(at(7, 30), wake, sleep, 100)
	assert.Len(t, got, 11, "870 min window fits at most floor(870/75) reminders")

	// No two consecutive slots closer than 75 minutes.
	for i := 1; i < len(got); i++ {
		prev := got[i-1].Time.On(at(0, 0))
		cur := got[i].Time.On(at(0, 0))
		assert.GreaterOrEqual(t, cur.Sub(prev), MinSpacing, "slots %d and %d", i-1, i)
	}
}

func TestGenerateByCount_WindowTooShort(t *testing.T) {
	// wake 22:00, sleep 23:45 -> window [23:00, 23:15) = 15 min.
	got := GenerateByCount(at(21, 0), model.MustTimeOfDay("22:00"), model.MustTimeOfDay("23:45"), 3)
	assert.Empty(t, got, "short window yields an empty schedule, not an error")
}

func TestGenerateByCount_ZeroAndNegativeCount(t *testing.T) {
	wake := model.MustTimeOfDay("07:00")
	sleep := model.MustTimeOfDay("23:00")
	assert.Empty(t, GenerateByCount(at(7, 30), wake, sleep, 0))
	assert.Empty(t, GenerateByCount(at(7, 30), wake, sleep, -4))
}

func TestGenerateByCount_CrossMidnightWindow(t *testing.T) {
	// wake 20:00, sleep 02:00 -> window [21:00, 01:30 next day) = 270 min.
	got := GenerateByCount(at(20, 30), model.MustTimeOfDay("20:00"), model.MustTimeOfDay("02:00"), 5)

	require.Len(t, got, 3, "270 min window caps at floor(270/75)")
	assert.Equal(t, model.MustTimeOfDay("21:00:00"), got[0].Time)
	// 21:00 + 2*90m = 00:00; time-of-day wraps past midnight.
	assert.Equal(t, model.MustTimeOfDay("00:00:00"), got[2].Time)
}

func TestGenerateByCount_PastWindowMovesToTomorrow(t *testing.T) {
	// At 23:00 the [08:00, 22:30) window is over; tomorrow's slots carry
	// the same times of day.
	late := GenerateByCount(at(23, 0), model.MustTimeOfDay("07:00"), model.MustTimeOfDay("23:00"), 4)
	early := GenerateByCount(at(7, 0), model.MustTimeOfDay("07:00"), model.MustTimeOfDay("23:00"), 4)

	require.Len(t, late, 4)
	require.Len(t, early, 4)
	for i := range late {
		assert.Equal(t, early[i].Time, late[i].Time)
	}
}

func TestGenerateByCount_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	// Two generation passes over the same window must not collide.
	for pass := 0; pass < 2; pass++ {
		for _, r := range GenerateByCount(at(7, 30), model.MustTimeOfDay("07:00"), model.MustTimeOfDay("23:00"), 8) {
			assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
			seen[r.ID] = true
		}
	}
}

func TestCountForGoal(t *testing.T) {
	tests := []struct {
		goal   int
		choice model.GoalChoice
		want   int
	}{
		{goal: 2750, choice: model.GoalChoiceMax, want: 8},
		{goal: 2250, choice: model.GoalChoiceMin, want: 5},
		{goal: 1400, choice: model.GoalChoiceCustom, want: 5},
		{goal: 900, choice: model.GoalChoiceCustom, want: 3},
		{goal: 2500, choice: "", want: 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CountForGoal(tt.goal, tt.choice), "goal=%d choice=%s", tt.goal, tt.choice)
	}
}
