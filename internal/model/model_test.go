package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{input: "07:00", want: TimeOfDay{Hour: 7}},
		{input: "23:59", want: TimeOfDay{Hour: 23, Minute: 59}},
		{input: "08:41:15", want: TimeOfDay{Hour: 8, Minute: 41, Second: 15}},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "12:00:61", wantErr: true},
		{input: "noon", wantErr: true},
		{input: "12", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDay_On(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	date := time.Date(2025, 7, 15, 18, 30, 0, 0, loc)

	at := MustTimeOfDay("08:15:30").On(date)
	assert.Equal(t, time.Date(2025, 7, 15, 8, 15, 30, 0, loc), at)
	assert.Equal(t, loc, at.Location())
}

func TestTimeOfDay_JSONRoundTrip(t *testing.T) {
	r := Reminder{ID: "abc", Time: MustTimeOfDay("20:41:15"), Enabled: true}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"20:41:15"`)

	var back Reminder
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)

	// Short form accepted on input.
	var short Reminder
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","time":"09:30","enabled":false}`), &short))
	assert.Equal(t, MustTimeOfDay("09:30:00"), short.Time)
}

func TestWaterLog_LocalDate(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)

	// 23:30 local on the 14th vs 00:30 local on the 15th. In UTC both fall
	// on the 14th; the local buckets must still differ.
	evening := time.Date(2025, 7, 14, 23, 30, 0, 0, loc)
	pastMidnight := time.Date(2025, 7, 15, 0, 30, 0, 0, loc)

	a := WaterLog{ID: "1", AmountML: 200, Timestamp: evening.UnixMilli()}
	b := WaterLog{ID: "2", AmountML: 200, Timestamp: pastMidnight.UnixMilli()}

	assert.Equal(t, "2025-07-14", a.LocalDate(loc))
	assert.Equal(t, "2025-07-15", b.LocalDate(loc))
	assert.Equal(t, "2025-07-14", b.LocalDate(time.UTC), "UTC bucket differs from local on purpose")
}
