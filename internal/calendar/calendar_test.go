package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis/rankengine/pkg/config"
)

func newTestCalendar(t *testing.T) *Calendar {
	t.Helper()
	cal, err := New(config.CalendarConfig{
		Timezone:    "Asia/Kolkata",
		OpenHour:    9,
		OpenMinute:  15,
		CloseHour:   15,
		CloseMinute: 30,
	})
	require.NoError(t, err)
	return cal
}

func mustIST(t *testing.T, layout, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	parsed, err := time.ParseInLocation(layout, value, loc)
	require.NoError(t, err)
	return parsed
}

func TestIsMarketOpen(t *testing.T) {
	cal := newTestCalendar(t)

	tests := []struct {
		name string
		when string
		want bool
	}{
		{"weekday during session", "2026-03-02 11:00", true},
		{"weekday at open", "2026-03-02 09:15", true},
		{"weekday at close", "2026-03-02 15:30", true},
		{"weekday before open", "2026-03-02 09:00", false},
		{"weekday after close", "2026-03-02 16:00", false},
		{"saturday", "2026-03-07 11:00", false},
		{"sunday", "2026-03-08 11:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			when := mustIST(t, "2006-01-02 15:04", tt.when)
			assert.Equal(t, tt.want, cal.IsMarketOpen(when))
		})
	}
}

func TestShouldUpdateData(t *testing.T) {
	cal := newTestCalendar(t)

	assert.True(t, cal.ShouldUpdateData(mustIST(t, "2006-01-02 15:04", "2026-03-02 16:00")))
	assert.False(t, cal.ShouldUpdateData(mustIST(t, "2006-01-02 15:04", "2026-03-02 11:00")))
	assert.False(t, cal.ShouldUpdateData(mustIST(t, "2006-01-02 15:04", "2026-03-07 16:00")))
}

func TestTradingDate_Weekend(t *testing.T) {
	cal := newTestCalendar(t)

	// 2026-03-07 is a Saturday; expect next Monday 2026-03-09.
	got := cal.TradingDate(mustIST(t, "2006-01-02 15:04", "2026-03-07 11:00"))
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 9, got.Day())

	// Sunday 2026-03-08 should also roll to Monday 2026-03-09.
	got = cal.TradingDate(mustIST(t, "2006-01-02 15:04", "2026-03-08 11:00"))
	assert.Equal(t, 9, got.Day())
}

func TestPrevTradingDate_SkipsWeekend(t *testing.T) {
	cal := newTestCalendar(t)

	// Monday 2026-03-09 -> previous trading date should be Friday 2026-03-06.
	got := cal.PrevTradingDate(mustIST(t, "2006-01-02 15:04", "2026-03-09 11:00"))
	assert.Equal(t, 6, got.Day())
	assert.Equal(t, time.Friday, got.Weekday())
}

func TestNextMarketOpen_LaterToday(t *testing.T) {
	cal := newTestCalendar(t)

	got := cal.NextMarketOpen(mustIST(t, "2006-01-02 15:04", "2026-03-02 08:00"))
	assert.Equal(t, 2, got.Day())
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 15, got.Minute())
}

func TestNextMarketOpen_SkipsWeekend(t *testing.T) {
	cal := newTestCalendar(t)

	// Friday after close should roll to Monday.
	got := cal.NextMarketOpen(mustIST(t, "2006-01-02 15:04", "2026-03-06 16:00"))
	assert.Equal(t, time.Monday, got.Weekday())
}
