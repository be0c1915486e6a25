// Package calendar classifies the current instant against Indian market
// hours and computes trading-day arithmetic in IST.
package calendar

import (
	"fmt"
	"time"

	"github.com/aegis/rankengine/pkg/config"
)

// Calendar implements contracts.Calendar for Asia/Kolkata, Mon-Fri,
// 09:15-15:30. Holiday calendars are out of scope.
type Calendar struct {
	loc         *time.Location
	openHour    int
	openMinute  int
	closeHour   int
	closeMinute int
}

// New builds a Calendar from configuration, returning an error if the
// configured timezone can't be loaded.
func New(cfg config.CalendarConfig) (*Calendar, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	return &Calendar{
		loc:         loc,
		openHour:    cfg.OpenHour,
		openMinute:  cfg.OpenMinute,
		closeHour:   cfg.CloseHour,
		closeMinute: cfg.CloseMinute,
	}, nil
}

func (c *Calendar) isWeekend(t time.Time) bool {
	wd := t.In(c.loc).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (c *Calendar) minutesSinceMidnight(t time.Time) int {
	t = t.In(c.loc)
	return t.Hour()*60 + t.Minute()
}

func (c *Calendar) openMinutes() int  { return c.openHour*60 + c.openMinute }
func (c *Calendar) closeMinutes() int { return c.closeHour*60 + c.closeMinute }

// IsMarketOpen reports whether now falls within a weekday trading session.
func (c *Calendar) IsMarketOpen(now time.Time) bool {
	if c.isWeekend(now) {
		return false
	}
	m := c.minutesSinceMidnight(now)
	return m >= c.openMinutes() && m <= c.closeMinutes()
}

func (c *Calendar) isClosedForDay(now time.Time) bool {
	if c.isWeekend(now) {
		return true
	}
	return c.minutesSinceMidnight(now) > c.closeMinutes()
}

// ShouldCalculateMomentum is true iff today is a weekday and the market has
// already closed for the day (complete daily data available).
func (c *Calendar) ShouldCalculateMomentum(now time.Time) bool {
	if c.isWeekend(now) {
		return false
	}
	if c.IsMarketOpen(now) {
		return false
	}
	return c.minutesSinceMidnight(now) > c.closeMinutes()
}

// ShouldUpdateData mirrors ShouldCalculateMomentum: prices are only stable
// once the session has closed.
func (c *Calendar) ShouldUpdateData(now time.Time) bool {
	return c.ShouldCalculateMomentum(now)
}

// TradingDate returns today (as a date, in IST) if it's a weekday, else the
// next Monday.
func (c *Calendar) TradingDate(now time.Time) time.Time {
	local := now.In(c.loc)
	d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	wd := d.Weekday()
	if wd != time.Saturday && wd != time.Sunday {
		return d
	}
	daysUntilMonday := (8 - int(wd)) % 7
	return d.AddDate(0, 0, daysUntilMonday)
}

// PrevTradingDate walks back from TradingDate to the most recent weekday.
func (c *Calendar) PrevTradingDate(now time.Time) time.Time {
	prev := c.TradingDate(now).AddDate(0, 0, -1)
	for prev.Weekday() == time.Saturday || prev.Weekday() == time.Sunday {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// NextMarketOpen returns the next instant the market opens, whether that's
// later today, tomorrow, or after a weekend.
func (c *Calendar) NextMarketOpen(now time.Time) time.Time {
	local := now.In(c.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), c.openHour, c.openMinute, 0, 0, c.loc)

	if !c.isWeekend(now) && local.Before(today) {
		return today
	}

	next := today.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
