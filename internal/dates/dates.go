// Package dates resolves calendar dates in the audience timezone.
package dates

import (
	"fmt"
	"time"
)

const Layout = "2006-01-02"

// DefaultTimezone is the audience timezone when none is configured.
const DefaultTimezone = "Asia/Seoul"

// Calendar turns instants into audience-local dates.
type Calendar struct {
	Location *time.Location
	Now      func() time.Time
}

// NewCalendar loads tz (DefaultTimezone if empty) and uses the wall clock.
func NewCalendar(tz string) (*Calendar, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Calendar{Location: loc, Now: time.Now}, nil
}

// Fixed returns a calendar whose clock always reports now.
func Fixed(loc *time.Location, now time.Time) *Calendar {
	return &Calendar{Location: loc, Now: func() time.Time { return now }}
}

// Today returns the current local date as YYYY-MM-DD.
func (c *Calendar) Today() string {
	return c.DateOf(c.Now())
}

// DateOf returns the local date of t.
func (c *Calendar) DateOf(t time.Time) string {
	return t.In(c.Location).Format(Layout)
}

// Parse reads a YYYY-MM-DD date as local midnight.
func (c *Calendar) Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, s, c.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// NextAt returns the next instant strictly after now at hour:00 local time.
func (c *Calendar) NextAt(hour int) time.Time {
	now := c.Now().In(c.Location)
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, c.Location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
