// Package slots computes business days, candidate appointment times and
// booking conflicts for the shop schedule.
package slots

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the civil date form used across the system.
const DateLayout = "2006-01-02"

const minutesPerDay = 24 * 60

// ErrInvalidTime is returned for malformed HH:MM values.
var ErrInvalidTime = errors.New("invalid time of day")

// Schedule contains the shop's working parameters.
type Schedule struct {
	WorkStart   string // "09:00"
	WorkEnd     string // "20:00"
	LunchStart  string // "12:00" (optional)
	LunchEnd    string // "13:00" (optional)
	Granularity int    // minutes between candidate slots
	DayOff      time.Weekday
	HasDayOff   bool
	Holidays    []string // YYYY-MM-DD dates the shop is closed
}

// DefaultSchedule mirrors the shop's usual hours.
func DefaultSchedule() Schedule {
	return Schedule{
		WorkStart:   "09:00",
		WorkEnd:     "20:00",
		LunchStart:  "12:00",
		LunchEnd:    "13:00",
		Granularity: 60,
		DayOff:      time.Sunday,
		HasDayOff:   true,
	}
}

// Calculator answers availability questions for a fixed schedule.
type Calculator struct {
	start, end           int
	lunchStart, lunchEnd int
	hasLunch             bool
	granularity          int
	dayOff               time.Weekday
	hasDayOff            bool
	holidays             map[string]struct{}
	loc                  *time.Location
	now                  func() time.Time
}

// NewCalculator validates the schedule. now may be nil for the wall clock.
func NewCalculator(s Schedule, loc *time.Location, now func() time.Time) (*Calculator, error) {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	if s.Granularity <= 0 {
		s.Granularity = 60
	}

	start, err := ParseClock(s.WorkStart)
	if err != nil {
		return nil, fmt.Errorf("work start: %w", err)
	}
	end, err := ParseClock(s.WorkEnd)
	if err != nil {
		return nil, fmt.Errorf("work end: %w", err)
	}
	if end <= start {
		return nil, fmt.Errorf("work end %s must be after work start %s", s.WorkEnd, s.WorkStart)
	}

	c := &Calculator{
		start:       start,
		end:         end,
		granularity: s.Granularity,
		dayOff:      s.DayOff,
		hasDayOff:   s.HasDayOff,
		holidays:    make(map[string]struct{}, len(s.Holidays)),
		loc:         loc,
		now:         now,
	}
	for _, h := range s.Holidays {
		c.holidays[h] = struct{}{}
	}

	if s.LunchStart != "" && s.LunchEnd != "" {
		if c.lunchStart, err = ParseClock(s.LunchStart); err != nil {
			return nil, fmt.Errorf("lunch start: %w", err)
		}
		if c.lunchEnd, err = ParseClock(s.LunchEnd); err != nil {
			return nil, fmt.Errorf("lunch end: %w", err)
		}
		c.hasLunch = c.lunchEnd > c.lunchStart
	}
	return c, nil
}

// Now returns the calculator's current instant in the shop location.
func (c *Calculator) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the current civil date.
func (c *Calculator) Today() string {
	return c.Now().Format(DateLayout)
}

// Location returns the shop's time zone.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// Days is a lazy, restartable sequence of business days.
type Days struct {
	from    time.Time
	horizon int
	open    func(time.Time) bool
}

// All yields each business day in the horizon. Every call starts over.
func (d Days) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for i := 0; i < d.horizon; i++ {
			day := d.from.AddDate(0, 0, i)
			if !d.open(day) {
				continue
			}
			if !yield(day.Format(DateLayout)) {
				return
			}
		}
	}
}

// Take returns at most n business days.
func (d Days) Take(n int) []string {
	out := make([]string, 0, n)
	if n <= 0 {
		return out
	}
	for day := range d.All() {
		out = append(out, day)
		if len(out) == n {
			break
		}
	}
	return out
}

// BusinessDays covers the next horizon calendar days starting today.
func (c *Calculator) BusinessDays(horizon int) Days {
	if horizon <= 0 {
		horizon = 30
	}
	now := c.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
	return Days{from: from, horizon: horizon, open: c.isOpen}
}

// IsBusinessDay reports whether date is a working day (ignoring the horizon).
func (c *Calculator) IsBusinessDay(date string) bool {
	day, err := time.ParseInLocation(DateLayout, date, c.loc)
	if err != nil {
		return false
	}
	return c.isOpen(day)
}

func (c *Calculator) isOpen(day time.Time) bool {
	if c.hasDayOff && day.Weekday() == c.dayOff {
		return false
	}
	_, closed := c.holidays[day.Format(DateLayout)]
	return !closed
}

// CandidateSlots lists the grid start times for date, skipping lunch and,
// for today, anything at or before the current time. The grid does not
// depend on the service duration.
func (c *Calculator) CandidateSlots(date string) []string {
	now := c.Now()
	isToday := date == now.Format(DateLayout)
	nowMinutes := now.Hour()*60 + now.Minute()

	var slots []string
	for t := c.start; t < c.end; t += c.granularity {
		if c.InLunch(FormatClock(t)) || c.overlapsLunch(t, t+c.granularity) {
			continue
		}
		if isToday && t <= nowMinutes {
			continue
		}
		slots = append(slots, FormatClock(t))
	}
	return slots
}

// InLunch reports lunchStart <= t < lunchEnd.
func (c *Calculator) InLunch(t string) bool {
	if !c.hasLunch {
		return false
	}
	m, err := ParseClock(t)
	if err != nil {
		return false
	}
	return m >= c.lunchStart && m < c.lunchEnd
}

func (c *Calculator) overlapsLunch(from, to int) bool {
	return c.hasLunch && from < c.lunchEnd && to > c.lunchStart
}

// ComputeEndTime adds minutes to an HH:MM start, wrapping at midnight.
// The result is not capped at closing time.
func ComputeEndTime(start string, minutes int) (string, error) {
	m, err := ParseClock(start)
	if err != nil {
		return "", err
	}
	total := ((m+minutes)%minutesPerDay + minutesPerDay) % minutesPerDay
	return FormatClock(total), nil
}

// ParseClock converts HH:MM to minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: hour in %q", ErrInvalidTime, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: minute in %q", ErrInvalidTime, s)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
