package slots

import "barberbot/internal/model"

// IsAvailable reports whether [start, start+duration) on date is free of every
// non-cancelled booking in existing. A booking whose ID equals excludeID is
// ignored. Touching intervals do not conflict.
func IsAvailable(date, start string, duration int, existing []model.Appointment, excludeID string) bool {
	newStart, err := ParseClock(start)
	if err != nil {
		return false
	}
	newEnd := newStart + duration

	for i := range existing {
		apt := &existing[i]
		if apt.Date != date || apt.IsCancelled() {
			continue
		}
		if excludeID != "" && apt.ID == excludeID {
			continue
		}
		aptStart, aptEnd, ok := interval(apt)
		if !ok {
			continue
		}
		if newStart < aptEnd && newEnd > aptStart {
			return false
		}
	}
	return true
}

// AvailableSlots is the candidate grid for date filtered through IsAvailable
// with the service duration.
func (c *Calculator) AvailableSlots(date string, duration int, existing []model.Appointment) []string {
	candidates := c.CandidateSlots(date)
	available := make([]string, 0, len(candidates))
	for _, t := range candidates {
		if IsAvailable(date, t, duration, existing, "") {
			available = append(available, t)
		}
	}
	return available
}

// interval returns a booking's minutes span. An end at or before the start
// ran past midnight and is unwrapped.
func interval(apt *model.Appointment) (int, int, bool) {
	start, err := ParseClock(apt.Time)
	if err != nil {
		return 0, 0, false
	}
	end, err := ParseClock(apt.EndTime)
	if err != nil {
		return 0, 0, false
	}
	if end <= start {
		end += minutesPerDay
	}
	return start, end, true
}
