package service

import "time"

// StreakMilestones are the streak lengths that earn a congratulation.
var StreakMilestones = []int{3, 7, 30}

// StreakCalculator counts consecutive active days in a fixed timezone.
type StreakCalculator struct {
	loc *time.Location
}

// NewStreakCalculator creates a calculator; nil loc means UTC.
func NewStreakCalculator(loc *time.Location) StreakCalculator {
	if loc == nil {
		loc = time.UTC
	}
	return StreakCalculator{loc: loc}
}

// Next returns the streak after activity at now, given the stored streak and
// the previous activity instant.
func (c StreakCalculator) Next(current int, last *time.Time, now time.Time) int {
	if last == nil {
		return 1
	}
	days := c.dayNumber(now) - c.dayNumber(*last)
	switch {
	case days == 0:
		if current < 1 {
			return 1
		}
		return current
	case days == 1:
		return current + 1
	default:
		return 1
	}
}

func (c StreakCalculator) dayNumber(t time.Time) int {
	local := t.In(c.loc)
	return int(time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// IsMilestone reports whether streak deserves a congratulation.
func IsMilestone(streak int) bool {
	for _, m := range StreakMilestones {
		if streak == m {
			return true
		}
	}
	return false
}
