// Package recurrence computes due dates for the next instance of a
// recurring task.
package recurrence

import (
	"fmt"
	"time"

	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"
)

// Validate checks recurrence parameters
func Validate(interval domain.RecurrenceInterval, value int) error {
	if !interval.Valid() {
		return domain.NewValidationError("recurrenceInterval", fmt.Sprintf("%q is not one of days, weeks, months", interval))
	}
	if value < 1 {
		return domain.NewValidationError("recurrenceValue", "must be at least 1")
	}
	return nil
}

// NextDueDate returns the deadline of the instance that follows one
// completed at completedAt.
//
// On-time and early completions keep the original cadence by counting from
// the current deadline. Late completions restart the cadence from the
// completion time, so the result is never derived from a deadline that has
// already passed. A nil deadline counts as late.
func NextDueDate(deadline *time.Time, interval domain.RecurrenceInterval, value int, completedAt time.Time) (time.Time, error) {
	if err := Validate(interval, value); err != nil {
		return time.Time{}, err
	}

	base := completedAt
	if deadline != nil && !deadline.Before(completedAt) {
		base = *deadline
	}

	var next time.Time
	switch interval {
	case domain.IntervalDays:
		next = base.AddDate(0, 0, value)
	case domain.IntervalWeeks:
		next = base.AddDate(0, 0, 7*value)
	case domain.IntervalMonths:
		next = AddMonths(base, value)
	}

	if next.Before(completedAt) {
		next = completedAt
	}
	return next, nil
}

// AddMonths adds calendar months to t. When the day of month does not exist
// in the target month the result is clamped to that month's last day, so
// Jan 31 + 1 month is Feb 28 (or 29) rather than early March.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	target := time.Date(year, month+time.Month(months), 1, hour, min, sec, t.Nanosecond(), t.Location())
	if last := daysIn(target.Year(), target.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
