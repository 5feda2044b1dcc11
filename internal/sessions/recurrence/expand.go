// Package recurrence materializes the occurrence windows of a recurring
// session. Expansion is pure: it touches no clock and no storage, so two
// calls with identical inputs produce identical sequences.
package recurrence

import (
	"time"

	apperrors "studiobook/pkg/errors"
	"studiobook/pkg/model"
)

// Window is one generated occurrence slot.
type Window struct {
	Start time.Time
	End   time.Time
}

// Expand returns the occurrence windows after the original (start, end) pair,
// in chronological order. The original pair is the parent session and is not
// included. Each window keeps the original duration. The sequence stops
// before the first start that falls after until.
//
// The monthly step uses time.AddDate's native normalization: stepping from
// Jan 31 lands on Mar 2/3 rather than clamping to the end of February. This
// mirrors the rollover behavior of date mutation in the scheduling clients.
func Expand(start, end time.Time, recurrenceType model.RecurrenceType, until time.Time) ([]Window, error) {
	step, err := stepFunc(recurrenceType)
	if err != nil {
		return nil, err
	}

	duration := end.Sub(start)

	var windows []Window
	for next := step(start); !next.After(until); next = step(next) {
		windows = append(windows, Window{
			Start: next,
			End:   next.Add(duration),
		})
	}

	return windows, nil
}

func stepFunc(recurrenceType model.RecurrenceType) (func(time.Time) time.Time, error) {
	switch recurrenceType {
	case model.RecurrenceWeekly:
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }, nil
	case model.RecurrenceBiweekly:
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 14) }, nil
	case model.RecurrenceMonthly:
		return func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }, nil
	default:
		return nil, apperrors.InvalidRecurrenceType(string(recurrenceType))
	}
}
