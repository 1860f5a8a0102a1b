// Package adaptation derives the adaptation phase of a schedule from elapsed calendar days.
// Everything here is pure: no I/O, no clock reads.
package adaptation

import (
	"time"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"
)

// phaseBoundaries last day (1-based, inclusive) of each non-terminal phase.
// Both classes share the first four; the 28-day class has one extra.
var phaseBoundaries = map[domain.DurationClass][]int{
	domain.DurationTwentyOneDay:   {1, 7, 14, 21},
	domain.DurationTwentyEightDay: {1, 7, 14, 21, 28},
}

// Calculate maps (start, now, class) to the adaptation progress.
// Day boundaries are taken in now's location.
func Calculate(start, now time.Time, class domain.DurationClass) domain.AdaptationProgress {
	if !class.Valid() {
		class = domain.DurationTwentyOneDay
	}

	daysPassed := DaysBetween(start, now, now.Location())
	if daysPassed < 0 {
		daysPassed = 0
	}
	currentDay := daysPassed + 1
	total := class.Days()

	completed := currentDay
	if completed > total {
		completed = total
	}

	return domain.AdaptationProgress{
		Phase:         PhaseForDay(currentDay, class),
		CurrentDay:    currentDay,
		CompletedDays: completed,
		TotalDays:     total,
		IsComplete:    currentDay >= total,
		DurationClass: class,
		StartDate:     start,
	}
}

// PhaseForDay phase index of a 1-based adaptation day
func PhaseForDay(day int, class domain.DurationClass) int {
	bounds, ok := phaseBoundaries[class]
	if !ok {
		bounds = phaseBoundaries[domain.DurationTwentyOneDay]
	}
	for phase, last := range bounds {
		if day <= last {
			return phase
		}
	}
	return len(bounds)
}

// TerminalPhase the "complete" phase of a class
func TerminalPhase(class domain.DurationClass) int {
	bounds, ok := phaseBoundaries[class]
	if !ok {
		bounds = phaseBoundaries[domain.DurationTwentyOneDay]
	}
	return len(bounds)
}

// DaysBetween whole calendar days from a's date to b's date in loc.
// 23:59 -> 00:01 next day is 1; same date is 0; negative when b's date is earlier.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	ad := dateOnly(a.In(loc))
	bd := dateOnly(b.In(loc))
	return int(bd.Sub(ad).Hours() / 24)
}

// SameDay reports whether a and b fall on the same calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DaysBetween(a, b, loc) == 0
}

// StartOfDay midnight of t's date in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// dateOnly re-anchors the wall date on UTC so DST shifts never produce 23h/25h days.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
