package adaptation

import (
	"testing"
	"time"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestCalculate_DayOneBoundary(t *testing.T) {
	start := day(2024, 3, 10, 8, 0)

	p := Calculate(start, start, domain.DurationTwentyOneDay)

	assert.Equal(t, 0, p.Phase)
	assert.Equal(t, 1, p.CurrentDay)
	assert.Equal(t, 1, p.CompletedDays)
	assert.Equal(t, 21, p.TotalDays)
	assert.False(t, p.IsComplete)

	// later the same calendar day
	p = Calculate(start, day(2024, 3, 10, 23, 59), domain.DurationTwentyOneDay)
	assert.Equal(t, 0, p.Phase)
	assert.Equal(t, 1, p.CompletedDays)
}

func TestCalculate_MidnightCountsAsNewDay(t *testing.T) {
	start := day(2024, 3, 10, 23, 59)
	now := day(2024, 3, 11, 0, 1)

	assert.Equal(t, 1, DaysBetween(start, now, time.UTC))

	p := Calculate(start, now, domain.DurationTwentyOneDay)
	assert.Equal(t, 2, p.CurrentDay)
	assert.Equal(t, 1, p.Phase)
}

func TestPhaseForDay_TwentyOneDay(t *testing.T) {
	cases := map[int]int{
		1: 0,
		2: 1, 7: 1,
		8: 2, 14: 2,
		15: 3, 21: 3,
		22: 4, 25: 4, 100: 4,
	}
	for d, want := range cases {
		assert.Equal(t, want, PhaseForDay(d, domain.DurationTwentyOneDay), "day %d", d)
	}
}

func TestPhaseForDay_TwentyEightDay(t *testing.T) {
	cases := map[int]int{
		1: 0,
		2: 1, 7: 1,
		8: 2, 14: 2,
		15: 3, 21: 3,
		22: 4, 25: 4, 28: 4,
		29: 5, 60: 5,
	}
	for d, want := range cases {
		assert.Equal(t, want, PhaseForDay(d, domain.DurationTwentyEightDay), "day %d", d)
	}
}

func TestCalculate_DayTwentyFive(t *testing.T) {
	start := day(2024, 1, 1, 12, 0)
	now := start.AddDate(0, 0, 24) // day 25

	long := Calculate(start, now, domain.DurationTwentyEightDay)
	assert.Equal(t, 4, long.Phase)
	assert.Equal(t, 25, long.CompletedDays)
	assert.False(t, long.IsComplete)

	short := Calculate(start, now, domain.DurationTwentyOneDay)
	assert.Equal(t, 4, short.Phase)
	assert.Equal(t, 21, short.CompletedDays)
	assert.True(t, short.IsComplete)
	assert.Equal(t, TerminalPhase(domain.DurationTwentyOneDay), short.Phase)
}

func TestCalculate_EverymanE3Scenario(t *testing.T) {
	class := domain.DurationClassFor(domain.ScheduleEverymanE3)
	require.Equal(t, domain.DurationTwentyOneDay, class)

	d := day(2024, 5, 1, 21, 30)

	p := Calculate(d, d.AddDate(0, 0, 8), class)
	assert.Equal(t, 9, p.CurrentDay)
	assert.Equal(t, 2, p.Phase)
	assert.False(t, p.IsComplete)

	// "on D+8" read as the eighth day of adaptation
	p = Calculate(d, d.AddDate(0, 0, 7), class)
	assert.Equal(t, 2, p.Phase)
	assert.Equal(t, 8, p.CompletedDays)
	assert.False(t, p.IsComplete)

	// "on D+22" the same way: day 22
	p = Calculate(d, d.AddDate(0, 0, 21), class)
	assert.Equal(t, 22, p.CurrentDay)
	assert.Equal(t, 4, p.Phase)
	assert.Equal(t, 21, p.CompletedDays)
	assert.True(t, p.IsComplete)

	p = Calculate(d, d.AddDate(0, 0, 22), class)
	assert.Equal(t, 4, p.Phase)
	assert.Equal(t, 21, p.CompletedDays)
	assert.True(t, p.IsComplete)
}

func TestCalculate_CompletionFlag(t *testing.T) {
	start := day(2024, 1, 1, 0, 0)

	p := Calculate(start, start.AddDate(0, 0, 20), domain.DurationTwentyOneDay)
	assert.Equal(t, 21, p.CurrentDay)
	assert.True(t, p.IsComplete)
	assert.Equal(t, 3, p.Phase)

	p = Calculate(start, start.AddDate(0, 0, 27), domain.DurationTwentyEightDay)
	assert.True(t, p.IsComplete)
	assert.Equal(t, 28, p.CompletedDays)
}

func TestCalculate_PhaseMonotonic(t *testing.T) {
	start := day(2024, 2, 20, 22, 15)
	for _, class := range []domain.DurationClass{domain.DurationTwentyOneDay, domain.DurationTwentyEightDay} {
		prev := -1
		for h := 0; h < 24*40; h += 7 {
			p := Calculate(start, start.Add(time.Duration(h)*time.Hour), class)
			assert.GreaterOrEqual(t, p.Phase, prev)
			prev = p.Phase
		}
		assert.Equal(t, TerminalPhase(class), prev)
	}
}

func TestCalculate_NowBeforeStartClamps(t *testing.T) {
	start := day(2024, 2, 20, 10, 0)
	p := Calculate(start, start.AddDate(0, 0, -3), domain.DurationTwentyOneDay)
	assert.Equal(t, 1, p.CurrentDay)
	assert.Equal(t, 0, p.Phase)
}

func TestCalculate_UnknownClassDefaultsToTwentyOne(t *testing.T) {
	start := day(2024, 2, 20, 10, 0)
	p := Calculate(start, start.AddDate(0, 0, 30), domain.DurationUnknown)
	assert.Equal(t, 21, p.TotalDays)
	assert.Equal(t, 4, p.Phase)
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// spring forward on 2024-03-10
	start := time.Date(2024, 3, 9, 23, 30, 0, 0, loc)
	now := time.Date(2024, 3, 11, 0, 15, 0, 0, loc)
	assert.Equal(t, 2, DaysBetween(start, now, loc))

	// the same instants seen from UTC land on different dates
	assert.Equal(t, 1, DaysBetween(start, now, time.UTC))
}

func TestSameDay(t *testing.T) {
	assert.True(t, SameDay(day(2024, 1, 1, 0, 0), day(2024, 1, 1, 23, 59), time.UTC))
	assert.False(t, SameDay(day(2024, 1, 1, 23, 59), day(2024, 1, 2, 0, 0), time.UTC))
	assert.Equal(t, day(2024, 1, 1, 0, 0), StartOfDay(day(2024, 1, 1, 17, 45)))
}
