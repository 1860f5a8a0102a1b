package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"
)

const minutesPerDay = 24 * 60

// normalizeSchedule validates s in place and fills derived fields:
// schedule type defaults to custom, duration class comes from the policy table when unset,
// total sleep hours is recomputed when zero, blocks are ordered by start.
func normalizeSchedule(s *domain.Schedule) error {
	if s == nil {
		return fmt.Errorf("%w: schedule is required", ErrInvalidSchedule)
	}
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSchedule)
	}

	if s.ScheduleType == "" {
		s.ScheduleType = domain.ScheduleCustom
	}
	if !domain.KnownScheduleType(s.ScheduleType) {
		return fmt.Errorf("%w: unknown schedule type %q", ErrInvalidSchedule, s.ScheduleType)
	}
	if s.DurationClass == domain.DurationUnknown {
		s.DurationClass = domain.DurationClassFor(s.ScheduleType)
	}
	if !s.DurationClass.Valid() {
		return fmt.Errorf("%w: unsupported duration class %d", ErrInvalidSchedule, int(s.DurationClass))
	}

	if len(s.Blocks) == 0 {
		return fmt.Errorf("%w: at least one sleep block is required", ErrInvalidSchedule)
	}
	total := 0
	for i, b := range s.Blocks {
		if b.StartMinute < 0 || b.StartMinute >= minutesPerDay {
			return fmt.Errorf("%w: block %d starts at minute %d", ErrInvalidSchedule, i, b.StartMinute)
		}
		if b.DurationMinutes <= 0 {
			return fmt.Errorf("%w: block %d has non-positive duration", ErrInvalidSchedule, i)
		}
		total += b.DurationMinutes
	}
	if total > minutesPerDay {
		return fmt.Errorf("%w: blocks cover %d minutes, more than a day", ErrInvalidSchedule, total)
	}

	sort.SliceStable(s.Blocks, func(i, j int) bool { return s.Blocks[i].StartMinute < s.Blocks[j].StartMinute })
	for i := 0; i+1 < len(s.Blocks); i++ {
		if s.Blocks[i].EndMinute() > s.Blocks[i+1].StartMinute {
			return fmt.Errorf("%w: blocks starting at minute %d and %d overlap",
				ErrInvalidSchedule, s.Blocks[i].StartMinute, s.Blocks[i+1].StartMinute)
		}
	}
	// last block may run past midnight into the first one
	last, first := s.Blocks[len(s.Blocks)-1], s.Blocks[0]
	if len(s.Blocks) > 1 && last.EndMinute()-minutesPerDay > first.StartMinute {
		return fmt.Errorf("%w: block starting at minute %d wraps into minute %d",
			ErrInvalidSchedule, last.StartMinute, first.StartMinute)
	}

	if s.TotalSleepHours <= 0 {
		s.TotalSleepHours = s.SumBlockHours()
	}
	return nil
}
