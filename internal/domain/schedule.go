package domain

import "time"

// Schedule sleep schedule owned by a single user (schedules table)
type Schedule struct {
	ScheduleID string `json:"schedule_id" db:"schedule_id"` // PRIMARY KEY, generated UUID unless supplied
	UserID     string `json:"user_id" db:"user_id"`         // owning user, lookup by id only

	Name         string            `json:"name" db:"name"`
	ScheduleType ScheduleType      `json:"schedule_type" db:"schedule_type"`
	Descriptions map[string]string `json:"descriptions" db:"descriptions"` // locale -> text, JSONB

	// DurationClass is fixed when the schedule is authored; never derived from Name
	DurationClass DurationClass `json:"duration_class" db:"duration_class"`

	TotalSleepHours float64      `json:"total_sleep_hours" db:"total_sleep_hours"`
	Blocks          []SleepBlock `json:"blocks" db:"-"` // ordered by StartMinute

	IsActive  bool      `json:"is_active" db:"is_active"`
	IsDeleted bool      `json:"is_deleted" db:"is_deleted"` // soft delete
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SleepBlock contiguous sleep interval inside a schedule (sleep_blocks table)
// Blocks are always replaced wholesale together with their schedule.
type SleepBlock struct {
	BlockID         string `json:"block_id" db:"block_id"`
	ScheduleID      string `json:"schedule_id" db:"schedule_id"`
	StartMinute     int    `json:"start_minute" db:"start_minute"` // minutes after midnight, [0, 1440)
	DurationMinutes int    `json:"duration_minutes" db:"duration_minutes"`
	IsCore          bool   `json:"is_core" db:"is_core"` // core sleep vs nap
}

// EndMinute end of the block in minutes after the start-of-day; may exceed 1440
func (b SleepBlock) EndMinute() int {
	return b.StartMinute + b.DurationMinutes
}

// Description returns the localized description, falling back to "en" and then any value.
func (s *Schedule) Description(locale string) string {
	if d, ok := s.Descriptions[locale]; ok {
		return d
	}
	if d, ok := s.Descriptions["en"]; ok {
		return d
	}
	for _, d := range s.Descriptions {
		return d
	}
	return ""
}

// SumBlockHours total planned sleep of all blocks in hours
func (s *Schedule) SumBlockHours() float64 {
	total := 0
	for _, b := range s.Blocks {
		total += b.DurationMinutes
	}
	return float64(total) / 60.0
}

// Clone deep copy; stores hand out clones so callers never alias stored rows.
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	c := *s
	if s.Descriptions != nil {
		c.Descriptions = make(map[string]string, len(s.Descriptions))
		for k, v := range s.Descriptions {
			c.Descriptions[k] = v
		}
	}
	if s.Blocks != nil {
		c.Blocks = make([]SleepBlock, len(s.Blocks))
		copy(c.Blocks, s.Blocks)
	}
	return &c
}
