package domain

import "time"

// AdaptationState adaptation counters of a schedule (adaptation_states table)
// Stored independently of the schedule row; the schedule's IsActive flag is authoritative.
type AdaptationState struct {
	ScheduleID string `db:"schedule_id"` // PRIMARY KEY, FK to schedules
	UserID     string `db:"user_id"`

	// AdaptationPhase cached value; the calculator result wins when they diverge
	AdaptationPhase     int       `db:"adaptation_phase"`
	AdaptationStartDate time.Time `db:"adaptation_start_date"` // last activation or reset
	TotalSleepHours     float64   `db:"total_sleep_hours"`
	UpdatedAt           time.Time `db:"updated_at"`
}

// AdaptationProgress derived view returned to callers
type AdaptationProgress struct {
	ScheduleID    string        `json:"schedule_id"`
	Phase         int           `json:"phase"`
	CurrentDay    int           `json:"current_day"`
	CompletedDays int           `json:"completed_days"`
	TotalDays     int           `json:"total_days"`
	IsComplete    bool          `json:"is_complete"`
	DurationClass DurationClass `json:"duration_class"`
	StartDate     time.Time     `json:"start_date"`
}

// UndoSnapshot single-slot copy of the previous schedule's adaptation counters
type UndoSnapshot struct {
	UserID                      string    `json:"user_id"`
	ScheduleID                  string    `json:"schedule_id"` // schedule that was replaced
	ChangeDate                  time.Time `json:"change_date"`
	PreviousStreak              int       `json:"previous_streak"` // opaque, round-tripped only
	PreviousAdaptationPhase     int       `json:"previous_adaptation_phase"`
	PreviousAdaptationStartDate time.Time `json:"previous_adaptation_start_date"`
}

// UndoStatus what the UI needs to decide whether to offer undo
type UndoStatus struct {
	Available  bool       `json:"available"`
	Dismissed  bool       `json:"dismissed"`
	ScheduleID string     `json:"schedule_id,omitempty"`
	ChangeDate *time.Time `json:"change_date,omitempty"`
}
