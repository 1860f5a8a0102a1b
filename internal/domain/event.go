package domain

import "time"

// AdaptationEventType kind of lifecycle change published to notification consumers
type AdaptationEventType string

const (
	EventScheduleActivated   AdaptationEventType = "schedule_activated"
	EventScheduleDeactivated AdaptationEventType = "schedule_deactivated"
	EventAdaptationReset     AdaptationEventType = "adaptation_reset"
	EventAdaptationRestored  AdaptationEventType = "adaptation_restored"
	EventPhaseChanged        AdaptationEventType = "phase_changed"
)

// AdaptationEvent tells downstream alarm/notification schedulers that something changed.
// The payload carries ids and counters only; content formatting is the consumer's job.
type AdaptationEvent struct {
	Type          AdaptationEventType `json:"type"`
	UserID        string              `json:"user_id"`
	ScheduleID    string              `json:"schedule_id"`
	ScheduleName  string              `json:"schedule_name,omitempty"`
	PreviousPhase int                 `json:"previous_phase"`
	Phase         int                 `json:"phase"`
	IsComplete    bool                `json:"is_complete"`
	OccurredAt    time.Time           `json:"occurred_at"`
}
