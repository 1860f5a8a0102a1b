package repository

import (
	"context"
	"errors"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"
)

// ErrNotFound referenced row does not exist
var ErrNotFound = errors.New("not found")

// ScheduleFilter predicate for FindSchedules
type ScheduleFilter struct {
	UserID         string // required unless ScheduleID is set
	ScheduleID     string
	ActiveOnly     bool
	IncludeDeleted bool
}

// ScheduleStore durable storage of schedules, blocks and adaptation states.
// Read methods never mutate; every write goes through WithTx.
type ScheduleStore interface {
	// WithTx runs fn inside one write transaction: commit iff fn returns nil.
	WithTx(ctx context.Context, fn func(tx ScheduleTx) error) error

	GetSchedule(ctx context.Context, scheduleID string) (*domain.Schedule, error)
	FindSchedules(ctx context.Context, filter ScheduleFilter) ([]*domain.Schedule, error)
	GetAdaptationState(ctx context.Context, scheduleID string) (*domain.AdaptationState, error)

	// ListActiveSchedules every non-deleted active schedule across users (reconciler)
	ListActiveSchedules(ctx context.Context) ([]*domain.Schedule, error)
}

// ScheduleTx operations available inside a write transaction
type ScheduleTx interface {
	FindSchedules(ctx context.Context, filter ScheduleFilter) ([]*domain.Schedule, error)
	// GetSchedule includes soft-deleted rows; callers decide
	GetSchedule(ctx context.Context, scheduleID string) (*domain.Schedule, error)

	InsertSchedule(ctx context.Context, s *domain.Schedule) error
	// UpdateSchedule writes every column except blocks; ErrNotFound if the row is gone
	UpdateSchedule(ctx context.Context, s *domain.Schedule) error

	DeleteSleepBlocks(ctx context.Context, scheduleID string) error
	InsertSleepBlocks(ctx context.Context, scheduleID string, blocks []domain.SleepBlock) error

	GetAdaptationState(ctx context.Context, scheduleID string) (*domain.AdaptationState, error)
	UpsertAdaptationState(ctx context.Context, state *domain.AdaptationState) error
}
