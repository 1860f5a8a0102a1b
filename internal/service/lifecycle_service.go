package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stanercelik/PolySleep-sub003/internal/clock"
	"github.com/stanercelik/PolySleep-sub003/internal/domain"
	"github.com/stanercelik/PolySleep-sub003/internal/notify"
	"github.com/stanercelik/PolySleep-sub003/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LifecycleManager owns the one-active-schedule-per-user invariant.
// Every write runs in one store transaction, under the per-user lock.
type LifecycleManager struct {
	schedules repository.ScheduleStore
	undo      *UndoLedger
	streaks   StreakStore
	clock     clock.Clock
	locks     *UserMutex
	publisher notify.Publisher
	logger    *zap.Logger
}

func NewLifecycleManager(
	schedules repository.ScheduleStore,
	undo *UndoLedger,
	streaks StreakStore,
	clk clock.Clock,
	locks *UserMutex,
	publisher notify.Publisher,
	logger *zap.Logger,
) *LifecycleManager {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &LifecycleManager{
		schedules: schedules,
		undo:      undo,
		streaks:   streaks,
		clock:     clk,
		locks:     locks,
		publisher: publisher,
		logger:    logger,
	}
}

// Activate switches userID to s: snapshot the replaced schedule for undo, deactivate every
// other active schedule, upsert s, replace its blocks, restart adaptation at day 1.
// s is not modified; the persisted copy is returned.
func (m *LifecycleManager) Activate(ctx context.Context, userID string, s *domain.Schedule) (*domain.Schedule, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidSchedule)
	}
	next := s.Clone()
	if err := normalizeSchedule(next); err != nil {
		return nil, err
	}
	if next.ScheduleID == "" {
		next.ScheduleID = uuid.NewString()
	}
	if next.UserID != "" && next.UserID != userID {
		return nil, fmt.Errorf("%w: schedule belongs to another user", ErrInvalidSchedule)
	}
	next.UserID = userID

	var out outbox
	defer out.flush(ctx, m.publisher, m.logger)
	unlock := m.locks.Lock(userID)
	defer unlock()

	// ownership is checked again inside the transaction; this keeps a foreign id from touching the undo slot
	if existing, err := m.schedules.GetSchedule(ctx, next.ScheduleID); err == nil && existing.UserID != userID {
		return nil, fmt.Errorf("%w: schedule %s belongs to another user", ErrInvalidSchedule, next.ScheduleID)
	}

	rollbackUndo, err := m.snapshotReplaced(ctx, userID, next.ScheduleID)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	blocks := make([]domain.SleepBlock, len(next.Blocks))
	for i, b := range next.Blocks {
		b.BlockID = uuid.NewString()
		b.ScheduleID = next.ScheduleID
		blocks[i] = b
	}
	next.Blocks = blocks

	var deactivated []*domain.Schedule
	err = m.schedules.WithTx(ctx, func(tx repository.ScheduleTx) error {
		var err error
		deactivated, err = m.deactivateOthers(ctx, tx, userID, next.ScheduleID)
		if err != nil {
			return err
		}

		existing, err := tx.GetSchedule(ctx, next.ScheduleID)
		switch {
		case err == nil:
			if existing.UserID != userID {
				return fmt.Errorf("%w: schedule %s belongs to another user", ErrInvalidSchedule, next.ScheduleID)
			}
			next.CreatedAt = existing.CreatedAt
		case errors.Is(err, repository.ErrNotFound):
			existing = nil
			next.CreatedAt = now
		default:
			return err
		}

		next.IsActive = true
		next.IsDeleted = false
		next.UpdatedAt = now
		if existing != nil {
			err = tx.UpdateSchedule(ctx, next)
		} else {
			err = tx.InsertSchedule(ctx, next)
		}
		if err != nil {
			return err
		}

		if err := tx.DeleteSleepBlocks(ctx, next.ScheduleID); err != nil {
			return err
		}
		if err := tx.InsertSleepBlocks(ctx, next.ScheduleID, next.Blocks); err != nil {
			return err
		}

		return tx.UpsertAdaptationState(ctx, &domain.AdaptationState{
			ScheduleID:          next.ScheduleID,
			UserID:              userID,
			AdaptationPhase:     0,
			AdaptationStartDate: now,
			TotalSleepHours:     next.TotalSleepHours,
			UpdatedAt:           now,
		})
	})
	if err != nil {
		rollbackUndo()
		m.logger.Error("schedule activation failed",
			zap.String("user_id", userID),
			zap.String("schedule_id", next.ScheduleID),
			zap.Error(err),
		)
		return nil, classify("activate", err)
	}

	m.logger.Info("schedule activated",
		zap.String("user_id", userID),
		zap.String("schedule_id", next.ScheduleID),
		zap.String("schedule_type", string(next.ScheduleType)),
		zap.Int("deactivated", len(deactivated)),
	)
	for _, d := range deactivated {
		out.add(m.event(domain.EventScheduleDeactivated, d, 0, 0))
	}
	out.add(m.event(domain.EventScheduleActivated, next, 0, 0))
	return next, nil
}

// snapshotReplaced records undo data for the schedule about to be replaced and returns
// a func that puts the previous undo slot back if the switch does not commit.
// Missing adaptation state means there is nothing to undo to and is not an error.
func (m *LifecycleManager) snapshotReplaced(ctx context.Context, userID, nextID string) (func(), error) {
	noop := func() {}
	active, err := m.schedules.FindSchedules(ctx, repository.ScheduleFilter{UserID: userID, ActiveOnly: true})
	if err != nil {
		return noop, classify("activate.snapshot", err)
	}
	var current *domain.Schedule
	for _, s := range active {
		if s.ScheduleID == nextID {
			continue
		}
		if current == nil || s.UpdatedAt.After(current.UpdatedAt) {
			current = s
		}
	}
	if current == nil {
		return noop, nil
	}

	streak, err := m.streaks.Get(ctx, userID)
	if err != nil {
		return noop, classify("activate.snapshot", err)
	}
	prev, err := m.undo.saveSlot(ctx, userID)
	if err != nil {
		return noop, err
	}
	err = m.undo.Snapshot(ctx, userID, current.ScheduleID, streak)
	if errors.Is(err, ErrNotFound) {
		m.logger.Warn("replaced schedule has no adaptation state, skipping undo snapshot",
			zap.String("user_id", userID),
			zap.String("schedule_id", current.ScheduleID),
		)
		return noop, nil
	}
	if err != nil {
		return noop, err
	}

	return func() {
		// ctx may be the reason the switch failed
		if err := m.undo.restoreSlot(context.WithoutCancel(ctx), userID, prev); err != nil {
			m.logger.Error("failed to restore undo snapshot after aborted switch",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}, nil
}

// deactivateOthers clears isActive on every active schedule of userID except keepID.
// Rows that vanished meanwhile are logged and skipped.
func (m *LifecycleManager) deactivateOthers(ctx context.Context, tx repository.ScheduleTx, userID, keepID string) ([]*domain.Schedule, error) {
	active, err := tx.FindSchedules(ctx, repository.ScheduleFilter{UserID: userID, ActiveOnly: true, IncludeDeleted: true})
	if err != nil {
		return nil, err
	}
	now := m.clock.Now()
	var done []*domain.Schedule
	for _, s := range active {
		if s.ScheduleID == keepID {
			continue
		}
		s.IsActive = false
		s.UpdatedAt = now
		if err := tx.UpdateSchedule(ctx, s); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				m.logger.Warn("sibling schedule vanished during deactivation",
					zap.String("user_id", userID),
					zap.String("schedule_id", s.ScheduleID),
				)
				continue
			}
			return nil, err
		}
		done = append(done, s)
	}
	if len(done) > 1 {
		m.logger.Warn("user had several active schedules",
			zap.String("user_id", userID),
			zap.Int("count", len(done)),
		)
	}
	return done, nil
}

// SetActive toggles the flag only; adaptation counters are untouched except that a
// schedule activated here without any adaptation state gets a fresh one.
func (m *LifecycleManager) SetActive(ctx context.Context, userID, scheduleID string, active bool) error {
	var out outbox
	defer out.flush(ctx, m.publisher, m.logger)
	unlock := m.locks.Lock(userID)
	defer unlock()

	now := m.clock.Now()
	var target *domain.Schedule
	var deactivated []*domain.Schedule
	err := m.schedules.WithTx(ctx, func(tx repository.ScheduleTx) error {
		s, err := tx.GetSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if s.IsDeleted || s.UserID != userID {
			return fmt.Errorf("schedule %s: %w", scheduleID, ErrNotFound)
		}
		target = s

		if !active {
			s.IsActive = false
			s.UpdatedAt = now
			return tx.UpdateSchedule(ctx, s)
		}

		deactivated, err = m.deactivateOthers(ctx, tx, userID, scheduleID)
		if err != nil {
			return err
		}
		s.IsActive = true
		s.UpdatedAt = now
		if err := tx.UpdateSchedule(ctx, s); err != nil {
			return err
		}

		_, err = tx.GetAdaptationState(ctx, scheduleID)
		if errors.Is(err, repository.ErrNotFound) {
			return tx.UpsertAdaptationState(ctx, &domain.AdaptationState{
				ScheduleID:          scheduleID,
				UserID:              userID,
				AdaptationStartDate: now,
				TotalSleepHours:     s.TotalSleepHours,
				UpdatedAt:           now,
			})
		}
		return err
	})
	if err != nil {
		return classify("set_active", err)
	}

	m.logger.Info("schedule active flag set",
		zap.String("user_id", userID),
		zap.String("schedule_id", scheduleID),
		zap.Bool("active", active),
	)
	for _, d := range deactivated {
		out.add(m.event(domain.EventScheduleDeactivated, d, 0, 0))
	}
	if active {
		out.add(m.event(domain.EventScheduleActivated, target, 0, 0))
	} else {
		out.add(m.event(domain.EventScheduleDeactivated, target, 0, 0))
	}
	return nil
}

// DeactivateAll clears isActive on every schedule of userID. Idempotent.
func (m *LifecycleManager) DeactivateAll(ctx context.Context, userID string) error {
	var out outbox
	defer out.flush(ctx, m.publisher, m.logger)
	unlock := m.locks.Lock(userID)
	defer unlock()

	var deactivated []*domain.Schedule
	err := m.schedules.WithTx(ctx, func(tx repository.ScheduleTx) error {
		var err error
		deactivated, err = m.deactivateOthers(ctx, tx, userID, "")
		return err
	})
	if err != nil {
		return classify("deactivate_all", err)
	}

	if len(deactivated) > 0 {
		m.logger.Info("all schedules deactivated",
			zap.String("user_id", userID),
			zap.Int("count", len(deactivated)),
		)
	}
	for _, d := range deactivated {
		out.add(m.event(domain.EventScheduleDeactivated, d, 0, 0))
	}
	return nil
}

// ResetAdaptationPhase restarts the adaptation clock of scheduleID today.
// ErrNoActiveSchedule unless scheduleID is its owner's active schedule.
func (m *LifecycleManager) ResetAdaptationPhase(ctx context.Context, scheduleID string) error {
	s, err := m.schedules.GetSchedule(ctx, scheduleID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNoActiveSchedule
	}
	if err != nil {
		return classify("reset_adaptation", err)
	}

	var out outbox
	defer out.flush(ctx, m.publisher, m.logger)
	unlock := m.locks.Lock(s.UserID)
	defer unlock()

	now := m.clock.Now()
	var ev domain.AdaptationEvent
	err = m.schedules.WithTx(ctx, func(tx repository.ScheduleTx) error {
		target, err := tx.GetSchedule(ctx, scheduleID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoActiveSchedule
		}
		if err != nil {
			return err
		}
		if !target.IsActive || target.IsDeleted {
			return ErrNoActiveSchedule
		}

		prevPhase := 0
		if st, err := tx.GetAdaptationState(ctx, scheduleID); err == nil {
			prevPhase = st.AdaptationPhase
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if err := tx.UpsertAdaptationState(ctx, &domain.AdaptationState{
			ScheduleID:          scheduleID,
			UserID:              target.UserID,
			AdaptationPhase:     0,
			AdaptationStartDate: now,
			TotalSleepHours:     target.TotalSleepHours,
			UpdatedAt:           now,
		}); err != nil {
			return err
		}
		ev = m.event(domain.EventAdaptationReset, target, prevPhase, 0)
		return nil
	})
	if err != nil {
		return classify("reset_adaptation", err)
	}

	m.logger.Info("adaptation reset",
		zap.String("user_id", ev.UserID),
		zap.String("schedule_id", scheduleID),
		zap.Int("previous_phase", ev.PreviousPhase),
	)
	out.add(ev)
	return nil
}

// SoftDelete marks the schedule deleted and inactive; rows are never removed
func (m *LifecycleManager) SoftDelete(ctx context.Context, userID, scheduleID string) error {
	var out outbox
	defer out.flush(ctx, m.publisher, m.logger)
	unlock := m.locks.Lock(userID)
	defer unlock()

	var wasActive bool
	var target *domain.Schedule
	err := m.schedules.WithTx(ctx, func(tx repository.ScheduleTx) error {
		s, err := tx.GetSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if s.IsDeleted || s.UserID != userID {
			return fmt.Errorf("schedule %s: %w", scheduleID, ErrNotFound)
		}
		wasActive = s.IsActive
		s.IsActive = false
		s.IsDeleted = true
		s.UpdatedAt = m.clock.Now()
		target = s
		return tx.UpdateSchedule(ctx, s)
	})
	if err != nil {
		return classify("soft_delete", err)
	}

	m.logger.Info("schedule deleted",
		zap.String("user_id", userID),
		zap.String("schedule_id", scheduleID),
		zap.Bool("was_active", wasActive),
	)
	if wasActive {
		out.add(m.event(domain.EventScheduleDeactivated, target, 0, 0))
	}
	return nil
}

func (m *LifecycleManager) event(t domain.AdaptationEventType, s *domain.Schedule, prevPhase, phase int) domain.AdaptationEvent {
	return domain.AdaptationEvent{
		Type:          t,
		UserID:        s.UserID,
		ScheduleID:    s.ScheduleID,
		ScheduleName:  s.Name,
		PreviousPhase: prevPhase,
		Phase:         phase,
		OccurredAt:    m.clock.Now(),
	}
}
