package service

import (
	"context"
	"errors"
	"time"

	"github.com/stanercelik/PolySleep-sub003/internal/adaptation"
	"github.com/stanercelik/PolySleep-sub003/internal/clock"
	"github.com/stanercelik/PolySleep-sub003/internal/domain"
	"github.com/stanercelik/PolySleep-sub003/internal/notify"
	"github.com/stanercelik/PolySleep-sub003/internal/repository"
	"github.com/stanercelik/PolySleep-sub003/internal/store"

	"go.uber.org/zap"
)

// SnapshotStore single-slot snapshot storage (store.UndoStore)
type SnapshotStore interface {
	Get(ctx context.Context, userID string) (*domain.UndoSnapshot, error) // store.ErrMiss when empty
	Put(ctx context.Context, snap *domain.UndoSnapshot) error
	Dismissed(ctx context.Context, userID string) (bool, error)
	SetDismissed(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string) error
}

// StreakStore external streak counter (store.StreakStore)
type StreakStore interface {
	Get(ctx context.Context, userID string) (int, error)
	Set(ctx context.Context, userID string, streak int) error
}

var (
	_ SnapshotStore = (*store.UndoStore)(nil)
	_ StreakStore   = (*store.StreakStore)(nil)
)

// UndoLedger same-day, single-use undo of the adaptation counters after a schedule switch.
// Undo never switches the schedule back; it only rewinds the active schedule's counters and the streak.
type UndoLedger struct {
	schedules repository.ScheduleStore
	snapshots SnapshotStore
	streaks   StreakStore
	clock     clock.Clock
	locks     *UserMutex
	publisher notify.Publisher
	logger    *zap.Logger
}

func NewUndoLedger(
	schedules repository.ScheduleStore,
	snapshots SnapshotStore,
	streaks StreakStore,
	clk clock.Clock,
	locks *UserMutex,
	publisher notify.Publisher,
	logger *zap.Logger,
) *UndoLedger {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &UndoLedger{
		schedules: schedules,
		snapshots: snapshots,
		streaks:   streaks,
		clock:     clk,
		locks:     locks,
		publisher: publisher,
		logger:    logger,
	}
}

// Snapshot stores the current adaptation counters of scheduleID, overwriting any previous snapshot.
// The phase recorded is the recomputed one, not the cached column.
// ErrNotFound when the schedule has no adaptation state (nothing to undo to).
func (l *UndoLedger) Snapshot(ctx context.Context, userID, scheduleID string, currentStreak int) error {
	sched, err := l.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return classify("undo.snapshot", err)
	}
	state, err := l.schedules.GetAdaptationState(ctx, scheduleID)
	if err != nil {
		return classify("undo.snapshot", err)
	}

	now := l.clock.Now()
	progress := adaptation.Calculate(state.AdaptationStartDate, now, sched.DurationClass)
	snap := &domain.UndoSnapshot{
		UserID:                      userID,
		ScheduleID:                  scheduleID,
		ChangeDate:                  now,
		PreviousStreak:              currentStreak,
		PreviousAdaptationPhase:     progress.Phase,
		PreviousAdaptationStartDate: state.AdaptationStartDate,
	}
	if err := l.snapshots.Put(ctx, snap); err != nil {
		return classify("undo.snapshot", err)
	}

	l.logger.Debug("undo snapshot stored",
		zap.String("user_id", userID),
		zap.String("schedule_id", scheduleID),
		zap.Int("phase", progress.Phase),
		zap.Int("streak", currentStreak),
	)
	return nil
}

// HasUndoAvailable true iff a snapshot exists and was taken on the same calendar day as now.
// Store failures read as "no undo".
func (l *UndoLedger) HasUndoAvailable(ctx context.Context, userID string, now time.Time) bool {
	snap, err := l.snapshots.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			l.logger.Warn("failed to read undo snapshot", zap.String("user_id", userID), zap.Error(err))
		}
		return false
	}
	return adaptation.SameDay(snap.ChangeDate, now, l.clock.Location())
}

// Status availability plus the dismissed flag for the UI prompt
func (l *UndoLedger) Status(ctx context.Context, userID string, now time.Time) (*domain.UndoStatus, error) {
	snap, err := l.snapshots.Get(ctx, userID)
	if errors.Is(err, store.ErrMiss) {
		return &domain.UndoStatus{}, nil
	}
	if err != nil {
		return nil, classify("undo.status", err)
	}
	dismissed, err := l.snapshots.Dismissed(ctx, userID)
	if err != nil {
		return nil, classify("undo.status", err)
	}
	changeDate := snap.ChangeDate
	return &domain.UndoStatus{
		Available:  adaptation.SameDay(snap.ChangeDate, now, l.clock.Location()),
		Dismissed:  dismissed,
		ScheduleID: snap.ScheduleID,
		ChangeDate: &changeDate,
	}, nil
}

// Restore rewinds the active schedule's adaptation counters and the streak to the snapshot.
// Order: counters (one store transaction), then streak, then the snapshot is cleared.
// A failure after the transaction leaves the snapshot in place so the whole restore can be retried.
func (l *UndoLedger) Restore(ctx context.Context, userID string, now time.Time) error {
	var out outbox
	defer out.flush(ctx, l.publisher, l.logger)
	unlock := l.locks.Lock(userID)
	defer unlock()

	snap, err := l.snapshots.Get(ctx, userID)
	if errors.Is(err, store.ErrMiss) {
		return ErrNoUndoData
	}
	if err != nil {
		return classify("undo.restore", err)
	}
	if !adaptation.SameDay(snap.ChangeDate, now, l.clock.Location()) {
		return ErrUndoExpired
	}

	var ev domain.AdaptationEvent
	err = l.schedules.WithTx(ctx, func(tx repository.ScheduleTx) error {
		active, err := tx.FindSchedules(ctx, repository.ScheduleFilter{UserID: userID, ActiveOnly: true})
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return ErrNotFound
		}
		target := latestUpdated(active)

		prevPhase := 0
		if st, err := tx.GetAdaptationState(ctx, target.ScheduleID); err == nil {
			prevPhase = st.AdaptationPhase
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if err := tx.UpsertAdaptationState(ctx, &domain.AdaptationState{
			ScheduleID:          target.ScheduleID,
			UserID:              userID,
			AdaptationPhase:     snap.PreviousAdaptationPhase,
			AdaptationStartDate: snap.PreviousAdaptationStartDate,
			TotalSleepHours:     target.TotalSleepHours,
			UpdatedAt:           l.clock.Now(),
		}); err != nil {
			return err
		}

		progress := adaptation.Calculate(snap.PreviousAdaptationStartDate, now, target.DurationClass)
		ev = domain.AdaptationEvent{
			Type:          domain.EventAdaptationRestored,
			UserID:        userID,
			ScheduleID:    target.ScheduleID,
			ScheduleName:  target.Name,
			PreviousPhase: prevPhase,
			Phase:         snap.PreviousAdaptationPhase,
			IsComplete:    progress.IsComplete,
			OccurredAt:    l.clock.Now(),
		}
		return nil
	})
	if err != nil {
		return classify("undo.restore", err)
	}

	if err := l.streaks.Set(ctx, userID, snap.PreviousStreak); err != nil {
		return classify("undo.restore.streak", err)
	}
	if err := l.snapshots.Delete(ctx, userID); err != nil {
		return classify("undo.restore.clear", err)
	}

	l.logger.Info("undo applied",
		zap.String("user_id", userID),
		zap.String("schedule_id", ev.ScheduleID),
		zap.Int("phase", snap.PreviousAdaptationPhase),
		zap.Int("streak", snap.PreviousStreak),
	)
	out.add(ev)
	return nil
}

// Dismiss stops the UI prompting for the current snapshot without discarding it.
// No-op when there is no snapshot.
func (l *UndoLedger) Dismiss(ctx context.Context, userID string) error {
	if _, err := l.snapshots.Get(ctx, userID); err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil
		}
		return classify("undo.dismiss", err)
	}
	return classify("undo.dismiss", l.snapshots.SetDismissed(ctx, userID))
}

// Clear discards the snapshot and the dismissed flag
func (l *UndoLedger) Clear(ctx context.Context, userID string) error {
	return classify("undo.clear", l.snapshots.Delete(ctx, userID))
}

// undoSlot the stored snapshot and its dismissed flag, as they were before a switch
type undoSlot struct {
	snap      *domain.UndoSnapshot
	dismissed bool
}

func (l *UndoLedger) saveSlot(ctx context.Context, userID string) (undoSlot, error) {
	snap, err := l.snapshots.Get(ctx, userID)
	if errors.Is(err, store.ErrMiss) {
		return undoSlot{}, nil
	}
	if err != nil {
		return undoSlot{}, classify("undo.snapshot", err)
	}
	dismissed, err := l.snapshots.Dismissed(ctx, userID)
	if err != nil {
		return undoSlot{}, classify("undo.snapshot", err)
	}
	return undoSlot{snap: snap, dismissed: dismissed}, nil
}

// restoreSlot puts back what saveSlot read; an empty slot clears the snapshot
func (l *UndoLedger) restoreSlot(ctx context.Context, userID string, slot undoSlot) error {
	if slot.snap == nil {
		return l.snapshots.Delete(ctx, userID)
	}
	if err := l.snapshots.Put(ctx, slot.snap); err != nil {
		return err
	}
	if slot.dismissed {
		return l.snapshots.SetDismissed(ctx, userID)
	}
	return nil
}

// latestUpdated picks the most recently touched schedule (several actives only in a corrupted state)
func latestUpdated(schedules []*domain.Schedule) *domain.Schedule {
	best := schedules[0]
	for _, s := range schedules[1:] {
		if s.UpdatedAt.After(best.UpdatedAt) {
			best = s
		}
	}
	return best
}
