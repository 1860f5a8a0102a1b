package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stanercelik/PolySleep-sub003/internal/adaptation"
	"github.com/stanercelik/PolySleep-sub003/internal/clock"
	"github.com/stanercelik/PolySleep-sub003/internal/domain"
	"github.com/stanercelik/PolySleep-sub003/internal/notify"
	"github.com/stanercelik/PolySleep-sub003/internal/repository"

	"go.uber.org/zap"
)

// Reconciler polls active schedules and overwrites cached adaptation phases that drifted
// from the computed value, publishing phase_changed for each correction.
type Reconciler struct {
	schedules repository.ScheduleStore
	clock     clock.Clock
	locks     *UserMutex
	publisher notify.Publisher
	interval  time.Duration
	logger    *zap.Logger
}

func NewReconciler(
	schedules repository.ScheduleStore,
	clk clock.Clock,
	locks *UserMutex,
	publisher notify.Publisher,
	interval time.Duration,
	logger *zap.Logger,
) *Reconciler {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Reconciler{
		schedules: schedules,
		clock:     clk,
		locks:     locks,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
	}
}

// Start runs ReconcileOnce immediately and then every interval until ctx is cancelled
func (r *Reconciler) Start(ctx context.Context) error {
	r.logger.Info("adaptation reconciler started", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if _, err := r.ReconcileOnce(ctx); err != nil {
		r.logger.Error("failed to reconcile adaptation phases on startup", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("adaptation reconciler stopped")
			return nil
		case <-ticker.C:
			if _, err := r.ReconcileOnce(ctx); err != nil {
				r.logger.Error("failed to reconcile adaptation phases", zap.Error(err))
			}
		}
	}
}

// ReconcileOnce one pass over every active schedule; returns how many phases were corrected.
// Per-schedule failures are logged and skipped.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (int, error) {
	active, err := r.schedules.ListActiveSchedules(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active schedules: %w", err)
	}

	corrected := 0
	for _, s := range active {
		select {
		case <-ctx.Done():
			return corrected, ctx.Err()
		default:
		}

		changed, err := r.reconcile(ctx, s)
		if err != nil {
			r.logger.Warn("failed to reconcile schedule",
				zap.String("user_id", s.UserID),
				zap.String("schedule_id", s.ScheduleID),
				zap.Error(err),
			)
			continue
		}
		if changed {
			corrected++
		}
	}

	r.logger.Debug("adaptation reconcile pass done",
		zap.Int("active", len(active)),
		zap.Int("corrected", corrected),
	)
	return corrected, nil
}

func (r *Reconciler) reconcile(ctx context.Context, s *domain.Schedule) (bool, error) {
	var out outbox
	defer out.flush(ctx, r.publisher, r.logger)
	unlock := r.locks.Lock(s.UserID)
	defer unlock()

	var ev domain.AdaptationEvent
	err := r.schedules.WithTx(ctx, func(tx repository.ScheduleTx) error {
		current, err := tx.GetSchedule(ctx, s.ScheduleID)
		if err != nil {
			return err
		}
		if !current.IsActive || current.IsDeleted {
			return nil
		}
		state, err := tx.GetAdaptationState(ctx, s.ScheduleID)
		if err != nil {
			return err
		}

		now := r.clock.Now()
		progress := adaptation.Calculate(state.AdaptationStartDate, now, current.DurationClass)
		if progress.Phase == state.AdaptationPhase {
			return nil
		}

		prev := state.AdaptationPhase
		state.AdaptationPhase = progress.Phase
		state.UpdatedAt = now
		if err := tx.UpsertAdaptationState(ctx, state); err != nil {
			return err
		}
		ev = domain.AdaptationEvent{
			Type:          domain.EventPhaseChanged,
			UserID:        current.UserID,
			ScheduleID:    current.ScheduleID,
			ScheduleName:  current.Name,
			PreviousPhase: prev,
			Phase:         progress.Phase,
			IsComplete:    progress.IsComplete,
			OccurredAt:    now,
		}
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		// active schedule without adaptation state; the schedule row stays authoritative
		r.logger.Debug("no adaptation state for active schedule", zap.String("schedule_id", s.ScheduleID))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if ev.Type == "" {
		return false, nil
	}

	r.logger.Info("adaptation phase changed",
		zap.String("user_id", ev.UserID),
		zap.String("schedule_id", ev.ScheduleID),
		zap.Int("previous_phase", ev.PreviousPhase),
		zap.Int("phase", ev.Phase),
	)
	out.add(ev)
	return true, nil
}
