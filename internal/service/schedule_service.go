package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stanercelik/PolySleep-sub003/internal/adaptation"
	"github.com/stanercelik/PolySleep-sub003/internal/catalog"
	"github.com/stanercelik/PolySleep-sub003/internal/clock"
	"github.com/stanercelik/PolySleep-sub003/internal/domain"
	"github.com/stanercelik/PolySleep-sub003/internal/repository"

	"go.uber.org/zap"
)

// ScheduleService facade used by the HTTP layer
type ScheduleService interface {
	SaveAndActivate(ctx context.Context, userID string, s *domain.Schedule) (*domain.Schedule, error)
	ActivateTemplate(ctx context.Context, userID string, key domain.ScheduleType) (*domain.Schedule, error)
	SetActive(ctx context.Context, userID, scheduleID string, active bool) error
	DeactivateAll(ctx context.Context, userID string) error
	SoftDelete(ctx context.Context, userID, scheduleID string) error
	ResetAdaptation(ctx context.Context, userID, scheduleID string) error

	GetSchedule(ctx context.Context, userID, scheduleID string) (*domain.Schedule, error)
	ListSchedules(ctx context.Context, userID string) ([]*domain.Schedule, error)
	ActiveSchedule(ctx context.Context, userID string) (*domain.Schedule, error)
	CurrentAdaptation(ctx context.Context, scheduleID string, now time.Time) (*domain.AdaptationProgress, error)

	HasUndoAvailable(ctx context.Context, userID string, now time.Time) bool
	UndoStatus(ctx context.Context, userID string, now time.Time) (*domain.UndoStatus, error)
	UndoLastChange(ctx context.Context, userID string, now time.Time) error
	DismissUndo(ctx context.Context, userID string) error
	ClearUndo(ctx context.Context, userID string) error

	Templates() []catalog.Template
	ExportTemplates() ([]byte, error)
}

type scheduleService struct {
	schedules repository.ScheduleStore
	lifecycle *LifecycleManager
	undo      *UndoLedger
	catalog   *catalog.Catalog
	clock     clock.Clock
	logger    *zap.Logger
}

func NewScheduleService(
	schedules repository.ScheduleStore,
	lifecycle *LifecycleManager,
	undo *UndoLedger,
	cat *catalog.Catalog,
	clk clock.Clock,
	logger *zap.Logger,
) ScheduleService {
	if cat == nil {
		cat = catalog.New()
	}
	return &scheduleService{
		schedules: schedules,
		lifecycle: lifecycle,
		undo:      undo,
		catalog:   cat,
		clock:     clk,
		logger:    logger,
	}
}

func (s *scheduleService) SaveAndActivate(ctx context.Context, userID string, sched *domain.Schedule) (*domain.Schedule, error) {
	return s.lifecycle.Activate(ctx, userID, sched)
}

// ActivateTemplate instantiates a catalog template as a new schedule and activates it
func (s *scheduleService) ActivateTemplate(ctx context.Context, userID string, key domain.ScheduleType) (*domain.Schedule, error) {
	tpl, ok := s.catalog.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: unknown template %q", ErrInvalidSchedule, key)
	}
	return s.lifecycle.Activate(ctx, userID, tpl.ToSchedule(userID))
}

func (s *scheduleService) SetActive(ctx context.Context, userID, scheduleID string, active bool) error {
	return s.lifecycle.SetActive(ctx, userID, scheduleID, active)
}

func (s *scheduleService) DeactivateAll(ctx context.Context, userID string) error {
	return s.lifecycle.DeactivateAll(ctx, userID)
}

func (s *scheduleService) SoftDelete(ctx context.Context, userID, scheduleID string) error {
	return s.lifecycle.SoftDelete(ctx, userID, scheduleID)
}

// ResetAdaptation resets only schedules owned by userID
func (s *scheduleService) ResetAdaptation(ctx context.Context, userID, scheduleID string) error {
	if _, err := s.GetSchedule(ctx, userID, scheduleID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNoActiveSchedule
		}
		return err
	}
	return s.lifecycle.ResetAdaptationPhase(ctx, scheduleID)
}

// GetSchedule ErrNotFound for deleted schedules and schedules of other users
func (s *scheduleService) GetSchedule(ctx context.Context, userID, scheduleID string) (*domain.Schedule, error) {
	sched, err := s.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, classify("get_schedule", err)
	}
	if sched.IsDeleted || sched.UserID != userID {
		return nil, fmt.Errorf("schedule %s: %w", scheduleID, ErrNotFound)
	}
	return sched, nil
}

func (s *scheduleService) ListSchedules(ctx context.Context, userID string) ([]*domain.Schedule, error) {
	list, err := s.schedules.FindSchedules(ctx, repository.ScheduleFilter{UserID: userID})
	if err != nil {
		return nil, classify("list_schedules", err)
	}
	return list, nil
}

func (s *scheduleService) ActiveSchedule(ctx context.Context, userID string) (*domain.Schedule, error) {
	list, err := s.schedules.FindSchedules(ctx, repository.ScheduleFilter{UserID: userID, ActiveOnly: true})
	if err != nil {
		return nil, classify("active_schedule", err)
	}
	if len(list) == 0 {
		return nil, ErrNoActiveSchedule
	}
	return latestUpdated(list), nil
}

// CurrentAdaptation derives progress from the adaptation start date; the cached phase is ignored.
// Read-only: divergent cached phases are corrected by the Reconciler.
func (s *scheduleService) CurrentAdaptation(ctx context.Context, scheduleID string, now time.Time) (*domain.AdaptationProgress, error) {
	sched, err := s.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, classify("current_adaptation", err)
	}
	if sched.IsDeleted {
		return nil, fmt.Errorf("schedule %s: %w", scheduleID, ErrNotFound)
	}
	state, err := s.schedules.GetAdaptationState(ctx, scheduleID)
	if err != nil {
		return nil, classify("current_adaptation", err)
	}

	progress := adaptation.Calculate(state.AdaptationStartDate, now.In(s.clock.Location()), sched.DurationClass)
	progress.ScheduleID = scheduleID
	if progress.Phase != state.AdaptationPhase {
		s.logger.Debug("cached adaptation phase diverges",
			zap.String("schedule_id", scheduleID),
			zap.Int("cached", state.AdaptationPhase),
			zap.Int("computed", progress.Phase),
		)
	}
	return &progress, nil
}

func (s *scheduleService) HasUndoAvailable(ctx context.Context, userID string, now time.Time) bool {
	return s.undo.HasUndoAvailable(ctx, userID, now)
}

func (s *scheduleService) UndoStatus(ctx context.Context, userID string, now time.Time) (*domain.UndoStatus, error) {
	return s.undo.Status(ctx, userID, now)
}

func (s *scheduleService) UndoLastChange(ctx context.Context, userID string, now time.Time) error {
	return s.undo.Restore(ctx, userID, now)
}

func (s *scheduleService) DismissUndo(ctx context.Context, userID string) error {
	return s.undo.Dismiss(ctx, userID)
}

func (s *scheduleService) ClearUndo(ctx context.Context, userID string) error {
	return s.undo.Clear(ctx, userID)
}

func (s *scheduleService) Templates() []catalog.Template {
	return s.catalog.List()
}

func (s *scheduleService) ExportTemplates() ([]byte, error) {
	return catalog.ExportWorkbook(s.catalog.List())
}
