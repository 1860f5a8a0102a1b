package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stanercelik/PolySleep-sub003/internal/catalog"
	"github.com/stanercelik/PolySleep-sub003/internal/clock"
	"github.com/stanercelik/PolySleep-sub003/internal/domain"
	"github.com/stanercelik/PolySleep-sub003/internal/repository"
	"github.com/stanercelik/PolySleep-sub003/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []domain.AdaptationEvent
}

func (c *capturePublisher) Publish(_ context.Context, ev domain.AdaptationEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capturePublisher) ofType(t domain.AdaptationEventType) []domain.AdaptationEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.AdaptationEvent
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// faultyStore fails one tx operation on demand
type faultyStore struct {
	*repository.MemoryScheduleStore
	failOp string
	err    error
}

func (f *faultyStore) WithTx(ctx context.Context, fn func(tx repository.ScheduleTx) error) error {
	return f.MemoryScheduleStore.WithTx(ctx, func(tx repository.ScheduleTx) error {
		return fn(&faultyTx{ScheduleTx: tx, store: f})
	})
}

type faultyTx struct {
	repository.ScheduleTx
	store *faultyStore
}

func (t *faultyTx) InsertSleepBlocks(ctx context.Context, id string, blocks []domain.SleepBlock) error {
	if t.store.failOp == "InsertSleepBlocks" {
		return t.store.err
	}
	return t.ScheduleTx.InsertSleepBlocks(ctx, id, blocks)
}

func (t *faultyTx) UpsertAdaptationState(ctx context.Context, st *domain.AdaptationState) error {
	if t.store.failOp == "UpsertAdaptationState" {
		return t.store.err
	}
	return t.ScheduleTx.UpsertAdaptationState(ctx, st)
}

type flakyStreaks struct {
	*store.StreakStore
	failSet bool
}

func (f *flakyStreaks) Set(ctx context.Context, userID string, n int) error {
	if f.failSet {
		return errors.New("redis: connection refused")
	}
	return f.StreakStore.Set(ctx, userID, n)
}

type harness struct {
	store     *faultyStore
	snapshots *store.UndoStore
	streaks   *flakyStreaks
	clock     *clock.Fixed
	pub       *capturePublisher
	locks     *UserMutex
	lifecycle *LifecycleManager
	ledger    *UndoLedger
	svc       ScheduleService
}

var day0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	kv := store.NewMemoryKV()
	h := &harness{
		store:     &faultyStore{MemoryScheduleStore: repository.NewMemoryScheduleStore()},
		snapshots: store.NewUndoStore(kv, "", 0),
		streaks:   &flakyStreaks{StreakStore: store.NewStreakStore(kv, "")},
		clock:     clock.NewFixed(day0),
		pub:       &capturePublisher{},
		locks:     NewUserMutex(),
	}
	logger := zap.NewNop()
	h.ledger = NewUndoLedger(h.store, h.snapshots, h.streaks, h.clock, h.locks, h.pub, logger)
	h.lifecycle = NewLifecycleManager(h.store, h.ledger, h.streaks, h.clock, h.locks, h.pub, logger)
	h.svc = NewScheduleService(h.store, h.lifecycle, h.ledger, catalog.New(), h.clock, logger)
	return h
}

func everymanE3(id string) *domain.Schedule {
	return &domain.Schedule{
		ScheduleID:   id,
		Name:         "Everyman E3",
		ScheduleType: domain.ScheduleEverymanE3,
		Descriptions: map[string]string{"en": "3.5h core + 3 naps"},
		Blocks: []domain.SleepBlock{
			{StartMinute: 1380, DurationMinutes: 210, IsCore: true},
			{StartMinute: 390, DurationMinutes: 20},
			{StartMinute: 690, DurationMinutes: 20},
			{StartMinute: 990, DurationMinutes: 20},
		},
	}
}

func biphasic(id string) *domain.Schedule {
	return &domain.Schedule{
		ScheduleID:   id,
		Name:         "Biphasic",
		ScheduleType: domain.ScheduleBiphasic,
		Blocks: []domain.SleepBlock{
			{StartMinute: 1410, DurationMinutes: 360, IsCore: true},
			{StartMinute: 840, DurationMinutes: 20},
		},
	}
}

func (h *harness) activeIDs(t *testing.T, userID string) []string {
	t.Helper()
	list, err := h.store.FindSchedules(context.Background(), repository.ScheduleFilter{UserID: userID, ActiveOnly: true, IncludeDeleted: true})
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ScheduleID)
	}
	return ids
}

func (h *harness) state(t *testing.T, scheduleID string) *domain.AdaptationState {
	t.Helper()
	st, err := h.store.GetAdaptationState(context.Background(), scheduleID)
	require.NoError(t, err)
	return st
}

// seedRaw writes a schedule directly, bypassing the lifecycle rules
func (h *harness) seedRaw(t *testing.T, s *domain.Schedule, start time.Time) {
	t.Helper()
	err := h.store.MemoryScheduleStore.WithTx(context.Background(), func(tx repository.ScheduleTx) error {
		if err := tx.InsertSchedule(context.Background(), s); err != nil {
			return err
		}
		if err := tx.InsertSleepBlocks(context.Background(), s.ScheduleID, s.Blocks); err != nil {
			return err
		}
		if start.IsZero() {
			return nil
		}
		return tx.UpsertAdaptationState(context.Background(), &domain.AdaptationState{
			ScheduleID:          s.ScheduleID,
			UserID:              s.UserID,
			AdaptationStartDate: start,
			UpdatedAt:           start,
		})
	})
	require.NoError(t, err)
}
