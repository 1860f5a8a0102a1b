package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"
	"github.com/stanercelik/PolySleep-sub003/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// switchAfter activates a, lets days pass, sets the streak, then switches to b the same day
func (h *harness) switchAfter(t *testing.T, days, streak int) {
	t.Helper()
	ctx := context.Background()
	_, err := h.lifecycle.Activate(ctx, "u-1", everymanE3("a"))
	require.NoError(t, err)
	h.clock.AdvanceDays(days)
	require.NoError(t, h.streaks.Set(ctx, "u-1", streak))

	_, err = h.lifecycle.Activate(ctx, "u-1", biphasic("b"))
	require.NoError(t, err)
	require.NoError(t, h.streaks.Set(ctx, "u-1", 0))
}

func TestUndo_RoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.switchAfter(t, 10, 5)

	switchedAt := h.clock.Now()
	assert.True(t, h.state(t, "b").AdaptationStartDate.Equal(switchedAt))

	h.clock.Advance(2 * time.Hour)
	require.True(t, h.ledger.HasUndoAvailable(ctx, "u-1", h.clock.Now()))
	require.NoError(t, h.ledger.Restore(ctx, "u-1", h.clock.Now()))

	st := h.state(t, "b")
	assert.Equal(t, 2, st.AdaptationPhase)
	assert.True(t, st.AdaptationStartDate.Equal(day0))

	streak, err := h.streaks.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 5, streak)

	assert.Equal(t, []string{"b"}, h.activeIDs(t, "u-1"), "undo never switches schedules back")
	assert.False(t, h.ledger.HasUndoAvailable(ctx, "u-1", h.clock.Now()))

	p, err := h.svc.CurrentAdaptation(ctx, "b", h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, p.Phase)
	assert.Equal(t, 11, p.CurrentDay)

	restored := h.pub.ofType(domain.EventAdaptationRestored)
	require.Len(t, restored, 1)
	assert.Equal(t, "b", restored[0].ScheduleID)
	assert.Equal(t, 0, restored[0].PreviousPhase)
	assert.Equal(t, 2, restored[0].Phase)

	assert.ErrorIs(t, h.ledger.Restore(ctx, "u-1", h.clock.Now()), ErrNoUndoData)
}

func TestUndo_SnapshotRecordsComputedPhase(t *testing.T) {
	h := newHarness(t)
	h.switchAfter(t, 16, 3)

	snap, err := h.snapshots.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "a", snap.ScheduleID)
	assert.Equal(t, 3, snap.PreviousAdaptationPhase, "cached phase is still 0, day 17 is phase 3")
	assert.Equal(t, 3, snap.PreviousStreak)
	assert.True(t, snap.ChangeDate.Equal(h.clock.Now()))
}

func TestUndo_ExpiresAtMidnight(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.clock.Set(time.Date(2024, 5, 1, 23, 50, 0, 0, time.UTC))
	h.switchAfter(t, 0, 4)
	before := h.state(t, "b")

	h.clock.Set(time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC))
	assert.True(t, h.ledger.HasUndoAvailable(ctx, "u-1", h.clock.Now()))

	h.clock.Set(time.Date(2024, 5, 2, 0, 1, 0, 0, time.UTC))
	assert.False(t, h.ledger.HasUndoAvailable(ctx, "u-1", h.clock.Now()))
	assert.ErrorIs(t, h.ledger.Restore(ctx, "u-1", h.clock.Now()), ErrUndoExpired)

	assert.Equal(t, before, h.state(t, "b"))
	streak, err := h.streaks.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 0, streak)
}

func TestUndo_SameDayInClockLocation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// 22:30 UTC is 01:30 the next day in UTC+3
	trt := time.FixedZone("TRT", 3*3600)
	h.clock.Set(time.Date(2024, 5, 1, 20, 30, 0, 0, trt))
	h.switchAfter(t, 0, 1)

	later := time.Date(2024, 5, 1, 22, 30, 0, 0, time.UTC)
	assert.False(t, h.ledger.HasUndoAvailable(ctx, "u-1", later))
	assert.True(t, h.ledger.HasUndoAvailable(ctx, "u-1", time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)))
}

func TestUndo_NoData(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.False(t, h.ledger.HasUndoAvailable(ctx, "u-1", h.clock.Now()))
	assert.ErrorIs(t, h.ledger.Restore(ctx, "u-1", h.clock.Now()), ErrNoUndoData)

	_, err := h.lifecycle.Activate(ctx, "u-1", everymanE3("a"))
	require.NoError(t, err)
	assert.False(t, h.ledger.HasUndoAvailable(ctx, "u-1", h.clock.Now()), "first activation has nothing to undo")
}

func TestUndo_NoActiveScheduleKeepsSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.switchAfter(t, 3, 2)

	require.NoError(t, h.lifecycle.DeactivateAll(ctx, "u-1"))
	assert.ErrorIs(t, h.ledger.Restore(ctx, "u-1", h.clock.Now()), ErrNotFound)
	assert.True(t, h.ledger.HasUndoAvailable(ctx, "u-1", h.clock.Now()))
}

func TestUndo_StreakFailureIsRetryable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.switchAfter(t, 10, 5)

	h.streaks.failSet = true
	err := h.ledger.Restore(ctx, "u-1", h.clock.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, h.ledger.HasUndoAvailable(ctx, "u-1", h.clock.Now()))

	h.streaks.failSet = false
	require.NoError(t, h.ledger.Restore(ctx, "u-1", h.clock.Now()))
	streak, err := h.streaks.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 5, streak)
	assert.Equal(t, 2, h.state(t, "b").AdaptationPhase)
}

func TestUndo_SnapshotSkippedWithoutState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	s := biphasic("legacy")
	s.UserID = "u-1"
	s.IsActive = true
	h.seedRaw(t, s, time.Time{})

	_, err := h.lifecycle.Activate(ctx, "u-1", everymanE3("a"))
	require.NoError(t, err)
	assert.False(t, h.ledger.HasUndoAvailable(ctx, "u-1", h.clock.Now()))
	assert.Equal(t, []string{"a"}, h.activeIDs(t, "u-1"))
}

func TestUndo_StatusDismissClear(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	st, err := h.ledger.Status(ctx, "u-1", h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, &domain.UndoStatus{}, st)
	require.NoError(t, h.ledger.Dismiss(ctx, "u-1"), "dismiss without snapshot is a no-op")

	h.switchAfter(t, 2, 1)
	st, err = h.ledger.Status(ctx, "u-1", h.clock.Now())
	require.NoError(t, err)
	assert.True(t, st.Available)
	assert.False(t, st.Dismissed)
	assert.Equal(t, "a", st.ScheduleID)
	require.NotNil(t, st.ChangeDate)

	require.NoError(t, h.ledger.Dismiss(ctx, "u-1"))
	st, err = h.ledger.Status(ctx, "u-1", h.clock.Now())
	require.NoError(t, err)
	assert.True(t, st.Dismissed)
	assert.True(t, st.Available, "dismissed snapshots can still be applied")

	_, err = h.lifecycle.Activate(ctx, "u-1", everymanE3("c"))
	require.NoError(t, err)
	st, err = h.ledger.Status(ctx, "u-1", h.clock.Now())
	require.NoError(t, err)
	assert.False(t, st.Dismissed, "a new snapshot resets the flag")
	assert.Equal(t, "b", st.ScheduleID)

	require.NoError(t, h.ledger.Clear(ctx, "u-1"))
	assert.False(t, h.ledger.HasUndoAvailable(ctx, "u-1", h.clock.Now()))
}

type failingSnapshots struct {
	*store.UndoStore
}

func (f failingSnapshots) Put(context.Context, *domain.UndoSnapshot) error {
	return errors.New("redis: i/o timeout")
}

func TestActivate_SnapshotFailureAbortsSwitch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.lifecycle.Activate(ctx, "u-1", everymanE3("a"))
	require.NoError(t, err)

	ledger := NewUndoLedger(h.store, failingSnapshots{h.snapshots}, h.streaks, h.clock, h.locks, h.pub, zap.NewNop())
	lifecycle := NewLifecycleManager(h.store, ledger, h.streaks, h.clock, h.locks, h.pub, zap.NewNop())

	_, err = lifecycle.Activate(ctx, "u-1", biphasic("b"))
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Equal(t, []string{"a"}, h.activeIDs(t, "u-1"))
}
