package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSchedule(t *testing.T, store *MemoryScheduleStore, id, userID string, active bool, created time.Time) {
	t.Helper()
	err := store.WithTx(context.Background(), func(tx ScheduleTx) error {
		if err := tx.InsertSchedule(context.Background(), &domain.Schedule{
			ScheduleID: id,
			UserID:     userID,
			Name:       id,
			IsActive:   active,
			CreatedAt:  created,
			UpdatedAt:  created,
		}); err != nil {
			return err
		}
		return tx.InsertSleepBlocks(context.Background(), id, []domain.SleepBlock{
			{StartMinute: 840, DurationMinutes: 20},
			{StartMinute: 60, DurationMinutes: 300, IsCore: true},
		})
	})
	require.NoError(t, err)
}

func TestMemoryStore_InsertAndGet(t *testing.T) {
	store := NewMemoryScheduleStore()
	seedSchedule(t, store, "s-1", "u-1", true, time.Now())

	s, err := store.GetSchedule(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", s.UserID)
	require.Len(t, s.Blocks, 2)
	assert.Equal(t, 60, s.Blocks[0].StartMinute, "blocks sorted by start")
	assert.NotEmpty(t, s.Blocks[0].BlockID)
	assert.Equal(t, "s-1", s.Blocks[0].ScheduleID)

	_, err = store.GetSchedule(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryScheduleStore()
	seedSchedule(t, store, "s-1", "u-1", false, time.Now())

	s, err := store.GetSchedule(context.Background(), "s-1")
	require.NoError(t, err)
	s.Name = "mutated"
	s.Blocks[0].DurationMinutes = 1

	again, err := store.GetSchedule(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", again.Name)
	assert.Equal(t, 300, again.Blocks[0].DurationMinutes)
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	store := NewMemoryScheduleStore()
	seedSchedule(t, store, "s-1", "u-1", true, time.Now())

	boom := errors.New("boom")
	err := store.WithTx(context.Background(), func(tx ScheduleTx) error {
		s, err := tx.GetSchedule(context.Background(), "s-1")
		if err != nil {
			return err
		}
		s.IsActive = false
		if err := tx.UpdateSchedule(context.Background(), s); err != nil {
			return err
		}
		if err := tx.DeleteSleepBlocks(context.Background(), "s-1"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	s, err := store.GetSchedule(context.Background(), "s-1")
	require.NoError(t, err)
	assert.True(t, s.IsActive)
	assert.Len(t, s.Blocks, 2)
}

func TestMemoryStore_FindSchedulesFilter(t *testing.T) {
	store := NewMemoryScheduleStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedSchedule(t, store, "a", "u-1", true, base)
	seedSchedule(t, store, "b", "u-1", false, base.Add(time.Hour))
	seedSchedule(t, store, "c", "u-2", true, base)

	err := store.WithTx(context.Background(), func(tx ScheduleTx) error {
		s, err := tx.GetSchedule(context.Background(), "b")
		if err != nil {
			return err
		}
		s.IsDeleted = true
		return tx.UpdateSchedule(context.Background(), s)
	})
	require.NoError(t, err)

	all, err := store.FindSchedules(context.Background(), ScheduleFilter{UserID: "u-1"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a", all[0].ScheduleID)

	withDeleted, err := store.FindSchedules(context.Background(), ScheduleFilter{UserID: "u-1", IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, withDeleted, 2)

	active, err := store.ListActiveSchedules(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestMemoryStore_AdaptationStateNeedsSchedule(t *testing.T) {
	store := NewMemoryScheduleStore()
	seedSchedule(t, store, "s-1", "u-1", true, time.Now())

	start := time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)
	err := store.WithTx(context.Background(), func(tx ScheduleTx) error {
		return tx.UpsertAdaptationState(context.Background(), &domain.AdaptationState{
			ScheduleID:          "s-1",
			UserID:              "u-1",
			AdaptationPhase:     3,
			AdaptationStartDate: start,
		})
	})
	require.NoError(t, err)

	st, err := store.GetAdaptationState(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, 3, st.AdaptationPhase)

	err = store.WithTx(context.Background(), func(tx ScheduleTx) error {
		return tx.UpsertAdaptationState(context.Background(), &domain.AdaptationState{ScheduleID: "ghost"})
	})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.GetAdaptationState(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_CancelledContextDiscards(t *testing.T) {
	store := NewMemoryScheduleStore()
	ctx, cancel := context.WithCancel(context.Background())

	err := store.WithTx(ctx, func(tx ScheduleTx) error {
		cancel()
		return tx.InsertSchedule(ctx, &domain.Schedule{ScheduleID: "s-1", UserID: "u-1"})
	})
	assert.Error(t, err)

	_, err = store.GetSchedule(context.Background(), "s-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}
