package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"

	"github.com/google/uuid"
)

// MemoryScheduleStore: used when the DB is not configured or unreachable, and by unit tests
// - transactions are copy-on-write: fn works on a private copy that replaces the live data on success
// - one writer at a time; readers take a snapshot under RLock
// - fn must only use the tx it is given (calling read methods on the store from fn deadlocks)
type MemoryScheduleStore struct {
	mu   sync.RWMutex
	data *memoryData
}

type memoryData struct {
	schedules map[string]*domain.Schedule        // scheduleID -> row (Blocks nil)
	blocks    map[string][]domain.SleepBlock     // scheduleID -> blocks
	states    map[string]*domain.AdaptationState // scheduleID -> state
}

func NewMemoryScheduleStore() *MemoryScheduleStore {
	return &MemoryScheduleStore{
		data: &memoryData{
			schedules: map[string]*domain.Schedule{},
			blocks:    map[string][]domain.SleepBlock{},
			states:    map[string]*domain.AdaptationState{},
		},
	}
}

var _ ScheduleStore = (*MemoryScheduleStore)(nil)

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		schedules: make(map[string]*domain.Schedule, len(d.schedules)),
		blocks:    make(map[string][]domain.SleepBlock, len(d.blocks)),
		states:    make(map[string]*domain.AdaptationState, len(d.states)),
	}
	for id, s := range d.schedules {
		c.schedules[id] = s.Clone()
	}
	for id, b := range d.blocks {
		cp := make([]domain.SleepBlock, len(b))
		copy(cp, b)
		c.blocks[id] = cp
	}
	for id, st := range d.states {
		cp := *st
		c.states[id] = &cp
	}
	return c
}

func (r *MemoryScheduleStore) WithTx(ctx context.Context, fn func(tx ScheduleTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	work := r.data.clone()
	if err := fn(&memoryTx{data: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	r.data = work
	return nil
}

func (r *MemoryScheduleStore) GetSchedule(_ context.Context, scheduleID string) (*domain.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data.getSchedule(scheduleID)
}

func (r *MemoryScheduleStore) FindSchedules(_ context.Context, filter ScheduleFilter) ([]*domain.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data.find(filter), nil
}

func (r *MemoryScheduleStore) GetAdaptationState(_ context.Context, scheduleID string) (*domain.AdaptationState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data.getState(scheduleID)
}

func (r *MemoryScheduleStore) ListActiveSchedules(_ context.Context) ([]*domain.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Schedule{}
	for id, s := range r.data.schedules {
		if s.IsActive && !s.IsDeleted {
			out = append(out, r.data.withBlocks(id))
		}
	}
	sortSchedules(out)
	return out, nil
}

// ---- shared helpers on a data snapshot ----

func (d *memoryData) withBlocks(id string) *domain.Schedule {
	s := d.schedules[id].Clone()
	b := d.blocks[id]
	s.Blocks = make([]domain.SleepBlock, len(b))
	copy(s.Blocks, b)
	return s
}

func (d *memoryData) getSchedule(id string) (*domain.Schedule, error) {
	if _, ok := d.schedules[id]; !ok {
		return nil, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	return d.withBlocks(id), nil
}

func (d *memoryData) getState(id string) (*domain.AdaptationState, error) {
	st, ok := d.states[id]
	if !ok {
		return nil, fmt.Errorf("adaptation state %s: %w", id, ErrNotFound)
	}
	cp := *st
	return &cp, nil
}

func (d *memoryData) find(f ScheduleFilter) []*domain.Schedule {
	out := []*domain.Schedule{}
	for id, s := range d.schedules {
		if f.ScheduleID != "" && id != f.ScheduleID {
			continue
		}
		if f.UserID != "" && s.UserID != f.UserID {
			continue
		}
		if f.ActiveOnly && !s.IsActive {
			continue
		}
		if !f.IncludeDeleted && s.IsDeleted {
			continue
		}
		out = append(out, d.withBlocks(id))
	}
	sortSchedules(out)
	return out
}

func sortSchedules(s []*domain.Schedule) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].CreatedAt.Before(s[j].CreatedAt)
		}
		return s[i].ScheduleID < s[j].ScheduleID
	})
}

// ---- tx ----

type memoryTx struct {
	data *memoryData
}

func (t *memoryTx) FindSchedules(_ context.Context, filter ScheduleFilter) ([]*domain.Schedule, error) {
	return t.data.find(filter), nil
}

func (t *memoryTx) GetSchedule(_ context.Context, scheduleID string) (*domain.Schedule, error) {
	return t.data.getSchedule(scheduleID)
}

func (t *memoryTx) InsertSchedule(_ context.Context, s *domain.Schedule) error {
	if s.ScheduleID == "" {
		return fmt.Errorf("schedule_id is required")
	}
	if _, ok := t.data.schedules[s.ScheduleID]; ok {
		return fmt.Errorf("schedule %s already exists", s.ScheduleID)
	}
	row := s.Clone()
	row.Blocks = nil
	t.data.schedules[s.ScheduleID] = row
	return nil
}

func (t *memoryTx) UpdateSchedule(_ context.Context, s *domain.Schedule) error {
	if _, ok := t.data.schedules[s.ScheduleID]; !ok {
		return fmt.Errorf("schedule %s: %w", s.ScheduleID, ErrNotFound)
	}
	row := s.Clone()
	row.Blocks = nil
	t.data.schedules[s.ScheduleID] = row
	return nil
}

func (t *memoryTx) DeleteSleepBlocks(_ context.Context, scheduleID string) error {
	delete(t.data.blocks, scheduleID)
	return nil
}

func (t *memoryTx) InsertSleepBlocks(_ context.Context, scheduleID string, blocks []domain.SleepBlock) error {
	if _, ok := t.data.schedules[scheduleID]; !ok {
		return fmt.Errorf("schedule %s: %w", scheduleID, ErrNotFound)
	}
	cp := make([]domain.SleepBlock, 0, len(t.data.blocks[scheduleID])+len(blocks))
	cp = append(cp, t.data.blocks[scheduleID]...)
	for _, b := range blocks {
		if b.BlockID == "" {
			b.BlockID = uuid.NewString()
		}
		b.ScheduleID = scheduleID
		cp = append(cp, b)
	}
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].StartMinute < cp[j].StartMinute })
	t.data.blocks[scheduleID] = cp
	return nil
}

func (t *memoryTx) GetAdaptationState(_ context.Context, scheduleID string) (*domain.AdaptationState, error) {
	return t.data.getState(scheduleID)
}

func (t *memoryTx) UpsertAdaptationState(_ context.Context, state *domain.AdaptationState) error {
	if _, ok := t.data.schedules[state.ScheduleID]; !ok {
		return fmt.Errorf("schedule %s: %w", state.ScheduleID, ErrNotFound)
	}
	cp := *state
	t.data.states[state.ScheduleID] = &cp
	return nil
}
