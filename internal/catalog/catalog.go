// Package catalog holds the schedule templates users pick from.
// Each template carries its ScheduleType; the duration class always comes from the policy table.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"
)

// BlockTemplate one sleep block of a template
type BlockTemplate struct {
	StartMinute     int  `json:"start_minute"`
	DurationMinutes int  `json:"duration_minutes"`
	IsCore          bool `json:"is_core"`
}

// Template catalog entry
type Template struct {
	Key          domain.ScheduleType `json:"key"`
	Name         string              `json:"name"`
	Descriptions map[string]string   `json:"descriptions"`
	Blocks       []BlockTemplate     `json:"blocks"`
}

// DurationClass from the policy table
func (t Template) DurationClass() domain.DurationClass {
	return domain.DurationClassFor(t.Key)
}

// TotalSleepHours sum of block durations
func (t Template) TotalSleepHours() float64 {
	total := 0
	for _, b := range t.Blocks {
		total += b.DurationMinutes
	}
	return float64(total) / 60.0
}

// ToSchedule builds a new, unsaved schedule for userID (no id, not active)
func (t Template) ToSchedule(userID string) *domain.Schedule {
	s := &domain.Schedule{
		UserID:          userID,
		Name:            t.Name,
		ScheduleType:    t.Key,
		DurationClass:   t.DurationClass(),
		TotalSleepHours: t.TotalSleepHours(),
		Descriptions:    make(map[string]string, len(t.Descriptions)),
		Blocks:          make([]domain.SleepBlock, 0, len(t.Blocks)),
	}
	for k, v := range t.Descriptions {
		s.Descriptions[k] = v
	}
	for _, b := range t.Blocks {
		s.Blocks = append(s.Blocks, domain.SleepBlock{
			StartMinute:     b.StartMinute,
			DurationMinutes: b.DurationMinutes,
			IsCore:          b.IsCore,
		})
	}
	return s
}

// Catalog concurrent-safe template registry keyed by ScheduleType
type Catalog struct {
	mu        sync.RWMutex
	templates map[domain.ScheduleType]Template
}

// New catalog seeded with the built-in templates
func New() *Catalog {
	c := &Catalog{templates: make(map[domain.ScheduleType]Template, len(builtins))}
	for _, t := range builtins {
		c.templates[t.Key] = t
	}
	return c
}

// Get returns false for unknown keys
func (c *Catalog) Get(key domain.ScheduleType) (Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[key]
	return t, ok
}

// List templates ordered by key
func (c *Catalog) List() []Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Template, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Merge adds or replaces templates; the whole batch is rejected if any entry is invalid
func (c *Catalog) Merge(templates []Template) error {
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range templates {
		c.templates[t.Key] = t
	}
	return nil
}

// Validate checks key, name and block ranges
func (t Template) Validate() error {
	if !domain.KnownScheduleType(t.Key) {
		return fmt.Errorf("template %q: unknown schedule type", t.Key)
	}
	if t.Key == domain.ScheduleCustom {
		return fmt.Errorf("template %q: custom schedules are user-authored", t.Key)
	}
	if t.Name == "" {
		return fmt.Errorf("template %q: name is required", t.Key)
	}
	if len(t.Blocks) == 0 {
		return fmt.Errorf("template %q: at least one block is required", t.Key)
	}
	for i, b := range t.Blocks {
		if b.StartMinute < 0 || b.StartMinute >= minutesPerDay {
			return fmt.Errorf("template %q block %d: start %d out of range", t.Key, i, b.StartMinute)
		}
		if b.DurationMinutes <= 0 {
			return fmt.Errorf("template %q block %d: duration must be positive", t.Key, i)
		}
	}
	return nil
}

const minutesPerDay = 24 * 60
