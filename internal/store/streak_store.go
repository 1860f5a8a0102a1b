package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

const DefaultStreakKeyPrefix = "polysleep:streak:"

// StreakStore opaque per-user streak counter; the schedule core only round-trips it
type StreakStore struct {
	kv     KV
	prefix string
}

func NewStreakStore(kv KV, prefix string) *StreakStore {
	if prefix == "" {
		prefix = DefaultStreakKeyPrefix
	}
	return &StreakStore{kv: kv, prefix: prefix}
}

// Get missing counter = 0
func (s *StreakStore) Get(ctx context.Context, userID string) (int, error) {
	v, err := s.kv.Get(ctx, s.prefix+userID)
	if errors.Is(err, ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read streak for %s: %w", userID, err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid streak value %q for %s: %w", v, userID, err)
	}
	return n, nil
}

func (s *StreakStore) Set(ctx context.Context, userID string, streak int) error {
	if err := s.kv.Set(ctx, s.prefix+userID, strconv.Itoa(streak), 0); err != nil {
		return fmt.Errorf("failed to write streak for %s: %w", userID, err)
	}
	return nil
}
