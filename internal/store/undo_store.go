package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"
)

const (
	DefaultUndoKeyPrefix = "polysleep:undo:"
	DefaultUndoTTL       = 48 * time.Hour
)

// UndoStore single-slot undo snapshot per user.
// Keys: <prefix><user> holds the JSON snapshot, <prefix><user>:dismissed the dismissed flag.
// The TTL only garbage-collects; same-day expiry is decided by the caller.
type UndoStore struct {
	kv     KV
	prefix string
	ttl    time.Duration
}

func NewUndoStore(kv KV, prefix string, ttl time.Duration) *UndoStore {
	if prefix == "" {
		prefix = DefaultUndoKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultUndoTTL
	}
	return &UndoStore{kv: kv, prefix: prefix, ttl: ttl}
}

func (s *UndoStore) snapshotKey(userID string) string  { return s.prefix + userID }
func (s *UndoStore) dismissedKey(userID string) string { return s.prefix + userID + ":dismissed" }

// Get returns ErrMiss when no snapshot is stored
func (s *UndoStore) Get(ctx context.Context, userID string) (*domain.UndoSnapshot, error) {
	raw, err := s.kv.Get(ctx, s.snapshotKey(userID))
	if err != nil {
		return nil, err
	}
	var snap domain.UndoSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode undo snapshot for %s: %w", userID, err)
	}
	return &snap, nil
}

// Put overwrites any previous snapshot and resets the dismissed flag
func (s *UndoStore) Put(ctx context.Context, snap *domain.UndoSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode undo snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, s.snapshotKey(snap.UserID), string(b), s.ttl); err != nil {
		return fmt.Errorf("failed to store undo snapshot: %w", err)
	}
	if err := s.kv.Del(ctx, s.dismissedKey(snap.UserID)); err != nil {
		return fmt.Errorf("failed to reset undo dismissed flag: %w", err)
	}
	return nil
}

func (s *UndoStore) Dismissed(ctx context.Context, userID string) (bool, error) {
	v, err := s.kv.Get(ctx, s.dismissedKey(userID))
	if errors.Is(err, ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (s *UndoStore) SetDismissed(ctx context.Context, userID string) error {
	return s.kv.Set(ctx, s.dismissedKey(userID), "1", s.ttl)
}

// Delete removes the snapshot and the dismissed flag
func (s *UndoStore) Delete(ctx context.Context, userID string) error {
	return s.kv.Del(ctx, s.snapshotKey(userID), s.dismissedKey(userID))
}
