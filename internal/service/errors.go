package service

import (
	"errors"
	"fmt"

	"github.com/stanercelik/PolySleep-sub003/internal/repository"
)

var (
	// ErrNotFound referenced schedule (or its adaptation state) is missing; same value as repository.ErrNotFound
	ErrNotFound = repository.ErrNotFound

	ErrNoActiveSchedule = errors.New("no active schedule")
	ErrNoUndoData       = errors.New("no undo data")
	ErrUndoExpired      = errors.New("undo expired")
	ErrInvalidSchedule  = errors.New("invalid schedule")

	// ErrPersistence matches every *PersistenceError via errors.Is
	ErrPersistence = errors.New("persistence error")
)

// PersistenceError the underlying store failed; nothing from the operation was committed
// unless Op says otherwise (see UndoLedger.Restore).
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence error: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// classify keeps precondition errors as they are and wraps everything else as a PersistenceError
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNoActiveSchedule),
		errors.Is(err, ErrNoUndoData),
		errors.Is(err, ErrUndoExpired),
		errors.Is(err, ErrInvalidSchedule),
		errors.Is(err, ErrPersistence):
		return err
	default:
		return &PersistenceError{Op: op, Err: err}
	}
}
