// Package notify fans adaptation lifecycle events out to downstream alarm and
// notification schedulers. Delivery is best-effort: failures are logged once and dropped.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"
)

// Publisher delivers one adaptation event
type Publisher interface {
	Publish(ctx context.Context, ev domain.AdaptationEvent) error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.AdaptationEvent) error { return nil }

// MultiPublisher publishes to every target; one failing target does not stop the others.
// Failures are returned joined, each tagged with its target type; logging is left to the caller.
type MultiPublisher struct {
	targets []Publisher
}

func NewMultiPublisher(targets ...Publisher) *MultiPublisher {
	return &MultiPublisher{targets: targets}
}

func (m *MultiPublisher) Publish(ctx context.Context, ev domain.AdaptationEvent) error {
	var errs []error
	for _, t := range m.targets {
		if err := t.Publish(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", t, err))
		}
	}
	return errors.Join(errs...)
}

// Len number of configured targets
func (m *MultiPublisher) Len() int { return len(m.targets) }
