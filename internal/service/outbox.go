package service

import (
	"context"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"
	"github.com/stanercelik/PolySleep-sub003/internal/notify"

	"go.uber.org/zap"
)

// outbox collects the events of one locked write. Callers defer flush before taking the
// user lock, so events are published after the lock is released and only on success.
type outbox struct {
	events []domain.AdaptationEvent
}

func (o *outbox) add(ev domain.AdaptationEvent) {
	o.events = append(o.events, ev)
}

func (o *outbox) flush(ctx context.Context, p notify.Publisher, logger *zap.Logger) {
	for _, ev := range o.events {
		publish(ctx, p, logger, ev)
	}
	o.events = nil
}

func publish(ctx context.Context, p notify.Publisher, logger *zap.Logger, ev domain.AdaptationEvent) {
	if ev.Type == "" {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.Warn("failed to publish adaptation event",
			zap.String("type", string(ev.Type)),
			zap.String("user_id", ev.UserID),
			zap.String("schedule_id", ev.ScheduleID),
			zap.Error(err),
		)
	}
}
