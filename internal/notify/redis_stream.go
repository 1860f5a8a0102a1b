package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"

	"github.com/go-redis/redis/v8"
)

const DefaultStream = "polysleep:adaptation-events"

// RedisStreamPublisher XADDs events to a Redis stream.
// Entry fields: type, user_id, schedule_id, data (full JSON event), timestamp (unix seconds).
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64) *RedisStreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, ev domain.AdaptationEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal adaptation event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"type":        string(ev.Type),
			"user_id":     ev.UserID,
			"schedule_id": ev.ScheduleID,
			"data":        string(data),
			"timestamp":   fmt.Sprintf("%d", ev.OccurredAt.Unix()),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}
	return nil
}
