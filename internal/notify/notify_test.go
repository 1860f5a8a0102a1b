package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sampleEvent() domain.AdaptationEvent {
	return domain.AdaptationEvent{
		Type:          domain.EventPhaseChanged,
		UserID:        "u-1",
		ScheduleID:    "s-1",
		ScheduleName:  "Everyman E3",
		PreviousPhase: 1,
		Phase:         2,
		OccurredAt:    time.Date(2024, 5, 9, 8, 0, 0, 0, time.UTC),
	}
}

func TestRedisStreamPublisher(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewRedisStreamPublisher(client, "", 0)
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))

	msgs, err := client.XRange(context.Background(), DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "phase_changed", msgs[0].Values["type"])
	assert.Equal(t, "u-1", msgs[0].Values["user_id"])

	var ev domain.AdaptationEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &ev))
	assert.Equal(t, 2, ev.Phase)
	assert.Equal(t, "Everyman E3", ev.ScheduleName)
}

type fakeMQTT struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	qos      []byte
	err      error
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	f.qos = append(f.qos, qos)
	return nil
}

func TestMQTTPublisher(t *testing.T) {
	fake := &fakeMQTT{}
	p := NewMQTTPublisher(fake, "sleep", 1)

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, fake.topics, 1)
	assert.Equal(t, "sleep/u-1/adaptation", fake.topics[0])
	assert.Equal(t, byte(1), fake.qos[0])

	var ev domain.AdaptationEvent
	require.NoError(t, json.Unmarshal(fake.payloads[0], &ev))
	assert.Equal(t, domain.EventPhaseChanged, ev.Type)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Publish(ctx, sampleEvent()))
	assert.Len(t, fake.topics, 1)
}

func TestWebhookPublisher_Success(t *testing.T) {
	var got domain.AdaptationEvent
	var eventType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		eventType = r.Header.Get("X-Event-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewWebhookPublisher(srv.URL, time.Second, 0)
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.Equal(t, "phase_changed", eventType)
	assert.Equal(t, "s-1", got.ScheduleID)
}

func TestWebhookPublisher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewWebhookPublisher(srv.URL, time.Second, 0)
	err := p.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

type recordingPublisher struct {
	calls int
	err   error
}

func (r *recordingPublisher) Publish(context.Context, domain.AdaptationEvent) error {
	r.calls++
	return r.err
}

func TestMultiPublisher_ContinuesAfterFailure(t *testing.T) {
	boom := errors.New("broker down")
	failing := &recordingPublisher{err: boom}
	ok := &recordingPublisher{}

	m := NewMultiPublisher(failing, ok, NopPublisher{})
	err := m.Publish(context.Background(), sampleEvent())

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "*notify.recordingPublisher")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 3, m.Len())

	assert.NoError(t, NewMultiPublisher().Publish(context.Background(), sampleEvent()))
}

type gatedPublisher struct {
	started chan struct{}
	release chan struct{}
	err     error

	mu  sync.Mutex
	got []domain.AdaptationEvent
}

func newGatedPublisher(err error) *gatedPublisher {
	return &gatedPublisher{started: make(chan struct{}, 1), release: make(chan struct{}), err: err}
}

func (g *gatedPublisher) Publish(_ context.Context, ev domain.AdaptationEvent) error {
	select {
	case g.started <- struct{}{}:
	default:
	}
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	g.got = append(g.got, ev)
	return g.err
}

func (g *gatedPublisher) delivered() []domain.AdaptationEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.AdaptationEvent(nil), g.got...)
}

func TestAsyncPublisher_CallerNeverWaits(t *testing.T) {
	inner := newGatedPublisher(nil)
	p := NewAsyncPublisher(inner, 8, time.Second, zap.NewNop())

	first, second := sampleEvent(), sampleEvent()
	second.Phase = 3

	returned := make(chan error, 1)
	go func() {
		if err := p.Publish(context.Background(), first); err != nil {
			returned <- err
			return
		}
		returned <- p.Publish(context.Background(), second)
	}()
	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow target")
	}

	close(inner.release)
	require.NoError(t, p.Close(context.Background()))
	got := inner.delivered()
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Phase)
	assert.Equal(t, 3, got[1].Phase)

	assert.ErrorIs(t, p.Publish(context.Background(), first), ErrClosed)
}

func TestAsyncPublisher_QueueFull(t *testing.T) {
	inner := newGatedPublisher(nil)
	p := NewAsyncPublisher(inner, 1, time.Second, zap.NewNop())
	defer func() {
		close(inner.release)
		_ = p.Close(context.Background())
	}()

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	<-inner.started
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.ErrorIs(t, p.Publish(context.Background(), sampleEvent()), ErrQueueFull)
}

func TestAsyncPublisher_LogsEachFailureOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	inner := newGatedPublisher(nil)
	close(inner.release)

	multi := NewMultiPublisher(&recordingPublisher{err: errors.New("broker down")}, &recordingPublisher{err: errors.New("hook 502")}, inner)
	p := NewAsyncPublisher(multi, 4, time.Second, zap.New(core))

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.NoError(t, p.Close(context.Background()))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "failed to deliver adaptation event", entry.Message)
	assert.Contains(t, entry.ContextMap()["error"], "broker down")
	assert.Contains(t, entry.ContextMap()["error"], "hook 502")
	assert.Len(t, inner.delivered(), 1)
}
