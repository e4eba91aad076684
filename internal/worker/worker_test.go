package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shareit/internal/events"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu       sync.Mutex
	failures int
	handled  []string
	calls    int
}

func (s *fakeSink) Handle(event *events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures < 0 || s.calls <= s.failures {
		return errors.New("broker unavailable")
	}
	s.handled = append(s.handled, event.Type)
	return nil
}

func (s *fakeSink) snapshot() (int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, append([]string(nil), s.handled...)
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 5*time.Second, policy.NextDelay(5))
	assert.Equal(t, 5*time.Second, policy.NextDelay(200))
	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(0))
}

func TestRetryPolicyExhausted(t *testing.T) {
	assert.False(t, RetryPolicy{MaxAttempts: 3}.Exhausted(2))
	assert.True(t, RetryPolicy{MaxAttempts: 3}.Exhausted(3))
	assert.True(t, RetryPolicy{}.Exhausted(5))
}

func TestEventWorker_MemoryQueue(t *testing.T) {
	sink := &fakeSink{}
	w := NewEventWorker(sink, nil, fastRetry(3), nil)

	bus := events.NewEventBus()
	w.Attach(bus)
	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{BookingID: 1}))
	require.NoError(t, bus.PublishJSON(events.EventCommentAdded, events.CommentEventPayload{CommentID: 2}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	assert.Eventually(t, func() bool {
		_, handled := sink.snapshot()
		return len(handled) == 2
	}, 2*time.Second, 5*time.Millisecond)

	_, handled := sink.snapshot()
	assert.Equal(t, []string{events.EventBookingCreated, events.EventCommentAdded}, handled)
}

func TestEventWorker_RetriesUntilDelivered(t *testing.T) {
	sink := &fakeSink{failures: 2}
	w := NewEventWorker(sink, nil, fastRetry(5), nil)
	require.NoError(t, w.Enqueue(&events.Event{Type: events.EventBookingApproved}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	assert.Eventually(t, func() bool {
		calls, handled := sink.snapshot()
		return calls == 3 && len(handled) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEventWorker_RedisDeadLetter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := &fakeSink{failures: -1}
	w := NewEventWorker(sink, client, fastRetry(2), nil)
	require.NoError(t, w.Enqueue(&events.Event{Type: events.EventBookingRejected, Payload: []byte(`{"booking_id":9}`)}))

	queued, err := mr.List(redisQueueKey)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	assert.Eventually(t, func() bool {
		dead, err := mr.List(deadLetterKey)
		return err == nil && len(dead) == 1
	}, 5*time.Second, 10*time.Millisecond)

	calls, handled := sink.snapshot()
	assert.Equal(t, 2, calls)
	assert.Empty(t, handled)

	dead, err := mr.List(deadLetterKey)
	require.NoError(t, err)
	var qe queuedEvent
	require.NoError(t, json.Unmarshal([]byte(dead[0]), &qe))
	assert.Equal(t, events.EventBookingRejected, qe.Event.Type)
	assert.Equal(t, 2, qe.Attempts)
	assert.JSONEq(t, `{"booking_id":9}`, string(qe.Event.Payload))
}

func TestEventWorker_RedisDownFallsBackToMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	w := NewEventWorker(&fakeSink{}, client, fastRetry(1), nil)
	require.NoError(t, w.Enqueue(&events.Event{Type: events.EventCommentAdded}))
	assert.Len(t, w.queue, 1)
}

func TestEventWorker_QueueFull(t *testing.T) {
	w := NewEventWorker(&fakeSink{}, nil, fastRetry(1), nil)
	for i := 0; i < localQueueSize; i++ {
		require.NoError(t, w.Enqueue(&events.Event{Type: events.EventBookingCreated}))
	}
	assert.ErrorIs(t, w.Enqueue(&events.Event{Type: events.EventBookingCreated}), ErrQueueFull)
}

func TestEventWorker_StopsOnCancel(t *testing.T) {
	w := NewEventWorker(&fakeSink{}, nil, fastRetry(1), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
