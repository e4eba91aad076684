package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shareit/internal/events"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	redisQueueKey  = "shareit:events:queue"
	deadLetterKey  = "shareit:events:deadletter"
	localQueueSize = 256
)

// ErrQueueFull is returned by Enqueue when the in-memory queue cannot take more events.
var ErrQueueFull = errors.New("event queue is full")

// Sink delivers one event downstream, e.g. *events.AMQPForwarder.
type Sink interface {
	Handle(event *events.Event) error
}

type queuedEvent struct {
	Event    events.Event `json:"event"`
	Attempts int          `json:"attempts"`
}

// EventWorker moves bus events to a sink off the request path. Events are
// queued in Redis when a client is configured and in memory otherwise.
type EventWorker struct {
	sink   Sink
	redis  *redis.Client
	retry  RetryPolicy
	queue  chan queuedEvent
	logger *zerolog.Logger
}

func NewEventWorker(sink Sink, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *EventWorker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventWorker{
		sink:   sink,
		redis:  redisClient,
		retry:  retry.withDefaults(),
		queue:  make(chan queuedEvent, localQueueSize),
		logger: logger,
	}
}

// Attach subscribes the worker to every domain event type on bus.
func (w *EventWorker) Attach(bus *events.EventBus) {
	bus.Subscribe(w.Enqueue, events.Types...)
}

// Enqueue schedules event for delivery. It never blocks.
func (w *EventWorker) Enqueue(event *events.Event) error {
	return w.push(context.Background(), queuedEvent{Event: *event})
}

func (w *EventWorker) push(ctx context.Context, qe queuedEvent) error {
	if w.redis != nil {
		err := w.pushRedis(ctx, redisQueueKey, qe)
		if err == nil {
			return nil
		}
		w.logger.Warn().Err(err).Str("event_type", qe.Event.Type).Msg("redis push failed, using memory queue")
	}

	select {
	case w.queue <- qe:
		return nil
	default:
		w.logger.Error().Str("event_type", qe.Event.Type).Msg("event queue full, event dropped")
		return ErrQueueFull
	}
}

// Start runs the delivery loop until ctx is done.
func (w *EventWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("event worker started")
	defer w.logger.Info().Msg("event worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case qe := <-w.queue:
			w.process(ctx, qe)
			continue
		default:
		}

		if w.redis != nil {
			if qe, ok := w.tryRedis(ctx); ok {
				w.process(ctx, qe)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case qe := <-w.queue:
			w.process(ctx, qe)
		}
	}
}

func (w *EventWorker) tryRedis(ctx context.Context) (queuedEvent, bool) {
	res, err := w.redis.BRPop(ctx, time.Second, redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("redis BRPOP error")
			sleep(ctx, time.Second)
		}
		return queuedEvent{}, false
	}
	if len(res) != 2 {
		return queuedEvent{}, false
	}

	var qe queuedEvent
	if err := json.Unmarshal([]byte(res[1]), &qe); err != nil {
		w.logger.Error().Err(err).Msg("decode queued event")
		return queuedEvent{}, false
	}
	return qe, true
}

func (w *EventWorker) process(ctx context.Context, qe queuedEvent) {
	if err := w.sink.Handle(&qe.Event); err != nil {
		w.retryOrFail(ctx, qe, err)
	}
}

func (w *EventWorker) retryOrFail(ctx context.Context, qe queuedEvent, cause error) {
	qe.Attempts++
	if w.retry.Exhausted(qe.Attempts) {
		w.logger.Error().Err(cause).
			Str("event_type", qe.Event.Type).
			Int("attempts", qe.Attempts).
			Msg("event delivery failed, moving to dead letter")
		w.pushDeadLetter(ctx, qe)
		return
	}

	delay := w.retry.NextDelay(qe.Attempts)
	w.logger.Warn().Err(cause).
		Str("event_type", qe.Event.Type).
		Int("attempt", qe.Attempts).
		Dur("retry_in", delay).
		Msg("event delivery failed")
	if !sleep(ctx, delay) {
		return
	}
	if err := w.push(ctx, qe); err != nil {
		w.pushDeadLetter(ctx, qe)
	}
}

func (w *EventWorker) pushRedis(ctx context.Context, key string, qe queuedEvent) error {
	data, err := json.Marshal(qe)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *EventWorker) pushDeadLetter(ctx context.Context, qe queuedEvent) {
	if w.redis == nil {
		return
	}
	if err := w.pushRedis(ctx, deadLetterKey, qe); err != nil {
		w.logger.Error().Err(err).Str("event_type", qe.Event.Type).Msg("dead letter push failed")
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
