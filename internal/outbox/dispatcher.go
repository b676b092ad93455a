// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/librasync/internal/platform/config"
	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/ctxutil"
	"github.com/taibuivan/librasync/internal/platform/metrics"
)

// Handler delivers one event to the peer.
//
// The returned string is the descriptive outcome stored on the event, for
// example "Book 'Dune' successfully created in frontend."
type Handler interface {
	Handle(ctx context.Context, event *Event) (string, error)
}

// HandlerFunc adapts a function to [Handler].
type HandlerFunc func(ctx context.Context, event *Event) (string, error)

func (fn HandlerFunc) Handle(ctx context.Context, event *Event) (string, error) {
	return fn(ctx, event)
}

const (
	// backoffMultiplier grows the retry delay per attempt.
	backoffMultiplier = 2.0

	// jobTimeout bounds one delivery, token acquisition included.
	jobTimeout = constants.GlobalRequestTimeout

	// leaseGrace keeps a claimed event invisible a little longer than a job can run.
	leaseGrace = 30 * time.Second
)

// Dispatcher claims due events and runs their handlers on a worker pool.
type Dispatcher struct {
	repo     Repository
	cfg      config.SyncConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
	handlers map[Kind]Handler
	wake     chan struct{}
	now      func() time.Time
}

// DispatcherOption customises a [Dispatcher].
type DispatcherOption func(*Dispatcher)

// WithDispatcherClock replaces the wall clock used for due times and backoff.
func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		dispatcher.now = now
	}
}

func NewDispatcher(repo Repository, cfg config.SyncConfig, m *metrics.Metrics, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	dispatcher := &Dispatcher{
		repo:     repo,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		handlers: make(map[Kind]Handler),
		wake:     make(chan struct{}, 1),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(dispatcher)
	}
	return dispatcher
}

// Handle registers the handler for kind. Later registrations replace earlier ones.
func (dispatcher *Dispatcher) Handle(kind Kind, handler Handler) {
	dispatcher.handlers[kind] = handler
}

// Wake asks the poller to look for due events now instead of at the next tick.
func (dispatcher *Dispatcher) Wake() {
	select {
	case dispatcher.wake <- struct{}{}:
	default:
	}
}

/*
Run polls and dispatches until ctx is cancelled.

A poller feeds claimed events to cfg.Workers workers. On shutdown the poller
stops claiming and workers finish the job they hold; events claimed but not
yet started become due again once their lease expires.
*/
func (dispatcher *Dispatcher) Run(ctx context.Context) error {
	jobs := make(chan *Event)
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(jobs)
		return dispatcher.poll(groupCtx, jobs)
	})

	for worker := 0; worker < dispatcher.cfg.Workers; worker++ {
		group.Go(func() error {
			for event := range jobs {
				dispatcher.process(groupCtx, event)
			}
			return nil
		})
	}

	dispatcher.logger.Info("sync_dispatcher_started",
		slog.Int("workers", dispatcher.cfg.Workers),
		slog.Int("max_attempts", dispatcher.cfg.MaxAttempts),
		slog.Duration("poll_interval", dispatcher.cfg.PollInterval),
	)

	err := group.Wait()
	dispatcher.logger.Info("sync_dispatcher_stopped")
	return err
}

func (dispatcher *Dispatcher) poll(ctx context.Context, jobs chan<- *Event) error {
	ticker := time.NewTicker(dispatcher.cfg.PollInterval)
	defer ticker.Stop()

	for {
		events, err := dispatcher.claim(ctx)
		if err != nil && ctx.Err() == nil {
			dispatcher.logger.Error("sync_claim_failed", slog.Any("error", err))
		}

		for _, event := range events {
			select {
			case jobs <- event:
			case <-ctx.Done():
				return nil
			}
		}

		// A full batch suggests a backlog; claim again right away.
		if len(events) == dispatcher.cfg.BatchSize {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-dispatcher.wake:
		}
	}
}

func (dispatcher *Dispatcher) claim(ctx context.Context) ([]*Event, error) {
	now := dispatcher.now()
	events, err := dispatcher.repo.ClaimDue(ctx, now, now.Add(jobTimeout+leaseGrace), dispatcher.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("outbox_claim_failed: %w", err)
	}
	dispatcher.metrics.OutboxDue(len(events))
	return events, nil
}

/*
Drain claims and processes due events on the calling goroutine until none are
left. It returns the number of events processed. Used by the outbox command and
tests that need deterministic delivery.
*/
func (dispatcher *Dispatcher) Drain(ctx context.Context) (int, error) {
	processed := 0
	for {
		events, err := dispatcher.claim(ctx)
		if err != nil {
			return processed, err
		}
		if len(events) == 0 {
			return processed, nil
		}
		for _, event := range events {
			dispatcher.process(ctx, event)
			processed++
		}
	}
}

// process runs one handler and settles the event. Handler failures never escape.
func (dispatcher *Dispatcher) process(ctx context.Context, event *Event) {
	requestID := event.RequestID
	if requestID == "" {
		requestID = "outbox-" + strconv.FormatInt(event.ID, 10)
	}

	logger := dispatcher.logger.With(
		slog.Int64("event_id", event.ID),
		slog.String("kind", string(event.Kind)),
		slog.Int64("aggregate_id", event.AggregateID),
		slog.Int("attempt", event.Attempts),
		slog.String("request_id", requestID),
	)

	// In-flight jobs survive shutdown so their outcome can be recorded.
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), jobTimeout)
	defer cancel()
	jobCtx = ctxutil.WithLogger(ctxutil.WithRequestID(jobCtx, requestID), logger)

	result, err := dispatcher.invoke(jobCtx, event)
	if err == nil {
		dispatcher.settle(jobCtx, logger, event, metrics.OutcomeDelivered, dispatcher.repo.MarkDelivered(jobCtx, event.ID, result))
		logger.Info("sync_job_delivered", slog.String("result", result))
		return
	}

	if IsPermanent(err) || event.Attempts >= dispatcher.cfg.MaxAttempts {
		dispatcher.settle(jobCtx, logger, event, metrics.OutcomeDead, dispatcher.repo.MarkDead(jobCtx, event.ID, err.Error()))
		logger.Warn("sync_job_dead",
			slog.String("result", err.Error()),
			slog.Bool("permanent", IsPermanent(err)),
		)
		return
	}

	delay := dispatcher.RetryDelay(event.Attempts)
	next := dispatcher.now().Add(delay)
	dispatcher.settle(jobCtx, logger, event, metrics.OutcomeRetry, dispatcher.repo.MarkRetry(jobCtx, event.ID, next, err.Error()))
	logger.Warn("sync_job_retry",
		slog.String("result", err.Error()),
		slog.Duration("retry_in", delay),
	)
}

func (dispatcher *Dispatcher) invoke(ctx context.Context, event *Event) (result string, err error) {
	handler, ok := dispatcher.handlers[event.Kind]
	if !ok {
		return "", Permanent(fmt.Errorf("no sync handler registered for %q", event.Kind))
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = Permanent(fmt.Errorf("sync handler panicked: %v", recovered))
		}
	}()

	return handler.Handle(ctx, event)
}

func (dispatcher *Dispatcher) settle(ctx context.Context, logger *slog.Logger, event *Event, outcome string, err error) {
	dispatcher.metrics.SyncJob(string(event.Kind), outcome)
	if err != nil {
		// The lease will make the event due again, so it is retried rather than lost.
		logger.ErrorContext(ctx, "sync_job_settle_failed", slog.String("outcome", outcome), slog.Any("error", err))
	}
}

// RetryDelay is the backoff before retrying after the given attempt:
// RetryBase * 2^(attempt-1), capped at RetryMax.
func (dispatcher *Dispatcher) RetryDelay(attempt int) time.Duration {
	delay := dispatcher.cfg.RetryBase
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * backoffMultiplier)
		if delay >= dispatcher.cfg.RetryMax {
			return dispatcher.cfg.RetryMax
		}
	}
	return min(delay, dispatcher.cfg.RetryMax)
}

// # Dead Letters

// DeadLetters lists dead events, newest first.
func (dispatcher *Dispatcher) DeadLetters(ctx context.Context, limit int) ([]*Event, error) {
	events, err := dispatcher.repo.ListDead(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox_list_dead_failed: %w", err)
	}
	return events, nil
}

// Requeue moves a dead event back to pending with a fresh attempt budget.
func (dispatcher *Dispatcher) Requeue(ctx context.Context, id int64) error {
	if err := dispatcher.repo.Requeue(ctx, id, dispatcher.now()); err != nil {
		return fmt.Errorf("outbox_requeue_failed: %w", err)
	}
	dispatcher.logger.Info("sync_event_requeued", slog.Int64("event_id", id))
	dispatcher.Wake()
	return nil
}

// ErrNoHandler is reported when a dispatcher has nothing registered.
var ErrNoHandler = errors.New("outbox: no handlers registered")

// Validate checks the dispatcher is ready to run.
func (dispatcher *Dispatcher) Validate() error {
	if len(dispatcher.handlers) == 0 {
		return ErrNoHandler
	}
	return nil
}
