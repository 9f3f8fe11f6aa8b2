package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/okian/mingle/internal/domain/model"
	"github.com/okian/mingle/pkg/logger"
	"github.com/okian/mingle/pkg/metrics"
)

const (
	defaultBreakerName        = "store"
	defaultBreakerMaxFailures = 5
	defaultBreakerOpenTimeout = 30 * time.Second
	halfOpenProbes            = 1
)

// BreakerBackend fails fast with ErrUnavailable while the wrapped backend
// keeps failing. It never retries.
type BreakerBackend struct {
	next Backend
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreakerBackend wraps next with a circuit breaker.
func NewBreakerBackend(next Backend, opts ...BreakerOption) *BreakerBackend {
	cfg := breakerConfig{
		name:        defaultBreakerName,
		maxFailures: defaultBreakerMaxFailures,
		openTimeout: defaultBreakerOpenTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	metrics.UpdateBreakerState(cfg.name, int(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.name,
		MaxRequests: halfOpenProbes,
		Timeout:     cfg.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(name, int(to))
			if cfg.log != nil {
				cfg.log.Warn(context.Background(), "store circuit breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			}
		},
	})

	return &BreakerBackend{next: next, cb: cb, name: cfg.name}
}

// State returns the current breaker state.
func (b *BreakerBackend) State() gobreaker.State { return b.cb.State() }

func execute[T any](b *BreakerBackend, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (any, error) {
		v, err := fn()
		return v, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%w: breaker %s: %w", ErrUnavailable, b.name, err)
	}
	out, _ := res.(T)
	return out, err
}

func (b *BreakerBackend) run(fn func() error) error {
	_, err := execute(b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// PutSubmission implements SubmissionStore.
func (b *BreakerBackend) PutSubmission(ctx context.Context, s model.SurveySubmission) error {
	return b.run(func() error { return b.next.PutSubmission(ctx, s) })
}

// ListByEvent implements SubmissionStore.
func (b *BreakerBackend) ListByEvent(ctx context.Context, eventID, excludingUserID string) ([]model.SurveySubmission, error) {
	return execute(b, func() ([]model.SurveySubmission, error) {
		return b.next.ListByEvent(ctx, eventID, excludingUserID)
	})
}

// GetUserInterests implements InterestLookup.
func (b *BreakerBackend) GetUserInterests(ctx context.Context, userID string) ([]string, error) {
	return execute(b, func() ([]string, error) {
		return b.next.GetUserInterests(ctx, userID)
	})
}

// PutInterests implements ProfileStore.
func (b *BreakerBackend) PutInterests(ctx context.Context, userID string, interests []string) error {
	return b.run(func() error { return b.next.PutInterests(ctx, userID, interests) })
}

// PutGrid implements GridStore.
func (b *BreakerBackend) PutGrid(ctx context.Context, g model.MatchGrid) error {
	return b.run(func() error { return b.next.PutGrid(ctx, g) })
}

// GetGrid implements GridStore.
func (b *BreakerBackend) GetGrid(ctx context.Context, userID, eventID string) (model.MatchGrid, error) {
	return execute(b, func() (model.MatchGrid, error) {
		return b.next.GetGrid(ctx, userID, eventID)
	})
}

// Close implements Backend.
func (b *BreakerBackend) Close() error { return b.next.Close() }
