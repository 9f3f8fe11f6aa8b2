package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/mingle/internal/domain/model"
	"github.com/okian/mingle/pkg/metrics"
)

// InstrumentedBackend records latency and failures of every store call.
type InstrumentedBackend struct {
	next   Backend
	driver string
}

// NewInstrumentedBackend wraps next, labelling metrics with driver.
func NewInstrumentedBackend(next Backend, driver string) *InstrumentedBackend {
	return &InstrumentedBackend{next: next, driver: driver}
}

func (i *InstrumentedBackend) observe(op string, start time.Time, err error) {
	failed := err != nil && !errors.Is(err, ErrNotFound)
	metrics.RecordStoreOperation(i.driver, op, float64(time.Since(start).Microseconds())/1000.0, failed)
}

// PutSubmission implements SubmissionStore.
func (i *InstrumentedBackend) PutSubmission(ctx context.Context, s model.SurveySubmission) (err error) {
	defer func(start time.Time) { i.observe("put_submission", start, err) }(time.Now())
	return i.next.PutSubmission(ctx, s)
}

// ListByEvent implements SubmissionStore.
func (i *InstrumentedBackend) ListByEvent(ctx context.Context, eventID, excludingUserID string) (_ []model.SurveySubmission, err error) {
	defer func(start time.Time) { i.observe("list_by_event", start, err) }(time.Now())
	return i.next.ListByEvent(ctx, eventID, excludingUserID)
}

// GetUserInterests implements InterestLookup.
func (i *InstrumentedBackend) GetUserInterests(ctx context.Context, userID string) (_ []string, err error) {
	defer func(start time.Time) { i.observe("get_interests", start, err) }(time.Now())
	return i.next.GetUserInterests(ctx, userID)
}

// PutInterests implements ProfileStore.
func (i *InstrumentedBackend) PutInterests(ctx context.Context, userID string, interests []string) (err error) {
	defer func(start time.Time) { i.observe("put_interests", start, err) }(time.Now())
	return i.next.PutInterests(ctx, userID, interests)
}

// PutGrid implements GridStore.
func (i *InstrumentedBackend) PutGrid(ctx context.Context, g model.MatchGrid) (err error) {
	defer func(start time.Time) { i.observe("put_grid", start, err) }(time.Now())
	return i.next.PutGrid(ctx, g)
}

// GetGrid implements GridStore.
func (i *InstrumentedBackend) GetGrid(ctx context.Context, userID, eventID string) (_ model.MatchGrid, err error) {
	defer func(start time.Time) { i.observe("get_grid", start, err) }(time.Now())
	return i.next.GetGrid(ctx, userID, eventID)
}

// Close implements Backend.
func (i *InstrumentedBackend) Close() error { return i.next.Close() }
