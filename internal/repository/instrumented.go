package repository

import (
	"context"
	"errors"
	"time"

	"github.com/apiproject/userapi/internal/metrics"
	"github.com/apiproject/userapi/internal/model"
)

// InstrumentedStore reports the outcome and latency of every call to a Recorder.
type InstrumentedStore struct {
	next     Store
	recorder metrics.Recorder
}

// Instrument wraps next so each user operation is observed by recorder.
func Instrument(next Store, recorder metrics.Recorder) *InstrumentedStore {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &InstrumentedStore{next: next, recorder: recorder}
}

// Create delegates to the wrapped store.
func (s *InstrumentedStore) Create(ctx context.Context, name, email string) (*model.User, error) {
	start := time.Now()
	user, err := s.next.Create(ctx, name, email)
	s.observe("create", start, err)
	if err == nil {
		s.recorder.IncUserCreated()
	}
	return user, err
}

// List delegates to the wrapped store.
func (s *InstrumentedStore) List(ctx context.Context) ([]*model.User, error) {
	start := time.Now()
	users, err := s.next.List(ctx)
	s.observe("list", start, err)
	return users, err
}

// GetByID delegates to the wrapped store.
func (s *InstrumentedStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	start := time.Now()
	user, err := s.next.GetByID(ctx, id)
	s.observe("get", start, err)
	return user, err
}

// Delete delegates to the wrapped store.
func (s *InstrumentedStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.next.Delete(ctx, id)
	s.observe("delete", start, err)
	if err == nil {
		s.recorder.IncUserDeleted()
	}
	return err
}

// Ping delegates to the wrapped store.
func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// EnsureSchema delegates to the wrapped store.
func (s *InstrumentedStore) EnsureSchema(ctx context.Context) error {
	return s.next.EnsureSchema(ctx)
}

// Close delegates to the wrapped store.
func (s *InstrumentedStore) Close() error {
	return s.next.Close()
}

func (s *InstrumentedStore) observe(operation string, start time.Time, err error) {
	s.recorder.ObserveStoreOperation(operation, outcome(err), time.Since(start))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrUserNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrEmailExists):
		return metrics.OutcomeDuplicate
	case errors.Is(err, ErrValueTooLong):
		return metrics.OutcomeInvalid
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeError
	}
}
