package store

import (
	"context"
	"errors"
)

// MultiSink fans each record out to several sinks. A failing sink does not
// stop the others.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks in order.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Save writes rec to every sink and joins their errors.
func (m *MultiSink) Save(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Save(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
