// Package store persists job outcomes. Persistence is best effort: the
// in-memory ledger stays authoritative and nothing is read back at startup.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seantiz/forge/internal/model"
)

// ErrNotFound is returned when no result was stored for a job.
var ErrNotFound = errors.New("result not found")

// Supported sink drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMulti  = "multi"
)

// Record is one persisted job outcome. Job ids restart at 1 on every boot,
// so RunID tells process lifetimes apart.
type Record struct {
	RunID       string
	JobID       int
	Outcome     model.Outcome
	CompletedAt time.Time
}

// Sink accepts outcomes of jobs that reached done.
type Sink interface {
	Save(ctx context.Context, rec Record) error
	Close() error
}

// Options selects and configures a sink.
type Options struct {
	Driver     string
	ResultsDir string
	SQLitePath string
}

// New opens the sink named by opts.Driver.
func New(opts Options) (Sink, error) {
	switch opts.Driver {
	case DriverFile, "":
		return NewFileSink(opts.ResultsDir), nil
	case DriverSQLite:
		return NewSQLiteSink(opts.SQLitePath)
	case DriverMulti:
		db, err := NewSQLiteSink(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewMultiSink(NewFileSink(opts.ResultsDir), db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
