package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/seantiz/forge/internal/model"
)

// Compile-time interface satisfaction check.
var _ Sink = (*FileSink)(nil)

// FileSink writes each outcome to <dir>/<job id>.json. The directory is
// created on first use. A later run overwrites files of an earlier one.
type FileSink struct {
	dir string
}

// NewFileSink creates a sink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Path returns the file an outcome for jobID is written to.
func (s *FileSink) Path(jobID int) string {
	return filepath.Join(s.dir, strconv.Itoa(jobID)+".json")
}

// Save writes the outcome through a temp file and a rename, so readers never
// see a partial file.
func (s *FileSink) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec.Outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, fmt.Sprintf(".%d-*.tmp", rec.JobID))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(rec.JobID)); err != nil {
		return fmt.Errorf("rename result: %w", err)
	}
	return nil
}

// Load reads back the outcome stored for jobID.
func (s *FileSink) Load(jobID int) (model.Outcome, error) {
	data, err := os.ReadFile(s.Path(jobID))
	if errors.Is(err, fs.ErrNotExist) {
		return model.Outcome{}, ErrNotFound
	}
	if err != nil {
		return model.Outcome{}, fmt.Errorf("read result: %w", err)
	}

	var out model.Outcome
	if err := json.Unmarshal(data, &out); err != nil {
		return model.Outcome{}, fmt.Errorf("decode result %d: %w", jobID, err)
	}
	return out, nil
}

// Close is a no-op.
func (s *FileSink) Close() error {
	return nil
}
