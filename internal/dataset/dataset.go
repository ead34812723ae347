package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Column names read from the survey CSV.
const (
	ColumnQuestion       = "Question"
	ColumnState          = "LocationDesc"
	ColumnValue          = "Data_Value"
	ColumnCategory       = "StratificationCategory1"
	ColumnStratification = "Stratification1"
)

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

var requiredColumns = []string{
	ColumnQuestion,
	ColumnState,
	ColumnValue,
	ColumnCategory,
	ColumnStratification,
}

// Row is one survey observation.
type Row struct {
	Question string
	State    string
	// Value is meaningful only when HasValue is set; blank or non-numeric
	// cells are kept as rows without a value and skipped by every mean.
	Value    float64
	HasValue bool
	Category string
	Segment  string
}

// Dataset is the immutable, in-memory survey table. It is safe for
// concurrent readers and is never written after construction.
type Dataset struct {
	rows       []Row
	byQuestion map[string][]Row
}

// New indexes rows by question. The slice is copied.
func New(rows []Row) *Dataset {
	d := &Dataset{
		rows:       append([]Row(nil), rows...),
		byQuestion: make(map[string][]Row),
	}
	for _, r := range d.rows {
		d.byQuestion[r.Question] = append(d.byQuestion[r.Question], r)
	}
	return d
}

// Load reads the CSV file at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	d, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return d, nil
}

// Read parses CSV data with a header row. Extra columns are ignored.
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	field := func(rec []string, col string) string {
		i := index[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		row := Row{
			Question: field(rec, ColumnQuestion),
			State:    field(rec, ColumnState),
			Category: field(rec, ColumnCategory),
			Segment:  field(rec, ColumnStratification),
		}
		if v, err := strconv.ParseFloat(field(rec, ColumnValue), 64); err == nil {
			row.Value = v
			row.HasValue = true
		}
		rows = append(rows, row)
	}

	return New(rows), nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Rows returns the rows answering question, in file order. Callers must not
// modify the returned slice.
func (d *Dataset) Rows(question string) []Row {
	return d.byQuestion[question]
}

// Questions returns the number of distinct questions present.
func (d *Dataset) Questions() int {
	return len(d.byQuestion)
}
