// Package csv provides delimited-text record adapters for opentoken.
//
// The Reader resolves input column headers to attribute kinds once, at
// stream setup, using the registry's alias tables; downstream code never
// sees raw header names. The Writer emits one row per (record, rule) pair
// with RecordId, RuleId, and Token columns.
package csv

import (
	stdcsv "encoding/csv"
	"io"
	"reflect"
	"sync"

	"github.com/zoobzio/opentoken"
	"github.com/zoobzio/sentinel"
)

func init() {
	// Register the csv tag with sentinel so column headers come from
	// OutputRecord struct tags.
	sentinel.Tag("csv")
}

// Reader streams person records from CSV input. It implements
// opentoken.RecordSource and returns io.EOF on exhaustion.
type Reader struct {
	cr    *stdcsv.Reader
	kinds []opentoken.Kind
	bound []bool
}

// NewReader reads the header row and resolves each column against the
// attribute registry. Unmatched columns are ignored, not an error.
func NewReader(r io.Reader) (*Reader, error) {
	cr := stdcsv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}

	kinds := make([]opentoken.Kind, len(header))
	bound := make([]bool, len(header))
	for i, name := range header {
		if kind, ok := opentoken.Resolve(name); ok {
			kinds[i] = kind
			bound[i] = true
		}
	}

	return &Reader{cr: cr, kinds: kinds, bound: bound}, nil
}

// Next returns the next person record. The record id is taken from the
// RecordId column when present.
func (r *Reader) Next() (opentoken.PersonRecord, error) {
	row, err := r.cr.Read()
	if err != nil {
		return opentoken.PersonRecord{}, err
	}

	attrs := make(map[opentoken.Kind]string, len(row))
	for i, value := range row {
		if i < len(r.kinds) && r.bound[i] {
			attrs[r.kinds[i]] = value
		}
	}

	return opentoken.PersonRecord{ID: attrs[opentoken.RecordID], Attributes: attrs}, nil
}

// columnPlan maps one output column to its struct field.
type columnPlan struct {
	header string
	index  []int
}

var (
	columnsOnce sync.Once
	columns     []columnPlan
)

// outputColumns derives the column layout from OutputRecord struct tags via
// sentinel, built once per process.
func outputColumns() []columnPlan {
	columnsOnce.Do(func() {
		spec := sentinel.Scan[opentoken.OutputRecord]()
		for _, field := range spec.Fields {
			header := field.Tags["csv"]
			if header == "" {
				header = field.Name
			}
			columns = append(columns, columnPlan{header: header, index: field.Index})
		}
	})
	return columns
}

// Writer emits output records as CSV rows. It implements
// opentoken.RecordSink. Callers must Flush before closing the underlying
// writer.
type Writer struct {
	cw          *stdcsv.Writer
	wroteHeader bool
}

// NewWriter returns a CSV sink over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{cw: stdcsv.NewWriter(w)}
}

// Write appends one output row, emitting the header row first on the
// initial call.
func (w *Writer) Write(rec opentoken.OutputRecord) error {
	cols := outputColumns()

	if !w.wroteHeader {
		headers := make([]string, len(cols))
		for i, col := range cols {
			headers[i] = col.header
		}
		if err := w.cw.Write(headers); err != nil {
			return err
		}
		w.wroteHeader = true
	}

	rv := reflect.ValueOf(rec)
	row := make([]string, len(cols))
	for i, col := range cols {
		row[i] = rv.FieldByIndex(col.index).String()
	}
	return w.cw.Write(row)
}

// Flush writes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.cw.Flush()
	return w.cw.Error()
}
