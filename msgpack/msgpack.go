// Package msgpack provides a binary-container record adapter for opentoken.
// Output records are encoded as a MessagePack stream, one message per
// (record, rule) pair.
package msgpack

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/zoobzio/opentoken"
)

// Writer encodes output records as a MessagePack stream. It implements
// opentoken.RecordSink.
type Writer struct {
	enc *msgpack.Encoder
}

// NewWriter returns a MessagePack sink over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: msgpack.NewEncoder(w)}
}

// Write appends one encoded output record.
func (w *Writer) Write(rec opentoken.OutputRecord) error {
	return w.enc.Encode(rec)
}

// Reader decodes a MessagePack output stream, primarily for audit tooling
// and tests. Next returns io.EOF on exhaustion.
type Reader struct {
	dec *msgpack.Decoder
}

// NewReader returns a reader over a MessagePack output stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: msgpack.NewDecoder(r)}
}

// Next decodes the next output record.
func (r *Reader) Next() (opentoken.OutputRecord, error) {
	var rec opentoken.OutputRecord
	if err := r.dec.Decode(&rec); err != nil {
		return opentoken.OutputRecord{}, err
	}
	return rec, nil
}
