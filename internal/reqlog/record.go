// Package reqlog writes the per-request log, one line per event:
//
//	timestamp,eventKind,endpointPath,method,statusOrReason,durationMs,readOrWrite
//
// The field set and order are consumed by downstream tooling and must not change.
package reqlog

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

// TimestampLayout renders timestamps with 10µs resolution.
const TimestampLayout = "2006-01-02 15:04:05.00000"

// Kind tells whether a record was written before or after the call.
type Kind string

const (
	KindRequest  Kind = "request"
	KindResponse Kind = "response"
)

// Access annotates a call as reading or writing server state.
type Access string

const (
	AccessRead  Access = "read"
	AccessWrite Access = "write"
)

// Record is the outcome of one side of a network call.
type Record struct {
	Timestamp time.Time
	Kind      Kind
	Path      string
	Method    string
	// Status is "<code> <reason>" on responses and empty on requests.
	Status string
	// Duration is only meaningful on responses.
	Duration time.Duration
	Access   Access
}

// Fields returns the record as ordered line fields.
func (r Record) Fields() []string {
	duration := ""
	if r.Kind == KindResponse {
		duration = strconv.FormatFloat(float64(r.Duration)/float64(time.Millisecond), 'f', 3, 64)
	}
	return []string{
		r.Timestamp.Format(TimestampLayout),
		string(r.Kind),
		r.Path,
		r.Method,
		r.Status,
		duration,
		string(r.Access),
	}
}

// MarshalLine renders the record as a single CSV line ending in a newline.
func (r Record) MarshalLine() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(r.Fields()); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
