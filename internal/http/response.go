package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// TimingInfo stores the phases of a single request
type TimingInfo struct {
	StartTime       time.Time
	DNSLookupTime   time.Duration
	TCPConnectTime  time.Duration
	TimeToFirstByte time.Duration
	// TotalTime covers send through the last body byte
	TotalTime time.Duration
}

// Response represents an HTTP response with its body fully read
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Timing     TimingInfo
	body       []byte
}

// Body returns the raw response body
func (r *Response) Body() []byte {
	return r.body
}

// BytesReceived returns the size of the response body
func (r *Response) BytesReceived() int64 {
	return int64(len(r.body))
}

// GetBodyAsJSON unmarshals the response body into the provided interface
func (r *Response) GetBodyAsJSON(v interface{}) error {
	return json.Unmarshal(r.body, v)
}

// GetHeader returns the first value of the specified header
func (r *Response) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// IsSuccess returns true if the response status code is in the 2xx range
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Elapsed returns the wall-clock time from send to full response
func (r *Response) Elapsed() time.Duration {
	return r.Timing.TotalTime
}
