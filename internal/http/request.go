package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request represents an HTTP request relative to a client's base URL
type Request struct {
	// Name identifies the request in metrics (e.g. "login")
	Name        string
	Method      string
	Path        string
	QueryParams url.Values
	Headers     map[string]string
	Body        interface{}
}

// NewRequest creates a new HTTP request
func NewRequest(method, path string) *Request {
	return &Request{
		Method:      method,
		Path:        path,
		QueryParams: make(url.Values),
		Headers:     make(map[string]string),
	}
}

// Named sets the metrics name of the request
func (r *Request) Named(name string) *Request {
	r.Name = name
	return r
}

// WithHeader adds a header to the request
func (r *Request) WithHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// WithQueryParam adds a query parameter to the request
func (r *Request) WithQueryParam(key, value string) *Request {
	r.QueryParams.Add(key, value)
	return r
}

// WithBody sets the body of the request.
// url.Values bodies are form-encoded, strings, byte slices and readers are sent
// as-is and anything else is encoded as JSON.
func (r *Request) WithBody(body interface{}) *Request {
	r.Body = body
	return r
}

// URI returns the request path with its encoded query, relative to the base URL
func (r *Request) URI() string {
	path := strings.TrimLeft(r.Path, "/")
	if len(r.QueryParams) == 0 {
		return path
	}
	return path + "?" + r.QueryParams.Encode()
}

// IsRead reports whether the request only reads server state
func (r *Request) IsRead() bool {
	switch strings.ToUpper(r.Method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Build constructs an http.Request from the Request
func (r *Request) Build(baseURL string) (*http.Request, error) {
	reqURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	// Join the base URL path with the request path
	reqURL.Path = strings.TrimRight(reqURL.Path, "/") + "/" + strings.TrimLeft(r.Path, "/")

	query := reqURL.Query()
	for key, values := range r.QueryParams {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	reqURL.RawQuery = query.Encode()

	contentType := ""
	var bodyReader io.Reader
	if r.Body != nil {
		switch body := r.Body.(type) {
		case string:
			bodyReader = strings.NewReader(body)
		case []byte:
			bodyReader = bytes.NewReader(body)
		case io.Reader:
			bodyReader = body
		case url.Values:
			bodyReader = strings.NewReader(body.Encode())
			contentType = "application/x-www-form-urlencoded"
		default:
			jsonBody, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			bodyReader = bytes.NewReader(jsonBody)
			contentType = "application/json"
		}
	}

	req, err := http.NewRequest(r.Method, reqURL.String(), bodyReader)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}
