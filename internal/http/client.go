// Package http is the transport used to talk to a single backend target.
package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// Client represents an HTTP client bound to one base URL
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// NewClient creates a new HTTP client with the given options
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        1000,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		headers: make(map[string]string),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithBaseURL sets the base URL for the client
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the per-request timeout for the client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader adds a header to every request sent by the client
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithTransport replaces the underlying round tripper
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// BaseURL returns the base URL requests are resolved against
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CloseIdleConnections closes idle keep-alive connections
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Do executes an HTTP request and returns the response with timing information.
// The body is read completely before Do returns.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := req.Build(c.baseURL)
	if err != nil {
		return nil, err
	}

	for key, value := range c.headers {
		if httpReq.Header.Get(key) == "" {
			httpReq.Header.Set(key, value)
		}
	}

	timing := TimingInfo{
		StartTime: time.Now(),
	}

	var dnsStart, connectStart time.Time
	lastPhaseEnd := timing.StartTime

	trace := &httptrace.ClientTrace{
		DNSStart: func(info httptrace.DNSStartInfo) {
			dnsStart = time.Now()
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			lastPhaseEnd = time.Now()
			timing.DNSLookupTime = lastPhaseEnd.Sub(dnsStart)
		},
		ConnectStart: func(network, addr string) {
			connectStart = time.Now()
		},
		ConnectDone: func(network, addr string, err error) {
			if err == nil {
				lastPhaseEnd = time.Now()
				timing.TCPConnectTime = lastPhaseEnd.Sub(connectStart)
			}
		},
		GotFirstResponseByte: func() {
			timing.TimeToFirstByte = time.Since(lastPhaseEnd)
		},
	}

	httpReq = httpReq.WithContext(httptrace.WithClientTrace(ctx, trace))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	timing.TotalTime = time.Since(timing.StartTime)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Timing:     timing,
		body:       body,
	}, nil
}
