package apttransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

var _ Transport = &HTTPTransport{}

// HTTPTransport fetches Release/Packages files over http(s). It carries no
// retry logic of its own — debpkg.Fetcher owns retries for the package
// resolution path; this transport only backs repository inspection
// (list/stats), which surfaces a single failed fetch directly.
type HTTPTransport struct {
	userAgent string
	timeout   time.Duration
	client    *http.Client
}

func NewHTTPTransport() *HTTPTransport {
	timeout := time.Second * 60
	return &HTTPTransport{
		userAgent: "debpull/1.0",
		timeout:   timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (t *HTTPTransport) Schemes() []string {
	return []string{"http", "https"}
}

func (t *HTTPTransport) Acquire(ctx context.Context, req *AcquireRequest) (*AcquireResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", req.URI.String(), nil)
	if err != nil {
		return nil, &AcquireError{
			URI:    req.URI,
			Reason: "failed to create request",
			Err:    err,
		}
	}

	httpReq.Header.Set("User-Agent", t.userAgent)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	client := t.client
	if req.Timeout > 0 {
		client.Timeout = req.Timeout
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &AcquireError{
			URI:    req.URI,
			Reason: "request failed",
			Err:    err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &AcquireError{
			URI:    req.URI,
			Reason: fmt.Sprintf("HTTP %d", resp.StatusCode),
			Err:    nil,
		}
	}

	response := &AcquireResponse{
		URI:          httpReq.URL, // may have changed due to redirects
		Headers:      responseHeaders(resp),
		LastModified: parseLastModified(resp.Header.Get("Last-Modified")),
	}

	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
			response.Size = size
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AcquireError{
			URI:    req.URI,
			Reason: "failed to read content",
			Err:    err,
		}
	}

	response.Content = io.NopCloser(bytes.NewReader(body))
	response.Size = int64(len(body))
	return response, nil
}

func responseHeaders(resp *http.Response) map[string]string {
	headers := make(map[string]string)
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return headers
}

func parseLastModified(value string) *time.Time {
	if value == "" {
		return nil
	}
	if t, err := time.Parse(http.TimeFormat, value); err == nil {
		return &t
	}
	return nil
}
