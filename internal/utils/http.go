package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/leofalp/vertexgen/providers/observability"
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HeaderOption is an extra request header applied after the defaults.
type HeaderOption struct {
	Key   string
	Value string
}

// ErrEncodeBody marks failures to serialise the request body. Nothing was sent.
var ErrEncodeBody = errors.New("error marshaling body")

// StatusError is returned for non-2xx responses. Body holds at most maxResponseBodySize bytes.
type StatusError struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, TruncateString(string(e.Body), DefaultMaxStringLength))
}

// maxResponseBodySize caps how much of an error body is read (10 MB).
const maxResponseBodySize int64 = 10 * 1024 * 1024

// DoPostSync POSTs body as JSON and reads the whole response.
//
// Error handling:
//   - marshaling failures wrap ErrEncodeBody
//   - transport failures (including context cancellation) are wrapped and returned as-is
//   - non-2xx responses return *StatusError together with the response
//
// The response body is always closed before returning; close failures are logged, never
// returned.
func DoPostSync(ctx context.Context, client Doer, url string, bearerToken string, body any, headers ...HeaderOption) (*http.Response, []byte, error) {
	span := observability.SpanFromContext(ctx)

	response, requestDuration, err := post(ctx, client, url, bearerToken, "application/json", body, headers)
	if err != nil {
		if span != nil {
			span.AddEvent("http.request.error",
				observability.Error(err),
				observability.Duration(observability.AttrHTTPDuration, requestDuration),
			)
		}
		return response, nil, err
	}
	defer CloseWithLog(response.Body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return response, nil, readStatusError(response)
	}

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return response, nil, fmt.Errorf("error reading response body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.response.received",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(respBody)),
			observability.Duration(observability.AttrHTTPDuration, requestDuration),
		)
	}

	return response, respBody, nil
}

// post marshals body, sends the request and returns the raw response with its body open.
func post(ctx context.Context, client Doer, url, bearerToken, accept string, body any, headers []HeaderOption) (*http.Response, time.Duration, error) {
	span := observability.SpanFromContext(ctx)

	if client == nil {
		client = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrEncodeBody, err)
	}

	if span != nil {
		span.AddEvent("http.request.prepared",
			observability.String(observability.AttrHTTPMethod, http.MethodPost),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}
	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}

	timer := NewTimer()
	response, err := client.Do(req)
	timer.Stop()
	if err != nil {
		return response, timer.GetDuration(), fmt.Errorf("error sending request: %w", err)
	}
	return response, timer.GetDuration(), nil
}

// readStatusError drains a capped amount of a non-2xx body into a *StatusError.
func readStatusError(response *http.Response) error {
	errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
	if readErr != nil {
		slog.Warn("failed to read error response body", "error", readErr.Error(), "status", response.StatusCode)
	}
	return &StatusError{
		StatusCode: response.StatusCode,
		Status:     response.Status,
		Header:     response.Header.Clone(),
		Body:       errorBody,
	}
}

// CloseWithLog closes c and logs a failure instead of returning it.
func CloseWithLog(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}
