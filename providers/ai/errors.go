package ai

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leofalp/vertexgen/internal/utils"
)

// ErrStreamConsumed is yielded when a ResponseStream is iterated a second time.
var ErrStreamConsumed = errors.New("response stream already consumed")

// AuthError reports a failure to obtain an access token. Nothing was sent.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("obtain access token: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError reports a connection or I/O failure while sending the request or reading
// the body. The current stream is over.
type TransportError struct {
	// Op is "send" or "read".
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a payload that is not a valid response chunk. Payload holds the
// offending text; a stream cannot resynchronise after one.
type DecodeError struct {
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response payload: %v (payload: %s)", e.Err, utils.TruncateString(e.Payload, 200))
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TruncatedStreamError reports a clean end of body that left an unterminated event behind,
// meaning the server stopped mid-event. It is distinct from a normal close.
type TruncatedStreamError struct {
	Remainder string
}

func (e *TruncatedStreamError) Error() string {
	return fmt.Sprintf("stream truncated: %d bytes of an unterminated event left: %s",
		len(e.Remainder), utils.TruncateString(e.Remainder, 120))
}

// APIError is a non-2xx response or a Google error envelope delivered inside a stream.
type APIError struct {
	StatusCode int
	// Status is the canonical status such as "PERMISSION_DENIED" when the body carries one,
	// otherwise the HTTP status line.
	Status  string
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("vertex api error %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("vertex api error %d %s: %s", e.StatusCode, e.Status,
		utils.TruncateString(string(e.Body), utils.DefaultMaxStringLength))
}

type errorEnvelope struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewAPIError builds an APIError from an HTTP status and body. Google error envelopes, bare
// or wrapped in a one-element array, fill Message and Status.
func NewAPIError(statusCode int, status string, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Status: status, Body: body}
	if envelope, ok := parseErrorEnvelope(body); ok {
		apiErr.Message = envelope.Error.Message
		if envelope.Error.Status != "" {
			apiErr.Status = envelope.Error.Status
		}
		if apiErr.StatusCode == 0 {
			apiErr.StatusCode = envelope.Error.Code
		}
	}
	return apiErr
}

func parseErrorEnvelope(body []byte) (errorEnvelope, bool) {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return envelope, true
	}
	var wrapped []errorEnvelope
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped) == 1 && wrapped[0].Error != nil {
		return wrapped[0], true
	}
	return errorEnvelope{}, false
}
