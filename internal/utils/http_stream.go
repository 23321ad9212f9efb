package utils

import (
	"context"
	"net/http"

	"github.com/leofalp/vertexgen/providers/observability"
)

// DoPostStream POSTs body as JSON and returns the response with its body left open for
// incremental reading. The caller owns the body and must close it. On every error path the
// body is read and closed before returning.
//
// It differs from DoPostSync only in the Accept header and in not consuming the body, so the
// same Doer can serve both SSE and whole-body streams.
func DoPostStream(ctx context.Context, client Doer, url string, bearerToken string, body any, headers ...HeaderOption) (*http.Response, error) {
	span := observability.SpanFromContext(ctx)

	response, requestDuration, err := post(ctx, client, url, bearerToken, EventStreamContentType+", application/json", body, headers)
	if err != nil {
		if span != nil {
			span.AddEvent("http.stream_request.error",
				observability.Error(err),
				observability.Duration(observability.AttrHTTPDuration, requestDuration),
			)
		}
		return response, err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		return response, readStatusError(response)
	}

	if span != nil {
		span.AddEvent("http.stream_response.started",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.String(observability.AttrHTTPContentType, response.Header.Get("Content-Type")),
			observability.Duration(observability.AttrHTTPDuration, requestDuration),
		)
	}

	return response, nil
}
