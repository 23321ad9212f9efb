package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/leofalp/vertexgen/internal/utils"
	"github.com/leofalp/vertexgen/providers/ai"
	"github.com/leofalp/vertexgen/providers/observability"
)

// callObserver reports one API call to the observer found on the context. Every method is
// a no-op when there is none.
type callObserver struct {
	observer  observability.Provider
	span      observability.Span
	requestID string
	method    string
	timer     *utils.Timer
}

func (c *Client) observe(ctx context.Context, method, url string, contents, tools int) (context.Context, *callObserver) {
	call := &callObserver{
		observer:  observability.ObserverFromContext(ctx),
		requestID: uuid.NewString(),
		method:    method,
		timer:     utils.NewTimer(),
	}
	if call.observer == nil {
		return ctx, call
	}

	spanName := observability.SpanLLMRequest
	if method == MethodStreamGenerateContent {
		spanName = observability.SpanLLMStream
	}
	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMProvider, providerName),
		observability.String(observability.AttrLLMModel, c.endpoint.Model),
		observability.String(observability.AttrLLMMethod, method),
		observability.String(observability.AttrLLMEndpoint, url),
		observability.String(observability.AttrLLMRequestID, call.requestID),
	}
	ctx, call.span = call.observer.StartSpan(ctx, spanName, attrs...)
	call.span.AddEvent(observability.EventLLMRequestStart)

	call.observer.Debug(ctx, "Vertex request prepared",
		append(attrs,
			observability.Int(observability.AttrRequestContentsCount, contents),
			observability.Int(observability.AttrRequestToolsCount, tools),
		)...,
	)
	return ctx, call
}

func (o *callObserver) attrs(extra ...observability.Attribute) []observability.Attribute {
	return append([]observability.Attribute{
		observability.String(observability.AttrLLMRequestID, o.requestID),
		observability.String(observability.AttrLLMMethod, o.method),
	}, extra...)
}

// fail records err and returns it unchanged.
func (o *callObserver) fail(ctx context.Context, err error) error {
	if o.observer == nil || err == nil {
		return err
	}
	errType := errorType(err)
	o.span.RecordError(err)
	o.span.SetStatus(observability.StatusError, errType)
	o.observer.Counter(observability.MetricRequestErrors).Add(ctx, 1,
		observability.String(observability.AttrErrorType, errType),
		observability.String(observability.AttrLLMMethod, o.method),
	)
	o.observer.Warn(ctx, "Vertex request failed", o.attrs(
		observability.Error(err),
		observability.String(observability.AttrErrorType, errType),
		observability.Duration(observability.AttrDuration, o.timer.Elapsed()),
	)...)
	return err
}

func (o *callObserver) succeed(ctx context.Context, chunk *ai.ResponseChunk) {
	if o.observer == nil {
		return
	}
	o.span.SetAttributes(usageAttrs(chunk)...)
	o.span.SetStatus(observability.StatusOK, "")
	o.observer.Info(ctx, "Vertex request completed", o.attrs(
		append(usageAttrs(chunk), observability.Duration(observability.AttrDuration, o.timer.Elapsed()))...,
	)...)
}

func (o *callObserver) counted(ctx context.Context, count *ai.CountTokensResponse) {
	if o.observer == nil {
		return
	}
	o.span.SetAttributes(observability.Int(observability.AttrLLMTokensPrompt, count.TotalTokens))
	o.span.SetStatus(observability.StatusOK, "")
	o.observer.Info(ctx, "Vertex tokens counted", o.attrs(
		observability.Int(observability.AttrLLMTokensPrompt, count.TotalTokens),
		observability.Duration(observability.AttrDuration, o.timer.Elapsed()),
	)...)
}

// end closes the span. It is safe to call more than once.
func (o *callObserver) end() {
	if o.span == nil {
		return
	}
	o.span.AddEvent(observability.EventLLMRequestEnd,
		observability.Duration(observability.AttrDuration, o.timer.Elapsed()))
	o.span.End()
	o.span = nil
}

func usageAttrs(chunk *ai.ResponseChunk) []observability.Attribute {
	var attrs []observability.Attribute
	if chunk == nil {
		return attrs
	}
	if len(chunk.Candidates) > 0 && chunk.Candidates[0].FinishReason != nil {
		attrs = append(attrs, observability.String(observability.AttrLLMFinishReason, *chunk.Candidates[0].FinishReason))
	}
	if usage := chunk.UsageMetadata; usage != nil {
		attrs = append(attrs,
			observability.Int(observability.AttrLLMTokensPrompt, usage.PromptTokenCount),
			observability.Int(observability.AttrLLMTokensCompletion, usage.CandidatesTokenCount),
			observability.Int(observability.AttrLLMTokensTotal, usage.TotalTokenCount),
		)
	}
	return attrs
}

// errorType names the taxonomy class of err for metrics.
func errorType(err error) string {
	var (
		authErr      *ai.AuthError
		transportErr *ai.TransportError
		decodeErr    *ai.DecodeError
		truncatedErr *ai.TruncatedStreamError
		apiErr       *ai.APIError
	)
	switch {
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &truncatedErr):
		return "truncated"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("api_%d", apiErr.StatusCode)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
