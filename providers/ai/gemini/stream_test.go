package gemini

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/leofalp/vertexgen/internal/fakeserver"
	"github.com/leofalp/vertexgen/providers/ai"
	"github.com/leofalp/vertexgen/providers/observability"
	"github.com/leofalp/vertexgen/providers/observability/slogobs"
)

// TestStreamGenerateContent_SSE_YieldsChunksInOrder checks SSE framing and the alt=sse query.
func TestStreamGenerateContent_SSE_YieldsChunksInOrder(t *testing.T) {
	server := newTestServer(t)
	server.Script(MethodStreamGenerateContent, fakeserver.SSE(
		textChunk(t, "Once upon"),
		textChunk(t, " a time"),
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"."}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":6,"totalTokenCount":10}}`,
	))
	client := newTestClient(t, server)

	stream, err := client.StreamGenerateContent(context.Background(), userPrompt("Tell me a story"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	chunks, err := stream.Collect()
	if err != nil {
		t.Fatalf("Expected a clean stream, got %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	var text strings.Builder
	for _, chunk := range chunks {
		text.WriteString(chunk.Text())
	}
	if text.String() != "Once upon a time." {
		t.Errorf("Unexpected text %q", text.String())
	}
	if chunks[2].UsageMetadata == nil || chunks[2].UsageMetadata.TotalTokenCount != 10 {
		t.Errorf("Expected usage on the last chunk, got %+v", chunks[2].UsageMetadata)
	}
	if !stream.Closed() {
		t.Error("Expected the stream to be closed after iteration")
	}

	recorded := server.LastRequest()
	if recorded.Query.Get("alt") != "sse" {
		t.Errorf("Expected alt=sse, got %v", recorded.Query)
	}
	if accept := recorded.Header.Get("Accept"); !strings.Contains(accept, "text/event-stream") {
		t.Errorf("Expected an event-stream Accept header, got %q", accept)
	}
}

// TestStreamGenerateContent_TinyReads_ReassemblesAcrossFragments checks events split over
// many reads, including a multi-byte rune split.
func TestStreamGenerateContent_TinyReads_ReassemblesAcrossFragments(t *testing.T) {
	server := newTestServer(t)
	server.Script(MethodStreamGenerateContent, fakeserver.Raw(http.StatusOK, "text/event-stream",
		"da", "ta: "+textChunk(t, "héllo ")+"\r", "\n\r\ndata: "+textChunk(t, "世界")+"\n\n",
	))
	client := newTestClient(t, server, WithReadSize(1))

	stream, err := client.StreamGenerateContent(context.Background(), userPrompt("hi"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	text, err := stream.Text()
	if err != nil {
		t.Fatalf("Expected a clean stream, got %v", err)
	}
	if text != "héllo 世界" {
		t.Errorf("Expected %q, got %q", "héllo 世界", text)
	}
}

// TestStreamGenerateContent_NonDataEvents_AreSkipped checks comments and id-only blocks.
func TestStreamGenerateContent_NonDataEvents_AreSkipped(t *testing.T) {
	server := newTestServer(t)
	server.Script(MethodStreamGenerateContent, fakeserver.Raw(http.StatusOK, "text/event-stream; charset=utf-8",
		": keep-alive\r\n\r\n",
		"id: 1\r\n\r\ndata: "+textChunk(t, "only")+"\r\n\r\n",
	))
	client := newTestClient(t, server)

	stream, err := client.StreamGenerateContent(context.Background(), userPrompt("hi"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	chunks, err := stream.Collect()
	if err != nil || len(chunks) != 1 || chunks[0].Text() != "only" {
		t.Fatalf("Expected one chunk %q, got %d chunks, err %v", "only", len(chunks), err)
	}
}

// TestStreamGenerateContent_WholeBody_DecodesArray covers the buffered array mode.
func TestStreamGenerateContent_WholeBody_DecodesArray(t *testing.T) {
	server := newTestServer(t)
	server.Script(MethodStreamGenerateContent, fakeserver.WholeBody(
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hi"}]},"safetyRatings":[]}]}`,
		textChunk(t, "!"),
	))
	client := newTestClient(t, server, WithReadSize(5))

	stream, err := client.StreamGenerateContent(context.Background(), userPrompt("hi"), ai.WithWholeBody())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	chunks, err := stream.Collect()
	if err != nil {
		t.Fatalf("Expected a clean stream, got %v", err)
	}
	if len(chunks) != 2 || chunks[0].Text() != "Hi" || chunks[1].Text() != "!" {
		t.Fatalf("Unexpected chunks: %+v", chunks)
	}
	if server.LastRequest().Query.Has("alt") {
		t.Errorf("Expected no alt parameter in whole-body mode, got %v", server.LastRequest().Query)
	}
}

// TestStreamGenerateContent_WholeBodyEmpty_YieldsNothing checks an empty 200 body.
func TestStreamGenerateContent_WholeBodyEmpty_YieldsNothing(t *testing.T) {
	server := newTestServer(t)
	server.Script(MethodStreamGenerateContent, fakeserver.Raw(http.StatusOK, "application/json"))
	client := newTestClient(t, server)

	stream, err := client.StreamGenerateContent(context.Background(), userPrompt("hi"), ai.WithWholeBody())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	chunks, err := stream.Collect()
	if err != nil || len(chunks) != 0 {
		t.Fatalf("Expected no chunks and no error, got %d chunks, err %v", len(chunks), err)
	}
}

// TestStreamGenerateContent_Truncated_YieldsTruncatedStreamError checks that an unterminated
// final event is reported rather than dropped.
func TestStreamGenerateContent_Truncated_YieldsTruncatedStreamError(t *testing.T) {
	server := newTestServer(t)
	server.Script(MethodStreamGenerateContent, fakeserver.Raw(http.StatusOK, "text/event-stream",
		"data: "+textChunk(t, "first")+"\r\n\r\n",
		`data: {"candidates":[]}`,
	))
	client := newTestClient(t, server)

	stream, err := client.StreamGenerateContent(context.Background(), userPrompt("hi"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	chunks, err := stream.Collect()
	if len(chunks) != 1 {
		t.Errorf("Expected the complete chunk before the truncation, got %d", len(chunks))
	}
	var truncated *ai.TruncatedStreamError
	if !errors.As(err, &truncated) {
		t.Fatalf("Expected *ai.TruncatedStreamError, got %T: %v", err, err)
	}
	if truncated.Remainder != `data: {"candidates":[]}` {
		t.Errorf("Unexpected remainder %q", truncated.Remainder)
	}
}

// TestStreamGenerateContent_TrailingWhitespace_IsCleanClose checks a blank remainder.
func TestStreamGenerateContent_TrailingWhitespace_IsCleanClose(t *testing.T) {
	server := newTestServer(t)
	server.Script(MethodStreamGenerateContent, fakeserver.Raw(http.StatusOK, "text/event-stream",
		"data: "+textChunk(t, "done")+"\r\n\r\n", "\r\n",
	))
	client := newTestClient(t, server)

	stream, err := client.StreamGenerateContent(context.Background(), userPrompt("hi"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if text, err := stream.Text(); err != nil || text != "done" {
		t.Fatalf("Expected %q and no error, got %q, %v", "done", text, err)
	}
}

// TestStreamGenerateContent_BadPayload_StopsWithDecodeError checks that nothing follows a
// payload that cannot be decoded.
func TestStreamGenerateContent_BadPayload_StopsWithDecodeError(t *testing.T) {
	server := newTestServer(t)
	server.Script(MethodStreamGenerateContent, fakeserver.SSE(
		textChunk(t, "good"),
		"not json",
		textChunk(t, "never seen"),
	))
	client := newTestClient(t, server)

	stream, err := client.StreamGenerateContent(context.Background(), userPrompt("hi"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var texts []string
	var last error
	for chunk, err := range stream.Iter() {
		if err != nil {
			last = err
			continue
		}
		texts = append(texts, chunk.Text())
	}
	if len(texts) != 1 || texts[0] != "good" {
		t.Errorf("Expected only the first chunk, got %v", texts)
	}
	var decodeErr *ai.DecodeError
	if !errors.As(last, &decodeErr) {
		t.Fatalf("Expected *ai.DecodeError, got %T: %v", last, last)
	}
	if decodeErr.Payload != "not json" {
		t.Errorf("Expected the offending payload, got %q", decodeErr.Payload)
	}
}

// TestStreamGenerateContent_ErrorEnvelope_YieldsAPIError checks an error sent mid-stream.
func TestStreamGenerateContent_ErrorEnvelope_YieldsAPIError(t *testing.T) {
	server := newTestServer(t)
	server.Script(MethodStreamGenerateContent, fakeserver.SSE(
		textChunk(t, "partial"),
		`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`,
	))
	client := newTestClient(t, server)

	stream, err := client.StreamGenerateContent(context.Background(), userPrompt("hi"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	text, err := stream.Text()
	if text != "partial" {
		t.Errorf("Expected the text received before the error, got %q", text)
	}
	var apiErr *ai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *ai.APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Status != "RESOURCE_EXHAUSTED" {
		t.Errorf("Unexpected API error: %+v", apiErr)
	}
}

// TestStreamGenerateContent_ErrorStatus_FailsBeforeStream checks a non-2xx status.
func TestStreamGenerateContent_ErrorStatus_FailsBeforeStream(t *testing.T) {
	server := newTestServer(t)
	server.Script(MethodStreamGenerateContent, fakeserver.Error(http.StatusNotFound, "NOT_FOUND",
		"Publisher Model `gemini-nope` not found."))
	client := newTestClient(t, server, WithModel("gemini-nope"))

	stream, err := client.StreamGenerateContent(context.Background(), userPrompt("hi"))
	if stream != nil {
		t.Error("Expected no stream on error")
	}
	var apiErr *ai.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected a 404 *ai.APIError, got %T: %v", err, err)
	}
}

// TestStreamGenerateContent_TokenFailure_ReturnsAuthError checks the pre-send failure path.
func TestStreamGenerateContent_TokenFailure_ReturnsAuthError(t *testing.T) {
	server := newTestServer(t)
	client := newTestClient(t, server, WithTokenProvider(failingTokens{err: errors.New("expired")}))

	_, err := client.StreamGenerateContent(context.Background(), userPrompt("hi"))
	var authErr *ai.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected *ai.AuthError, got %T: %v", err, err)
	}
	if len(server.Requests()) != 0 {
		t.Error("Expected no request to be sent")
	}
}

// TestStreamGenerateContent_Break_ClosesStream checks early exit from the range loop.
func TestStreamGenerateContent_Break_ClosesStream(t *testing.T) {
	server := newTestServer(t)
	hold := make(chan struct{})
	defer close(hold)
	response := fakeserver.SSE(textChunk(t, "one"), textChunk(t, "two"))
	response.Hold = hold
	server.Script(MethodStreamGenerateContent, response)
	client := newTestClient(t, server)

	stream, err := client.StreamGenerateContent(context.Background(), userPrompt("hi"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	seen := 0
	for _, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		seen++
		break
	}
	if seen != 1 {
		t.Errorf("Expected one chunk before break, got %d", seen)
	}
	if !stream.Closed() {
		t.Error("Expected break to close the stream")
	}

	for _, err := range stream.Iter() {
		if !errors.Is(err, ai.ErrStreamConsumed) {
			t.Errorf("Expected ErrStreamConsumed on a second pass, got %v", err)
		}
	}
}

// TestStreamGenerateContent_CloseDuringRead_EndsWithoutError checks that Close unblocks a
// pending read and that nothing is yielded after it.
func TestStreamGenerateContent_CloseDuringRead_EndsWithoutError(t *testing.T) {
	server := newTestServer(t)
	hold := make(chan struct{})
	defer close(hold)
	response := fakeserver.SSE(textChunk(t, "one"))
	response.Hold = hold
	server.Script(MethodStreamGenerateContent, response)
	client := newTestClient(t, server)

	stream, err := client.StreamGenerateContent(context.Background(), userPrompt("hi"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	seen := 0
	for _, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("Expected no error after Close, got %v", err)
		}
		seen++
		go stream.Close()
	}
	if seen != 1 {
		t.Errorf("Expected exactly one chunk, got %d", seen)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("Expected a repeated Close to succeed, got %v", err)
	}
}

// TestStreamGenerateContent_Cancel_YieldsContextError checks cancellation mid-stream.
func TestStreamGenerateContent_Cancel_YieldsContextError(t *testing.T) {
	server := newTestServer(t)
	hold := make(chan struct{})
	defer close(hold)
	response := fakeserver.SSE(textChunk(t, "one"))
	response.Hold = hold
	server.Script(MethodStreamGenerateContent, response)
	client := newTestClient(t, server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := client.StreamGenerateContent(ctx, userPrompt("hi"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var last error
	for _, err := range stream.Iter() {
		if err != nil {
			last = err
			continue
		}
		cancel()
	}
	if !errors.Is(last, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %T: %v", last, last)
	}
}

// TestStreamGenerateContent_Observer_CountsChunks checks stream metrics and span events.
func TestStreamGenerateContent_Observer_CountsChunks(t *testing.T) {
	server := newTestServer(t)
	server.Script(MethodStreamGenerateContent,
		fakeserver.SSE(textChunk(t, "a"), textChunk(t, "b")),
		fakeserver.Raw(http.StatusOK, "text/event-stream", "data: {"),
	)
	client := newTestClient(t, server)

	var logs bytes.Buffer
	observer := slogobs.New(slogobs.WithFormat(slogobs.FormatJSON), slogobs.WithLevel(slogobs.LevelTrace), slogobs.WithOutput(&logs))
	ctx := observability.ContextWithObserver(context.Background(), observer)

	stream, err := client.StreamGenerateContent(ctx, userPrompt("hi"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := stream.Collect(); err != nil {
		t.Fatalf("Expected a clean stream, got %v", err)
	}

	stream, err = client.StreamGenerateContent(ctx, userPrompt("hi"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := stream.Collect(); err == nil {
		t.Fatal("Expected the second stream to be truncated")
	}

	if got := observer.CounterValue(observability.MetricStreamChunks); got != 2 {
		t.Errorf("Expected 2 counted chunks, got %d", got)
	}
	if got := observer.HistogramCount(observability.MetricStreamFirstChunkMillis); got != 1 {
		t.Errorf("Expected 1 first-chunk latency, got %d", got)
	}
	if got := observer.CounterValue(observability.MetricRequestErrors); got != 1 {
		t.Errorf("Expected 1 error, got %d", got)
	}
	for _, want := range []string{
		observability.EventStreamFirstChunk,
		observability.EventStreamEnd,
		observability.EventStreamTruncated,
		`"error.type":"truncated"`,
	} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("Expected %q in logs", want)
		}
	}
}

// TestStreamGenerateContent_CloseBeforeIterating_EndsSpanOnce checks that closing a stream
// nobody ranged over still ends the request span, and only once.
func TestStreamGenerateContent_CloseBeforeIterating_EndsSpanOnce(t *testing.T) {
	server := newTestServer(t)
	hold := make(chan struct{})
	defer close(hold)
	response := fakeserver.SSE(textChunk(t, "one"))
	response.Hold = hold
	server.Script(MethodStreamGenerateContent, response)
	client := newTestClient(t, server)

	var logs bytes.Buffer
	observer := slogobs.New(slogobs.WithFormat(slogobs.FormatJSON), slogobs.WithLevel(slogobs.LevelTrace), slogobs.WithOutput(&logs))
	ctx := observability.ContextWithObserver(context.Background(), observer)

	stream, err := client.StreamGenerateContent(ctx, userPrompt("hi"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Expected Close to succeed, got %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("Expected a repeated Close to succeed, got %v", err)
	}
	for chunk, err := range stream.Iter() {
		t.Errorf("Expected nothing after Close, got %v, %v", chunk, err)
	}

	output := logs.String()
	for _, want := range []string{
		observability.EventStreamCancelled,
		observability.EventLLMRequestEnd,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in logs", want)
		}
	}
	if got := strings.Count(output, `"event":"span.end"`); got != 1 {
		t.Errorf("Expected the span to end once, got %d", got)
	}
}
