package gemini

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync/atomic"

	"github.com/leofalp/vertexgen/internal/utils"
	"github.com/leofalp/vertexgen/providers/ai"
	"github.com/leofalp/vertexgen/providers/observability"
)

// StreamGenerateContent opens a streaming request and returns the chunk sequence.
//
// Failures before the body starts (token, transport, non-2xx status) are returned directly.
// Everything after that is a terminal element of the stream: *ai.TransportError for read
// failures, *ai.DecodeError for a bad payload, *ai.TruncatedStreamError when the body ends
// inside an event, *ai.APIError for an error envelope, or the context error on
// cancellation.
//
// The caller must range over the stream or Close it; either releases the connection.
func (c *Client) StreamGenerateContent(ctx context.Context, request ai.GenerateRequest, opts ...ai.StreamOption) (*ai.ResponseStream, error) {
	options := ai.ApplyStreamOptions(opts...)
	var query url.Values
	if !options.WholeBody {
		query = url.Values{"alt": {"sse"}}
	}
	methodURL := c.endpoint.MethodURL(MethodStreamGenerateContent, query)

	ctx, call := c.observe(ctx, MethodStreamGenerateContent, methodURL, len(request.Contents), request.FunctionCount())

	token, err := c.token(ctx)
	if err != nil {
		err = call.fail(ctx, err)
		call.end()
		return nil, err
	}

	response, err := utils.DoPostStream(ctx, c.sender, methodURL, token, request)
	if err != nil {
		err = call.fail(ctx, c.mapError(ctx, methodURL, err))
		call.end()
		return nil, err
	}

	s := &session{
		ctx:         ctx,
		url:         methodURL,
		body:        response.Body,
		reassembler: utils.NewFrameReassembler(utils.FramingModeFor(response.Header.Get("Content-Type"))),
		readSize:    c.readSize,
		call:        call,
	}
	s.stream = ai.NewResponseStream(s.run, s)
	return s.stream, nil
}

// errClosedUnread is recorded when a stream is closed before its first read.
var errClosedUnread = errors.New("stream closed before it was read")

// session drives one response body through the reassembler and decoder. It is owned by the
// goroutine iterating the stream; only stream.Close may run concurrently. Whichever of run
// and Close starts first owns the call observer, so the span ends exactly once.
type session struct {
	ctx         context.Context
	url         string
	body        io.ReadCloser
	started     atomic.Bool
	reassembler *utils.FrameReassembler
	readSize    int
	call        *callObserver
	stream      *ai.ResponseStream

	chunks int
	last   *ai.ResponseChunk
}

func (s *session) run(yield func(*ai.ResponseChunk, error) bool) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	defer s.release()

	buf := make([]byte, s.readSize)
	for {
		n, readErr := s.body.Read(buf)
		if n > 0 {
			s.reassembler.Feed(buf[:n])
			if s.call.observer != nil {
				s.call.observer.Trace(s.ctx, "Stream fragment received",
					observability.String(observability.AttrLLMRequestID, s.call.requestID),
					observability.Int(observability.AttrHTTPResponseBodySize, n),
					observability.Int(observability.AttrStreamBufferedBytes, s.reassembler.Buffered()),
				)
			}
			if !s.drain(yield) {
				return
			}
		}

		if errors.Is(readErr, io.EOF) {
			s.finish(yield)
			return
		}
		if readErr != nil {
			if err := s.readError(readErr); err != nil {
				yield(nil, s.call.fail(s.ctx, err))
			}
			return
		}
	}
}

// drain hands every complete SSE payload to the decoder. It reports whether the session
// should keep reading.
func (s *session) drain(yield func(*ai.ResponseChunk, error) bool) bool {
	for {
		payload, ok, err := s.reassembler.Drain()
		if err != nil {
			yield(nil, s.call.fail(s.ctx, frameError(err)))
			return false
		}
		if !ok {
			return true
		}
		chunk, err := ai.DecodeChunk(payload)
		if err != nil {
			s.decodeFailed(payload)
			yield(nil, s.call.fail(s.ctx, err))
			return false
		}
		if !s.emit(yield, chunk) {
			return false
		}
	}
}

// finish handles a clean end of body: the whole-body payload or a leftover SSE remainder.
func (s *session) finish(yield func(*ai.ResponseChunk, error) bool) {
	buffered := s.reassembler.Buffered()
	for {
		payload, ok, err := s.reassembler.Finish()
		if err != nil {
			var truncated *utils.TruncatedFrameError
			if errors.As(err, &truncated) && s.call.span != nil {
				s.call.span.AddEvent(observability.EventStreamTruncated,
					observability.Int(observability.AttrStreamBufferedBytes, buffered),
					observability.String(observability.AttrStreamPayloadPreview, utils.TruncateString(truncated.Remainder, 120)),
				)
			}
			yield(nil, s.call.fail(s.ctx, frameError(err)))
			return
		}
		if !ok {
			break
		}

		if s.reassembler.Mode() == utils.FramingWholeBody {
			chunks, err := ai.DecodeChunks(payload)
			if err != nil {
				s.decodeFailed(payload)
				yield(nil, s.call.fail(s.ctx, err))
				return
			}
			for _, chunk := range chunks {
				if !s.emit(yield, chunk) {
					return
				}
			}
			continue
		}

		chunk, err := ai.DecodeChunk(payload)
		if err != nil {
			s.decodeFailed(payload)
			yield(nil, s.call.fail(s.ctx, err))
			return
		}
		if !s.emit(yield, chunk) {
			return
		}
	}

	if s.call.observer != nil {
		s.call.span.AddEvent(observability.EventStreamEnd,
			observability.Int(observability.AttrStreamChunks, s.chunks),
			observability.String(observability.AttrStreamFraming, s.reassembler.Mode().String()),
		)
		s.call.succeed(s.ctx, s.last)
	}
}

func (s *session) emit(yield func(*ai.ResponseChunk, error) bool, chunk *ai.ResponseChunk) bool {
	s.chunks++
	s.last = chunk
	if s.call.observer != nil {
		if s.chunks == 1 {
			elapsed := s.call.timer.Elapsed()
			s.call.span.AddEvent(observability.EventStreamFirstChunk,
				observability.Duration(observability.AttrDuration, elapsed),
				observability.String(observability.AttrStreamFraming, s.reassembler.Mode().String()),
			)
			s.call.observer.Histogram(observability.MetricStreamFirstChunkMillis).Record(s.ctx,
				float64(elapsed.Microseconds())/1000,
				observability.String(observability.AttrStreamFraming, s.reassembler.Mode().String()),
			)
		}
		s.call.observer.Counter(observability.MetricStreamChunks).Add(s.ctx, 1,
			observability.String(observability.AttrLLMMethod, s.call.method),
		)
	}
	return yield(chunk, nil)
}

// readError classifies a failed body read. It returns nil when the read failed because the
// stream was closed by its consumer.
func (s *session) readError(err error) error {
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		s.cancelled(ctxErr)
		return ctxErr
	}
	if s.stream != nil && s.stream.Closed() {
		s.cancelled(err)
		return nil
	}
	return &ai.TransportError{Op: "read", URL: s.url, Err: err}
}

func (s *session) cancelled(cause error) {
	if s.call.span != nil {
		s.call.span.AddEvent(observability.EventStreamCancelled,
			observability.Int(observability.AttrStreamChunks, s.chunks),
			observability.Int(observability.AttrStreamBufferedBytes, s.reassembler.Buffered()),
			observability.Error(cause),
		)
	}
}

func (s *session) decodeFailed(payload string) {
	if s.call.observer != nil {
		s.call.observer.Debug(s.ctx, "Stream payload rejected",
			observability.String(observability.AttrLLMRequestID, s.call.requestID),
			observability.String(observability.AttrStreamPayloadPreview, utils.TruncateString(payload, 200)),
		)
	}
}

// Close closes the body. A session that never started reading also ends its call here.
func (s *session) Close() error {
	err := s.body.Close()
	if s.started.CompareAndSwap(false, true) {
		s.cancelled(errClosedUnread)
		s.release()
	}
	return err
}

// release drops buffered bytes and closes the span. The body itself is closed by the
// ResponseStream that owns it.
func (s *session) release() {
	s.reassembler.Reset()
	s.call.end()
}

// frameError maps reassembler errors onto the ai taxonomy.
func frameError(err error) error {
	var truncated *utils.TruncatedFrameError
	if errors.As(err, &truncated) {
		return &ai.TruncatedStreamError{Remainder: truncated.Remainder}
	}
	var invalid *utils.FrameError
	if errors.As(err, &invalid) {
		return &ai.DecodeError{Payload: string(invalid.Raw), Err: err}
	}
	return err
}
