package ai

import (
	"io"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
)

// ResponseStream is the lazy, single-pass sequence of chunks produced by one streaming
// request. It is not restartable: a second Iter yields ErrStreamConsumed.
//
// Errors are terminal elements of the sequence. Breaking out of the range loop or calling
// Close releases the connection; no chunk is yielded after Close, even one that was already
// being read. A stream that is never iterated must be closed by the caller.
type ResponseStream struct {
	seq      iter.Seq2[*ResponseChunk, error]
	closer   io.Closer
	consumed atomic.Bool
	closed   atomic.Bool
	once     sync.Once
	closeErr error
}

// NewResponseStream wraps a producer sequence. closer, usually the response body, is closed
// by Close and after iteration ends; it may be nil.
func NewResponseStream(seq iter.Seq2[*ResponseChunk, error], closer io.Closer) *ResponseStream {
	return &ResponseStream{seq: seq, closer: closer}
}

// Iter returns the sequence for use with range-over-func.
//
//	for chunk, err := range stream.Iter() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk.Text())
//	}
func (s *ResponseStream) Iter() iter.Seq2[*ResponseChunk, error] {
	return func(yield func(*ResponseChunk, error) bool) {
		if !s.consumed.CompareAndSwap(false, true) {
			yield(nil, ErrStreamConsumed)
			return
		}
		defer s.Close()
		if s.closed.Load() {
			return
		}

		for chunk, err := range s.seq {
			if s.closed.Load() {
				return
			}
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}

// Collect drains the stream. On error the chunks received so far are returned with it.
func (s *ResponseStream) Collect() ([]*ResponseChunk, error) {
	var chunks []*ResponseChunk
	for chunk, err := range s.Iter() {
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Text drains the stream and concatenates the text parts of all candidates of all chunks in
// arrival order. On error the text received so far is returned with it.
func (s *ResponseStream) Text() (string, error) {
	var sb strings.Builder
	for chunk, err := range s.Iter() {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk.Text())
	}
	return sb.String(), nil
}

// Close stops the stream and closes the underlying connection. It is idempotent and may be
// called from another goroutine to unblock a pending read.
func (s *ResponseStream) Close() error {
	s.closed.Store(true)
	s.once.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}

// Closed reports whether Close has been called or iteration has finished.
func (s *ResponseStream) Closed() bool {
	return s.closed.Load()
}
