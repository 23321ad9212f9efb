package utils

import (
	"bytes"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"
)

// FramingMode selects how a response body is split into payloads.
type FramingMode int

const (
	// FramingSSE splits the body into Server-Sent Events, one payload per "data: " event.
	FramingSSE FramingMode = iota
	// FramingWholeBody treats the entire body as a single payload emitted at end of stream.
	// Nothing is produced until the body is complete.
	FramingWholeBody
)

// String returns the attribute-friendly name of the mode.
func (m FramingMode) String() string {
	switch m {
	case FramingSSE:
		return "sse"
	case FramingWholeBody:
		return "whole_body"
	default:
		return fmt.Sprintf("FramingMode(%d)", int(m))
	}
}

// EventStreamContentType is the media type that switches a response into SSE framing.
const EventStreamContentType = "text/event-stream"

// FramingModeFor picks the framing mode from a response Content-Type header value.
// Only text/event-stream selects SSE; anything else, including an empty or unparsable
// header, is framed as a whole body.
func FramingModeFor(contentType string) FramingMode {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if mediaType == EventStreamContentType {
		return FramingSSE
	}
	return FramingWholeBody
}

// FrameState is the state of a FrameReassembler.
type FrameState int

const (
	// FrameAccumulating means no complete event is buffered.
	FrameAccumulating FrameState = iota
	// FrameEventReady means at least one complete event is buffered and Drain will make progress.
	FrameEventReady
)

// String returns the state name.
func (s FrameState) String() string {
	if s == FrameEventReady {
		return "event_ready"
	}
	return "accumulating"
}

const sseDataPrefix = "data: "

// sseTerminators are the blank-line sequences that end an event. CRLF is what Vertex emits;
// bare LF is accepted because the SSE standard allows it.
var sseTerminators = [][]byte{[]byte("\r\n\r\n"), []byte("\n\n")}

// longestTerminator is used to rewind the scan offset so a terminator split across
// two fragments is still found.
const longestTerminator = 4

// TruncatedFrameError reports an end of stream that left an unterminated SSE event in the
// buffer. The connection closed cleanly but the server never finished the event.
type TruncatedFrameError struct {
	Remainder string
}

func (e *TruncatedFrameError) Error() string {
	return fmt.Sprintf("stream ended inside an unterminated event (%d bytes buffered): %s",
		len(e.Remainder), TruncateString(e.Remainder, 120))
}

// FrameError reports a complete event that cannot be turned into text.
type FrameError struct {
	Raw []byte
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("event is not valid UTF-8 (%d bytes)", len(e.Raw))
}

// FrameReassembler turns arbitrarily fragmented body bytes into complete textual payloads.
//
// Fragments are appended to one growable buffer with Feed. In SSE mode every blank-line
// terminated event becomes available through Drain, which must be called until it reports
// ok == false since a single fragment can complete several events. In whole-body mode the
// buffer is only released by Finish.
//
// Text conversion happens on complete events only, so a fragment boundary that falls inside
// a multi-byte rune is harmless. A FrameReassembler is owned by a single reader and is not
// safe for concurrent use.
type FrameReassembler struct {
	mode  FramingMode
	state FrameState
	buf   []byte
	// scanFrom is where the next terminator search starts; bytes before it hold no terminator.
	scanFrom int
	// eventEnd and termLen describe the earliest complete event while state is FrameEventReady.
	eventEnd int
	termLen  int
}

// NewFrameReassembler returns an empty reassembler in the Accumulating state.
func NewFrameReassembler(mode FramingMode) *FrameReassembler {
	return &FrameReassembler{mode: mode, state: FrameAccumulating}
}

// Mode returns the framing mode.
func (r *FrameReassembler) Mode() FramingMode { return r.mode }

// State returns the current state.
func (r *FrameReassembler) State() FrameState { return r.state }

// Buffered returns the number of bytes held but not yet emitted.
func (r *FrameReassembler) Buffered() int { return len(r.buf) }

// Feed appends a fragment. A zero-length fragment changes nothing.
func (r *FrameReassembler) Feed(fragment []byte) {
	if len(fragment) == 0 {
		return
	}
	r.buf = append(r.buf, fragment...)
	if r.mode == FramingSSE && r.state == FrameAccumulating {
		r.scan()
	}
}

// scan looks for the earliest terminator at or after scanFrom and moves to EventReady
// when one is found.
func (r *FrameReassembler) scan() {
	end, termLen := -1, 0
	window := r.buf[r.scanFrom:]
	for _, terminator := range sseTerminators {
		if idx := bytes.Index(window, terminator); idx >= 0 && (end < 0 || idx < end) {
			end, termLen = idx, len(terminator)
		}
	}
	if end < 0 {
		r.scanFrom = max(0, len(r.buf)-(longestTerminator-1))
		return
	}
	r.eventEnd = r.scanFrom + end
	r.termLen = termLen
	r.state = FrameEventReady
}

// Drain extracts the next complete "data: " payload. It returns ok == false once no complete
// event remains. Events that do not start with "data: " (comments, id-only or event-only
// blocks) are dropped and draining continues past them. Whole-body mode never drains.
func (r *FrameReassembler) Drain() (string, bool, error) {
	for r.state == FrameEventReady {
		event := r.buf[:r.eventEnd]
		rest := r.buf[r.eventEnd+r.termLen:]

		payload, keep, err := extractData(event)

		// Compact the remainder into a fresh buffer so emitted bytes are released.
		r.buf = append(make([]byte, 0, len(rest)), rest...)
		r.scanFrom = 0
		r.state = FrameAccumulating
		if len(r.buf) > 0 {
			r.scan()
		}

		if err != nil {
			return "", false, err
		}
		if keep {
			return payload, true, nil
		}
	}
	return "", false, nil
}

// extractData turns one event block (terminator excluded) into its payload. Line breaks
// left over from extra blank lines between events are skipped first.
func extractData(event []byte) (string, bool, error) {
	event = bytes.TrimLeft(event, "\r\n")
	if !bytes.HasPrefix(event, []byte(sseDataPrefix)) {
		return "", false, nil
	}
	if !utf8.Valid(event) {
		return "", false, &FrameError{Raw: bytes.Clone(event)}
	}

	text := string(event)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	data := make([]string, 0, len(lines))
	for _, line := range lines {
		if value, ok := strings.CutPrefix(line, sseDataPrefix); ok {
			data = append(data, value)
		}
	}
	return strings.Join(data, "\n"), true, nil
}

// Finish reports end of stream.
//
// In whole-body mode the accumulated body is returned as the single payload; an empty or
// whitespace-only body yields ok == false. In SSE mode complete events must already have
// been drained; a whitespace-only remainder is a clean close and anything else yields a
// *TruncatedFrameError. The buffer is released in every case.
//
// In SSE mode Finish may be called repeatedly: while complete events are still buffered it
// returns them one at a time, exactly like Drain.
func (r *FrameReassembler) Finish() (string, bool, error) {
	if r.mode == FramingSSE && r.state == FrameEventReady {
		if payload, ok, err := r.Drain(); err != nil || ok {
			return payload, ok, err
		}
	}

	remainder := r.buf
	r.Reset()

	if len(bytes.TrimSpace(remainder)) == 0 {
		return "", false, nil
	}
	if r.mode == FramingSSE {
		return "", false, &TruncatedFrameError{Remainder: string(remainder)}
	}
	if !utf8.Valid(remainder) {
		return "", false, &FrameError{Raw: remainder}
	}
	return string(remainder), true, nil
}

// Reset drops all buffered bytes and returns to the Accumulating state.
func (r *FrameReassembler) Reset() {
	r.buf = nil
	r.scanFrom = 0
	r.eventEnd = 0
	r.termLen = 0
	r.state = FrameAccumulating
}
