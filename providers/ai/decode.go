package ai

import (
	"bytes"
	"encoding/json"
	"errors"
)

var (
	errNotObject = errors.New("payload is not a JSON object")
	errNotArray  = errors.New("payload is neither a JSON array nor an object")
)

type wireChunk struct {
	ResponseChunk
	Error json.RawMessage `json:"error"`
}

// DecodeChunk parses one payload into a ResponseChunk.
//
// Malformed JSON, a non-object payload or a part matching no variant yields *DecodeError.
// A Google error envelope ({"error": {...}}) yields *APIError. Unknown fields are ignored and
// missing optional fields stay nil.
func DecodeChunk(payload string) (*ResponseChunk, error) {
	raw := bytes.TrimSpace([]byte(payload))
	if len(raw) == 0 || raw[0] != '{' {
		return nil, &DecodeError{Payload: payload, Err: errNotObject}
	}

	var chunk wireChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, &DecodeError{Payload: payload, Err: err}
	}
	if len(chunk.Error) > 0 && !bytes.Equal(chunk.Error, []byte("null")) {
		return nil, NewAPIError(0, "", raw)
	}
	return &chunk.ResponseChunk, nil
}

// DecodeChunks parses a whole-body stream: a JSON array of chunk objects. A single object is
// accepted as a one-element array. Elements are decoded with DecodeChunk, so the first bad
// element fails the whole payload.
func DecodeChunks(payload string) ([]*ResponseChunk, error) {
	raw := bytes.TrimSpace([]byte(payload))
	if len(raw) > 0 && raw[0] == '{' {
		chunk, err := DecodeChunk(payload)
		if err != nil {
			return nil, err
		}
		return []*ResponseChunk{chunk}, nil
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, &DecodeError{Payload: payload, Err: errNotArray}
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, &DecodeError{Payload: payload, Err: err}
	}
	chunks := make([]*ResponseChunk, 0, len(elements))
	for _, element := range elements {
		chunk, err := DecodeChunk(string(element))
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// DecodeCountTokens parses a countTokens response body.
func DecodeCountTokens(body []byte) (*CountTokensResponse, error) {
	raw := bytes.TrimSpace(body)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, &DecodeError{Payload: string(body), Err: errNotObject}
	}

	var wire struct {
		CountTokensResponse
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &DecodeError{Payload: string(body), Err: err}
	}
	if len(wire.Error) > 0 && !bytes.Equal(wire.Error, []byte("null")) {
		return nil, NewAPIError(0, "", raw)
	}
	return &wire.CountTokensResponse, nil
}
