package ai

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leofalp/vertexgen/internal/utils"
)

// PartKind identifies which variant a Part holds.
type PartKind int

const (
	// PartInvalid is the kind of the zero Part.
	PartInvalid PartKind = iota
	PartText
	PartInlineData
	PartFileData
	PartFunctionCall
)

func (k PartKind) String() string {
	switch k {
	case PartText:
		return "text"
	case PartInlineData:
		return "inlineData"
	case PartFileData:
		return "fileData"
	case PartFunctionCall:
		return "functionCall"
	default:
		return "invalid"
	}
}

// InlineData is media sent inside the request. Data holds the base64 text.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Bytes decodes Data.
func (d InlineData) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(d.Data)
}

// FileData references media by URI, typically gs://bucket/object.
type FileData struct {
	MimeType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

// FunctionCall is a model request to invoke a declared function.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Part is one element of Content: text, inline media, a file reference or a function call.
// Exactly one variant is held. Parts are immutable and built with the New*Part constructors
// or by decoding JSON; the zero Part is invalid and fails to marshal.
//
// The wire form carries no discriminant. Decoding tries the shapes in the order
// text, inlineData, fileData, functionCall and keeps the first whose required keys are
// present, so an object with both inlineData and fileData decodes as inline data.
type Part struct {
	kind         PartKind
	text         string
	inlineData   InlineData
	fileData     FileData
	functionCall FunctionCall
}

// ErrInvalidPart is returned when marshaling the zero Part or decoding an object that
// matches no variant.
var ErrInvalidPart = errors.New("content part matches no known variant")

// NewTextPart returns a text part.
func NewTextPart(text string) Part {
	return Part{kind: PartText, text: text}
}

// NewInlineDataPart base64-encodes raw into an inline data part.
func NewInlineDataPart(mimeType string, raw []byte) Part {
	return Part{kind: PartInlineData, inlineData: InlineData{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(raw),
	}}
}

// NewFileDataPart returns a part referencing media by URI.
func NewFileDataPart(mimeType, fileURI string) Part {
	return Part{kind: PartFileData, fileData: FileData{MimeType: mimeType, FileURI: fileURI}}
}

// NewFunctionCallPart returns a function-call part. It is mostly used to replay model turns.
func NewFunctionCallPart(name string, args map[string]any) Part {
	return Part{kind: PartFunctionCall, functionCall: FunctionCall{Name: name, Args: args}}
}

// Kind reports the held variant.
func (p Part) Kind() PartKind { return p.kind }

// Text returns the text of a text part and "" otherwise.
func (p Part) Text() string { return p.text }

// InlineData returns the inline media and whether the part holds it.
func (p Part) InlineData() (InlineData, bool) {
	return p.inlineData, p.kind == PartInlineData
}

// FileData returns the file reference and whether the part holds it.
func (p Part) FileData() (FileData, bool) {
	return p.fileData, p.kind == PartFileData
}

// FunctionCall returns the call and whether the part holds it.
func (p Part) FunctionCall() (FunctionCall, bool) {
	return p.functionCall, p.kind == PartFunctionCall
}

// MarshalJSON emits only the key of the held variant.
func (p Part) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case PartText:
		return json.Marshal(struct {
			Text string `json:"text"`
		}{p.text})
	case PartInlineData:
		return json.Marshal(struct {
			InlineData InlineData `json:"inlineData"`
		}{p.inlineData})
	case PartFileData:
		return json.Marshal(struct {
			FileData FileData `json:"fileData"`
		}{p.fileData})
	case PartFunctionCall:
		return json.Marshal(struct {
			FunctionCall FunctionCall `json:"functionCall"`
		}{p.functionCall})
	default:
		return nil, ErrInvalidPart
	}
}

// wireMedia accepts both the camelCase keys Vertex emits and the snake_case keys proto-JSON
// also allows.
type wireMedia struct {
	MimeType      *string `json:"mimeType"`
	MimeTypeSnake *string `json:"mime_type"`
	Data          *string `json:"data"`
	FileURI       *string `json:"fileUri"`
	FileURISnake  *string `json:"file_uri"`
}

func (m wireMedia) mimeType() (string, bool) {
	return firstSet(m.MimeType, m.MimeTypeSnake)
}

func (m wireMedia) fileURI() (string, bool) {
	return firstSet(m.FileURI, m.FileURISnake)
}

func firstSet(values ...*string) (string, bool) {
	for _, v := range values {
		if v != nil {
			return *v, true
		}
	}
	return "", false
}

type wireFunctionCall struct {
	Name *string         `json:"name"`
	Args json.RawMessage `json:"args"`
}

// UnmarshalJSON reconstructs the variant by ordered shape matching. Unknown sibling keys
// such as "thought" are ignored.
func (p *Part) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if raw, ok := fields["text"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			*p = NewTextPart(text)
			return nil
		}
	}

	if raw, ok := fields["inlineData"]; ok {
		var media wireMedia
		if err := json.Unmarshal(raw, &media); err == nil {
			mimeType, hasMime := media.mimeType()
			if hasMime && media.Data != nil {
				*p = Part{kind: PartInlineData, inlineData: InlineData{MimeType: mimeType, Data: *media.Data}}
				return nil
			}
		}
	}

	if raw, ok := fields["fileData"]; ok {
		var media wireMedia
		if err := json.Unmarshal(raw, &media); err == nil {
			if fileURI, hasURI := media.fileURI(); hasURI {
				mimeType, _ := media.mimeType()
				*p = NewFileDataPart(mimeType, fileURI)
				return nil
			}
		}
	}

	if raw, ok := fields["functionCall"]; ok {
		var call wireFunctionCall
		if err := json.Unmarshal(raw, &call); err == nil && call.Name != nil {
			args, err := decodeArgs(call.Args)
			if err != nil {
				return fmt.Errorf("function call %q: %w", *call.Name, err)
			}
			*p = NewFunctionCallPart(*call.Name, args)
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrInvalidPart, utils.TruncateString(string(data), 200))
}

// decodeArgs accepts an args object, null, or a JSON-encoded string holding the object.
// Only the string form is repaired, since that text was produced by the model.
func decodeArgs(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, err
		}
		return utils.ParseJSONLenient[map[string]any]([]byte(encoded))
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	return args, nil
}
