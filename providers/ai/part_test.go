package ai

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

// TestPart_MarshalJSON_EmitsOnlyVariantKey checks the discriminant-free wire form of every
// variant.
func TestPart_MarshalJSON_EmitsOnlyVariantKey(t *testing.T) {
	tests := []struct {
		name string
		part Part
		want string
	}{
		{"text", NewTextPart("hi"), `{"text":"hi"}`},
		{"inline", NewInlineDataPart("image/png", []byte{0x89, 'P'}), `{"inlineData":{"mimeType":"image/png","data":"iVA="}}`},
		{"file", NewFileDataPart("image/jpeg", "gs://bucket/a.jpg"), `{"fileData":{"mimeType":"image/jpeg","fileUri":"gs://bucket/a.jpg"}}`},
		{"call", NewFunctionCallPart("find_theaters", map[string]any{"location": "Mountain View"}), `{"functionCall":{"name":"find_theaters","args":{"location":"Mountain View"}}}`},
		{"call without args", NewFunctionCallPart("ping", nil), `{"functionCall":{"name":"ping"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.part)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// TestPart_MarshalJSON_ZeroPartFails checks that an unset union cannot reach the wire.
func TestPart_MarshalJSON_ZeroPartFails(t *testing.T) {
	_, err := json.Marshal(Part{})
	if !errors.Is(err, ErrInvalidPart) {
		t.Fatalf("err = %v, want ErrInvalidPart", err)
	}
}

// TestPart_UnmarshalJSON_EachVariant checks decoding of every shape, including snake_case
// inner keys and ignored siblings.
func TestPart_UnmarshalJSON_EachVariant(t *testing.T) {
	var text Part
	if err := json.Unmarshal([]byte(`{"text":"Hello","thought":false}`), &text); err != nil {
		t.Fatal(err)
	}
	if text.Kind() != PartText || text.Text() != "Hello" {
		t.Errorf("text part = %+v", text)
	}

	var inline Part
	if err := json.Unmarshal([]byte(`{"inlineData":{"mime_type":"image/jpeg","data":"AQI="}}`), &inline); err != nil {
		t.Fatal(err)
	}
	data, ok := inline.InlineData()
	if !ok || data.MimeType != "image/jpeg" {
		t.Fatalf("inline part = %+v", inline)
	}
	raw, err := data.Bytes()
	if err != nil || !reflect.DeepEqual(raw, []byte{1, 2}) {
		t.Errorf("Bytes() = %v, %v", raw, err)
	}

	var file Part
	if err := json.Unmarshal([]byte(`{"fileData":{"file_uri":"gs://b/o.png"}}`), &file); err != nil {
		t.Fatal(err)
	}
	fd, ok := file.FileData()
	if !ok || fd.FileURI != "gs://b/o.png" || fd.MimeType != "" {
		t.Errorf("file part = %+v", fd)
	}

	var call Part
	if err := json.Unmarshal([]byte(`{"functionCall":{"name":"find_movies","args":{"description":"comedy"}}}`), &call); err != nil {
		t.Fatal(err)
	}
	fc, ok := call.FunctionCall()
	if !ok || fc.Name != "find_movies" || fc.Args["description"] != "comedy" {
		t.Errorf("call part = %+v", fc)
	}
}

// TestPart_UnmarshalJSON_InlineDataWinsOverFileData checks the fixed matching order on an
// ambiguous object.
func TestPart_UnmarshalJSON_InlineDataWinsOverFileData(t *testing.T) {
	payload := `{"fileData":{"mimeType":"image/png","fileUri":"gs://b/o"},"inlineData":{"mimeType":"image/png","data":"AA=="}}`

	var part Part
	if err := json.Unmarshal([]byte(payload), &part); err != nil {
		t.Fatal(err)
	}
	if part.Kind() != PartInlineData {
		t.Errorf("Kind() = %v, want inlineData", part.Kind())
	}
}

// TestPart_UnmarshalJSON_TextWinsOverEverything checks that text is tried first.
func TestPart_UnmarshalJSON_TextWinsOverEverything(t *testing.T) {
	var part Part
	if err := json.Unmarshal([]byte(`{"functionCall":{"name":"f"},"text":"t"}`), &part); err != nil {
		t.Fatal(err)
	}
	if part.Kind() != PartText {
		t.Errorf("Kind() = %v, want text", part.Kind())
	}
}

// TestPart_UnmarshalJSON_IncompleteShapeFallsThrough checks that a shape missing a required
// key does not match and the next one is tried.
func TestPart_UnmarshalJSON_IncompleteShapeFallsThrough(t *testing.T) {
	var part Part
	payload := `{"inlineData":{"mimeType":"image/png"},"fileData":{"fileUri":"gs://b/o"}}`
	if err := json.Unmarshal([]byte(payload), &part); err != nil {
		t.Fatal(err)
	}
	if part.Kind() != PartFileData {
		t.Errorf("Kind() = %v, want fileData", part.Kind())
	}
}

// TestPart_UnmarshalJSON_NoMatchFails checks the error for unknown shapes.
func TestPart_UnmarshalJSON_NoMatchFails(t *testing.T) {
	for _, payload := range []string{`{}`, `{"executableCode":{"code":"x"}}`, `{"text":5}`, `{"functionCall":{"args":{}}}`} {
		var part Part
		err := json.Unmarshal([]byte(payload), &part)
		if !errors.Is(err, ErrInvalidPart) {
			t.Errorf("payload %s: err = %v, want ErrInvalidPart", payload, err)
		}
	}
}

// TestPart_UnmarshalJSON_StringArgsAreRepaired checks the tolerance for args sent as a
// JSON-encoded string.
func TestPart_UnmarshalJSON_StringArgsAreRepaired(t *testing.T) {
	var part Part
	payload := `{"functionCall":{"name":"find_theaters","args":"{'location': 'Mountain View', }"}}`
	if err := json.Unmarshal([]byte(payload), &part); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call, _ := part.FunctionCall()
	if call.Args["location"] != "Mountain View" {
		t.Errorf("args = %v", call.Args)
	}
}

// TestPart_RoundTrip_PreservesOrder checks that interleaved parts keep their order.
func TestPart_RoundTrip_PreservesOrder(t *testing.T) {
	content := NewUserContent(
		NewTextPart("describe"),
		NewFileDataPart("image/jpeg", "gs://b/1.jpg"),
		NewTextPart("and compare with"),
		NewInlineDataPart("image/png", []byte("png")),
	)
	encoded, err := json.Marshal(content)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Content
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(decoded, content) {
		t.Errorf("decoded = %+v\nwant %+v", decoded, content)
	}
}
