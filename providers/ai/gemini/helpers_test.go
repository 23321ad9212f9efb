package gemini

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/leofalp/vertexgen/internal/fakeserver"
	"github.com/leofalp/vertexgen/providers/ai"
)

const testToken = "test-token"

type staticTokens string

func (s staticTokens) Token(context.Context, ...string) (string, error) {
	return string(s), nil
}

type failingTokens struct {
	err error
}

func (f failingTokens) Token(context.Context, ...string) (string, error) {
	return "", f.err
}

func newTestServer(t *testing.T) *fakeserver.Server {
	t.Helper()
	server := fakeserver.New(testToken)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, server *fakeserver.Server, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithBaseURL(server.URL),
		WithProject("test-project"),
		WithLocation("us-central1"),
		WithTokenProvider(staticTokens(testToken)),
	}
	client, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("Failed to build client: %v", err)
	}
	return client
}

// textChunk renders one response chunk carrying a single text part.
func textChunk(t *testing.T, text string) string {
	t.Helper()
	encoded, err := json.Marshal(text)
	if err != nil {
		t.Fatalf("Failed to encode text: %v", err)
	}
	return `{"candidates":[{"content":{"role":"model","parts":[{"text":` + string(encoded) + `}]},"index":0}]}`
}

func userPrompt(text string) ai.GenerateRequest {
	return ai.GenerateRequest{Contents: []ai.Content{ai.NewUserContent(ai.NewTextPart(text))}}
}
