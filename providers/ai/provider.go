package ai

import (
	"context"
	"net/http"
)

// TokenProvider supplies the bearer token sent as "Authorization: Bearer <token>".
// Implementations cache and refresh as they see fit; failures surface as *AuthError.
type TokenProvider interface {
	Token(ctx context.Context, scopes ...string) (string, error)
}

// RequestSender performs one HTTP request. *http.Client satisfies it. The request carries
// the caller's context, so cancelling it aborts both the send and any pending body read.
type RequestSender interface {
	Do(req *http.Request) (*http.Response, error)
}

// Generator is the client surface used by front ends. The gemini client implements it.
type Generator interface {
	GenerateContent(ctx context.Context, request GenerateRequest) (*ResponseChunk, error)
	StreamGenerateContent(ctx context.Context, request GenerateRequest, opts ...StreamOption) (*ResponseStream, error)
	CountTokens(ctx context.Context, request CountTokensRequest) (*CountTokensResponse, error)
}

// StreamOptions tune one streaming call.
type StreamOptions struct {
	// WholeBody asks for the JSON array form instead of SSE. Nothing is yielded until the
	// whole body has arrived.
	WholeBody bool
}

// StreamOption sets a StreamOptions field.
type StreamOption func(*StreamOptions)

// WithWholeBody requests the whole-body array form of streamGenerateContent.
func WithWholeBody() StreamOption {
	return func(o *StreamOptions) {
		o.WholeBody = true
	}
}

// ApplyStreamOptions folds opts into a StreamOptions value.
func ApplyStreamOptions(opts ...StreamOption) StreamOptions {
	var options StreamOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
