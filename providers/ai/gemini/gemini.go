package gemini

import (
	"context"
	"errors"
	"net/http"

	"github.com/leofalp/vertexgen/internal/utils"
	"github.com/leofalp/vertexgen/providers/ai"
)

const providerName = "vertex-gemini"

// defaultReadSize is the buffer size of one body read in a streaming session.
const defaultReadSize = 4096

// Client calls one Vertex AI publisher model. It holds no per-request state and is safe for
// concurrent use; every call is an independent request.
type Client struct {
	endpoint Endpoint
	sender   ai.RequestSender
	tokens   ai.TokenProvider
	scopes   []string
	readSize int
}

var _ ai.Generator = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint sets the API host, e.g. us-central1-aiplatform.googleapis.com.
func WithEndpoint(host string) Option {
	return func(c *Client) { c.endpoint.Host = host }
}

// WithProject sets the Google Cloud project id.
func WithProject(project string) Option {
	return func(c *Client) { c.endpoint.Project = project }
}

// WithLocation sets the region, e.g. us-central1.
func WithLocation(location string) Option {
	return func(c *Client) { c.endpoint.Location = location }
}

// WithModel sets the publisher model id. Empty keeps DefaultModel.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.endpoint.Model = model
		}
	}
}

// WithAPIVersion overrides DefaultAPIVersion.
func WithAPIVersion(version string) Option {
	return func(c *Client) { c.endpoint.APIVersion = version }
}

// WithBaseURL replaces the scheme and host of every method URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.endpoint.BaseURL = baseURL }
}

// WithSender sets the HTTP transport. The default is an http.Client without timeout, since
// streams can legitimately run for minutes; bound calls with the context instead.
func WithSender(sender ai.RequestSender) Option {
	return func(c *Client) { c.sender = sender }
}

// WithTokenProvider sets the source of bearer tokens. It is required.
func WithTokenProvider(tokens ai.TokenProvider) Option {
	return func(c *Client) { c.tokens = tokens }
}

// WithScopes overrides the OAuth scopes requested from the token provider.
func WithScopes(scopes ...string) Option {
	return func(c *Client) { c.scopes = scopes }
}

// WithReadSize sets the buffer size of one body read while streaming.
func WithReadSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.readSize = n
		}
	}
}

// New builds a Client. Host, project, location and a token provider are required.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		endpoint: Endpoint{Model: DefaultModel, APIVersion: DefaultAPIVersion},
		sender:   &http.Client{},
		readSize: defaultReadSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.endpoint.Validate(); err != nil {
		return nil, err
	}
	if c.tokens == nil {
		return nil, errors.New("gemini: a token provider is required")
	}
	return c, nil
}

// Model returns the configured model id.
func (c *Client) Model() string {
	return c.endpoint.Model
}

// Endpoint returns the resolved endpoint.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// GenerateContent sends one non-streaming request and decodes the complete body. Failures
// are atomic: no partial chunk is returned with an error.
func (c *Client) GenerateContent(ctx context.Context, request ai.GenerateRequest) (*ai.ResponseChunk, error) {
	url := c.endpoint.MethodURL(MethodGenerateContent, nil)
	ctx, call := c.observe(ctx, MethodGenerateContent, url, len(request.Contents), request.FunctionCount())
	defer call.end()

	body, err := c.post(ctx, url, request)
	if err != nil {
		return nil, call.fail(ctx, err)
	}

	chunk, err := ai.DecodeChunk(string(body))
	if err != nil {
		return nil, call.fail(ctx, err)
	}
	call.succeed(ctx, chunk)
	return chunk, nil
}

// CountTokens returns the token count of request.Contents for the configured model.
func (c *Client) CountTokens(ctx context.Context, request ai.CountTokensRequest) (*ai.CountTokensResponse, error) {
	url := c.endpoint.MethodURL(MethodCountTokens, nil)
	ctx, call := c.observe(ctx, MethodCountTokens, url, len(request.Contents), 0)
	defer call.end()

	body, err := c.post(ctx, url, request)
	if err != nil {
		return nil, call.fail(ctx, err)
	}

	count, err := ai.DecodeCountTokens(body)
	if err != nil {
		return nil, call.fail(ctx, err)
	}
	call.counted(ctx, count)
	return count, nil
}

// post authorizes and sends a buffered request, returning the body of a 2xx response.
func (c *Client) post(ctx context.Context, url string, request any) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	_, body, err := utils.DoPostSync(ctx, c.sender, url, token, request)
	if err != nil {
		return nil, c.mapError(ctx, url, err)
	}
	return body, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	token, err := c.tokens.Token(ctx, c.scopes...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &ai.AuthError{Err: err}
	}
	return token, nil
}

// mapError converts request helper failures into the ai error taxonomy. Context errors are
// passed through so callers can match them with errors.Is.
func (c *Client) mapError(ctx context.Context, url string, err error) error {
	var statusErr *utils.StatusError
	switch {
	case errors.As(err, &statusErr):
		return ai.NewAPIError(statusErr.StatusCode, statusErr.Status, statusErr.Body)
	case errors.Is(err, utils.ErrEncodeBody):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return &ai.TransportError{Op: "send", URL: url, Err: err}
	}
}
