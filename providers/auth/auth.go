package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/leofalp/vertexgen/providers/ai"
)

// CloudPlatformScope is the OAuth scope Vertex AI requires. It is used when no scope is
// requested.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// ErrEmptyToken is returned for a blank static token or an empty token from a source.
var ErrEmptyToken = errors.New("empty access token")

// StaticProvider always returns the same token, for example one printed by
// `gcloud auth print-access-token`. It never refreshes.
type StaticProvider struct {
	token string
}

var _ ai.TokenProvider = (*StaticProvider)(nil)

// Static returns a provider for token. Surrounding whitespace is trimmed.
func Static(token string) (*StaticProvider, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	return &StaticProvider{token: token}, nil
}

// Token returns the fixed token; scopes are ignored.
func (p *StaticProvider) Token(ctx context.Context, _ ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.token, nil
}

// GoogleProvider fetches tokens from Application Default Credentials. One cached, auto
// refreshing oauth2.TokenSource is kept per distinct scope set.
type GoogleProvider struct {
	mu        sync.Mutex
	sources   map[string]oauth2.TokenSource
	newSource func(ctx context.Context, scopes ...string) (oauth2.TokenSource, error)
}

var _ ai.TokenProvider = (*GoogleProvider)(nil)

// GoogleOption configures a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithTokenSource makes the provider use source for every scope set instead of looking up
// default credentials.
func WithTokenSource(source oauth2.TokenSource) GoogleOption {
	return func(p *GoogleProvider) {
		p.newSource = func(context.Context, ...string) (oauth2.TokenSource, error) {
			return source, nil
		}
	}
}

// NewGoogle returns a provider backed by google.DefaultTokenSource.
func NewGoogle(opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		sources:   make(map[string]oauth2.TokenSource),
		newSource: google.DefaultTokenSource,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Token returns a valid access token for scopes, refreshing it when expired.
func (p *GoogleProvider) Token(ctx context.Context, scopes ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	source, err := p.source(ctx, scopes)
	if err != nil {
		return "", err
	}

	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	if token.AccessToken == "" {
		return "", ErrEmptyToken
	}
	return token.AccessToken, nil
}

func (p *GoogleProvider) source(ctx context.Context, scopes []string) (oauth2.TokenSource, error) {
	if len(scopes) == 0 {
		scopes = []string{CloudPlatformScope}
	}
	sorted := slices.Clone(scopes)
	slices.Sort(sorted)
	key := strings.Join(slices.Compact(sorted), " ")

	p.mu.Lock()
	defer p.mu.Unlock()

	if source, ok := p.sources[key]; ok {
		return source, nil
	}
	// The source outlives this call and refreshes later, so it must not inherit
	// the request's cancellation.
	source, err := p.newSource(context.WithoutCancel(ctx), scopes...)
	if err != nil {
		return nil, fmt.Errorf("find default credentials: %w", err)
	}
	p.sources[key] = source
	return source, nil
}
