// Package webfetch downloads a web page and converts its HTML to Markdown, the input the
// summarize-url command sends to the model.
package webfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/vertexgen/internal/utils"
)

const (
	// DefaultTimeout bounds one fetch, redirects included.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent unless overridden.
	DefaultUserAgent = "vertexgen-webfetch/1.0"
	// DefaultMaxBodySize caps the HTML read (10MB).
	DefaultMaxBodySize = 10 * 1024 * 1024
	maxRedirects       = 10
)

// Page is a fetched document.
type Page struct {
	// URL is the final URL after redirects.
	URL      string
	Markdown string
}

type options struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
}

// Option configures Fetch.
type Option func(*options)

// WithClient replaces the HTTP client. Its redirect policy is kept as is.
func WithClient(client *http.Client) Option {
	return func(o *options) { o.client = client }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(userAgent string) Option {
	return func(o *options) {
		if userAgent != "" {
			o.userAgent = userAgent
		}
	}
}

// WithMaxBodySize overrides DefaultMaxBodySize.
func WithMaxBodySize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodySize = n
		}
	}
}

// Fetch retrieves rawURL and returns its content as Markdown. A URL without a scheme gets
// "https://". Non-200 statuses, oversized bodies and conversion failures are errors.
func Fetch(ctx context.Context, rawURL string, opts ...Option) (*Page, error) {
	o := &options{
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.client == nil {
		o.client = &http.Client{
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (>%d)", maxRedirects)
				}
				return nil
			},
		}
	}

	target := strings.TrimSpace(rawURL)
	if target == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", o.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer utils.CloseWithLog(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status fetching %s: %s", target, resp.Status)
	}

	// One byte past the cap tells an exact fit from an overflow.
	html, err := io.ReadAll(io.LimitReader(resp.Body, o.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	if int64(len(html)) > o.maxBodySize {
		return nil, fmt.Errorf("page exceeds maximum size of %d bytes", o.maxBodySize)
	}

	markdown, err := htmltomarkdown.ConvertString(string(html))
	if err != nil {
		return nil, fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}

	return &Page{URL: resp.Request.URL.String(), Markdown: markdown}, nil
}
