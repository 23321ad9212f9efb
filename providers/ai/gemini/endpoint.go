package gemini

import (
	"fmt"
	"net/url"
	"strings"
)

// API methods exposed by the publisher model resource.
const (
	MethodGenerateContent       = "generateContent"
	MethodStreamGenerateContent = "streamGenerateContent"
	MethodCountTokens           = "countTokens"
)

const (
	// DefaultAPIVersion is the Vertex AI REST version used in method URLs.
	DefaultAPIVersion = "v1beta1"
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-pro"
)

// Endpoint identifies a publisher model on Vertex AI.
type Endpoint struct {
	// Host is the regional API host, e.g. us-central1-aiplatform.googleapis.com.
	Host       string
	Project    string
	Location   string
	Model      string
	APIVersion string
	// BaseURL replaces "https://{Host}" when set. Tests point it at a local server.
	BaseURL string
}

// Validate reports every missing field in one error.
func (e Endpoint) Validate() error {
	var missing []string
	if e.Host == "" && e.BaseURL == "" {
		missing = append(missing, "API endpoint host")
	}
	if e.Project == "" {
		missing = append(missing, "project")
	}
	if e.Location == "" {
		missing = append(missing, "location")
	}
	if e.Model == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete endpoint: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// MethodURL builds the URL of method on the model, with optional query parameters.
func (e Endpoint) MethodURL(method string, query url.Values) string {
	base := e.BaseURL
	if base == "" {
		base = "https://" + e.Host
	}
	version := e.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}

	u := fmt.Sprintf("%s/%s/projects/%s/locations/%s/publishers/google/models/%s:%s",
		strings.TrimRight(base, "/"),
		version,
		url.PathEscape(e.Project),
		url.PathEscape(e.Location),
		url.PathEscape(e.Model),
		method,
	)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
