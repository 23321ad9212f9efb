package ai

import (
	"strings"

	"github.com/leofalp/vertexgen/internal/jsonschema"
)

// Roles accepted in Content.Role.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Content is one conversation turn. Part order is significant.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// NewUserContent is a shorthand for a user turn.
func NewUserContent(parts ...Part) Content {
	return Content{Role: RoleUser, Parts: parts}
}

// GenerationConfig holds optional sampling parameters. Nil fields are left out of the
// request so server defaults apply.
type GenerationConfig struct {
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
	CandidateCount  *int     `json:"candidateCount,omitempty"`
}

// IsZero reports whether no field is set.
func (c *GenerationConfig) IsZero() bool {
	return c == nil || (c.MaxOutputTokens == nil && c.Temperature == nil && c.TopP == nil &&
		c.TopK == nil && len(c.StopSequences) == 0 && c.CandidateCount == nil)
}

// Tool groups function declarations offered to the model.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty"`
}

// FunctionDeclaration describes one callable function.
type FunctionDeclaration struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// GenerateRequest is the body of generateContent and streamGenerateContent.
type GenerateRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
	Tools            []Tool            `json:"tools,omitempty"`
}

// FunctionCount returns the number of function declarations across all tools.
func (r *GenerateRequest) FunctionCount() int {
	count := 0
	for _, tool := range r.Tools {
		count += len(tool.FunctionDeclarations)
	}
	return count
}

// CountTokensRequest is the body of countTokens.
type CountTokensRequest struct {
	Contents []Content `json:"contents"`
}

// CountTokensResponse is the result of countTokens.
type CountTokensResponse struct {
	TotalTokens             int  `json:"totalTokens"`
	TotalBillableCharacters *int `json:"totalBillableCharacters,omitempty"`
}

// ResponseChunk is one decoded unit of model output: an SSE event, one element of a
// whole-body array, or a full non-streaming response.
type ResponseChunk struct {
	Candidates     []Candidate     `json:"candidates"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
}

// Text concatenates the text parts of every candidate in order.
func (c *ResponseChunk) Text() string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	for _, candidate := range c.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Kind() == PartText {
				sb.WriteString(part.Text())
			}
		}
	}
	return sb.String()
}

// FunctionCalls lists the function-call parts of every candidate in order.
func (c *ResponseChunk) FunctionCalls() []FunctionCall {
	if c == nil {
		return nil
	}
	var calls []FunctionCall
	for _, candidate := range c.Candidates {
		for _, part := range candidate.Content.Parts {
			if call, ok := part.FunctionCall(); ok {
				calls = append(calls, call)
			}
		}
	}
	return calls
}

// Candidate is one alternative output inside a chunk.
type Candidate struct {
	Content          Content           `json:"content"`
	CitationMetadata *CitationMetadata `json:"citationMetadata,omitempty"`
	SafetyRatings    []SafetyRating    `json:"safetyRatings,omitempty"`
	FinishReason     *string           `json:"finishReason,omitempty"`
	Index            int               `json:"index,omitempty"`
}

// SafetyRating is the classifier verdict for one harm category.
type SafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
	Blocked     bool   `json:"blocked,omitempty"`
}

// CitationMetadata lists the sources a candidate recites.
type CitationMetadata struct {
	Citations []Citation `json:"citations,omitempty"`
}

// Citation points at a recited source span of the candidate text.
type Citation struct {
	StartIndex int    `json:"startIndex,omitempty"`
	EndIndex   int    `json:"endIndex,omitempty"`
	URI        string `json:"uri,omitempty"`
	Title      string `json:"title,omitempty"`
	License    string `json:"license,omitempty"`
}

// UsageMetadata reports token usage. Streams usually carry it on the last chunk only.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// PromptFeedback is present when the prompt itself was blocked.
type PromptFeedback struct {
	BlockReason   string         `json:"blockReason,omitempty"`
	SafetyRatings []SafetyRating `json:"safetyRatings,omitempty"`
}
