package observability

// Attribute, span, event and metric names recorded by the providers.

// --- LLM request attributes ---

const (
	// AttrLLMProvider is the backend name, "vertex-gemini".
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the publisher model id, e.g. "gemini-pro".
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the method URL the request was posted to.
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMMethod is the API method: generateContent, streamGenerateContent or countTokens.
	AttrLLMMethod = "llm.method"

	// AttrLLMRequestID is the client-generated id correlating every record of one call.
	AttrLLMRequestID = "llm.request.id"

	// AttrLLMFinishReason is the finish reason of the first candidate.
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrRequestContentsCount is the number of content turns sent.
	AttrRequestContentsCount = "request.contents_count"

	// AttrRequestToolsCount is the number of function declarations sent.
	AttrRequestToolsCount = "request.tools_count"
)

// --- Token usage attributes ---

const (
	AttrLLMTokensPrompt     = "llm.tokens.prompt"     // #nosec G101 -- model tokens, not a credential
	AttrLLMTokensCompletion = "llm.tokens.completion" // #nosec G101 -- model tokens, not a credential
	AttrLLMTokensTotal      = "llm.tokens.total"      // #nosec G101 -- model tokens, not a credential
)

// --- Stream attributes ---

const (
	// AttrStreamFraming is "sse" or "whole_body".
	AttrStreamFraming = "stream.framing"

	// AttrStreamChunks is the number of chunks yielded before the stream ended.
	AttrStreamChunks = "stream.chunks"

	// AttrStreamBufferedBytes is the size of an unterminated remainder at end of stream.
	AttrStreamBufferedBytes = "stream.buffered_bytes"

	// AttrStreamPayloadPreview is a truncated copy of a payload that failed to decode.
	AttrStreamPayloadPreview = "stream.payload_preview"
)

// --- HTTP attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPContentType      = "http.content_type"
	AttrHTTPDuration         = "http.request.duration"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- General attributes ---

const (
	AttrError             = "error"
	AttrErrorType         = "error.type"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"

	// AttrCLICommand is the full command path, e.g. "vertexgen stream".
	AttrCLICommand = "cli.command"
)

// --- Span names ---

const (
	// SpanLLMRequest wraps one non-streaming API call.
	SpanLLMRequest = "llm.request"

	// SpanLLMStream wraps one streaming call from request to end of iteration.
	SpanLLMStream = "llm.stream"

	// SpanCLICommand wraps one CLI subcommand run.
	SpanCLICommand = "cli.command"
)

// --- Event names ---

const (
	EventLLMRequestStart  = "llm.request.start"
	EventLLMRequestEnd    = "llm.request.end"
	EventStreamFirstChunk = "llm.stream.first_chunk"
	EventStreamEnd        = "llm.stream.end"
	EventStreamTruncated  = "llm.stream.truncated"
	EventStreamCancelled  = "llm.stream.cancelled"
)

// --- Metric names ---

const (
	// MetricStreamChunks counts decoded stream chunks.
	MetricStreamChunks = "vertexgen.stream.chunks"

	// MetricStreamFirstChunkMillis is the latency from request start to the first chunk.
	MetricStreamFirstChunkMillis = "vertexgen.stream.first_chunk_ms"

	// MetricRequestErrors counts failed calls, labelled by AttrErrorType.
	MetricRequestErrors = "vertexgen.request.errors"
)
