// Package gemini is the Vertex AI Gemini client. It sends generateContent,
// streamGenerateContent and countTokens requests to
//
//	https://{API_ENDPOINT}/v1beta1/projects/{PROJECT}/locations/{LOCATION}/publishers/google/models/{MODEL}:{method}
//
// and decodes the responses with the providers/ai chunk decoder.
//
// Streaming requests ask for SSE with ?alt=sse by default. The framing actually applied is
// chosen from the response Content-Type, so a server answering with the whole-body JSON array
// is still decoded correctly, only later: nothing is yielded until that body is complete.
//
// Authentication comes from an ai.TokenProvider and the HTTP transport from an
// ai.RequestSender; see providers/auth for token providers. When an observability.Provider
// is attached to the context the client records spans, events and metrics for every call.
package gemini
