// Package ai holds the Vertex AI Gemini data model and the transport-independent halves of
// the client: the content part union, the chunk decoder, the consumer side of a streaming
// session and the error taxonomy.
//
// Requests are built from [Content] values whose [Part]s are created with [NewTextPart],
// [NewInlineDataPart], [NewFileDataPart] and [NewFunctionCallPart]. Responses arrive as
// [ResponseChunk] values, either one at a time from a [ResponseStream] or as a single value
// from a non-streaming call.
//
// Transport concerns live behind [TokenProvider] and [RequestSender]; the gemini subpackage
// wires them to HTTP.
package ai
