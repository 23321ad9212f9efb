// Package utils holds the low-level plumbing shared by the providers: JSON POST helpers for
// buffered ([DoPostSync]) and incremental ([DoPostStream]) responses, the
// [FrameReassembler] that rebuilds SSE or whole-body payloads from arbitrarily fragmented
// bytes, lenient JSON parsing for model-produced arguments, and small string, pointer and
// timing helpers.
package utils
