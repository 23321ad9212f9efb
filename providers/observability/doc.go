// Package observability defines the tracing, metrics and logging facade used by the
// vertexgen providers, plus the attribute and span names they record.
//
// A [Provider] bundles [Tracer], [Metrics] and [Logger]. It travels on a
// [context.Context] through [ContextWithObserver] and [ContextWithSpan]; library code looks
// it up with [ObserverFromContext] and [SpanFromContext] and records nothing when absent.
// The slogobs subpackage is the log/slog backed implementation.
package observability
