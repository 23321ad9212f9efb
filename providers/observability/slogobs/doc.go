// Package slogobs is the log/slog backed observability.Provider used by the vertexgen CLI
// and by tests.
//
// Spans and metric updates are written as debug records, so a stream session can be followed
// chunk by chunk by running with VERTEXGEN_LOG_LEVEL=debug. Counters and histograms are also
// kept in memory and can be read back with [Observer.CounterValue] and
// [Observer.HistogramCount].
package slogobs
