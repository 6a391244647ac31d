// Package metrics provides lock-free counters and latency histograms for
// the authentication engine.
//
// Counters live in cache-line-padded atomics and histograms use eight fixed
// buckets (<=5ms up to +Inf). Nothing here performs I/O; exporters in
// metrics/export read [Snapshot] values.
package metrics
