// Package otel bridges goCookieAuth metrics to an OpenTelemetry meter.
//
// Counters become observable counters. The authenticate latency histogram is
// published as one cumulative gauge per bucket plus a count gauge, since the
// engine keeps fixed buckets rather than raw samples.
package otel
