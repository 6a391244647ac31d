// Package audit delivers authentication events to pluggable sinks.
//
// The Engine decides what to emit; this package only buffers events and
// hands them to a [Sink] (channel, JSON lines, zerolog or no-op) from a
// background goroutine owned by a [Dispatcher].
package audit
