// Package internal holds identifier generation shared by the engine and its
// flows.
//
// Sub-packages:
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure Login, Authenticate and Logout orchestration
//   - metrics: lock-free counters and latency histograms
//   - security: posture report built from the configuration
package internal
