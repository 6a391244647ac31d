// Package prometheus renders goCookieAuth metrics in the Prometheus text
// format. Mount [Exporter.Handler] on your metrics route; nothing is
// registered globally.
package prometheus
