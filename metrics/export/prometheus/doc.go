// Package prometheus provides Prometheus collectors for fxauth metrics.
//
// [NewPrometheusExporter] accepts an [fxauth.Engine] and exposes an [http.Handler]
// that renders all fxauth counters and histograms in Prometheus text exposition format.
// Counter names are prefixed fxauth_*_total; the single histogram is
// fxauth_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
