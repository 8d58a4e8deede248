// Package prometheus provides Prometheus collectors for bearauth metrics.
//
// [NewPrometheusExporter] accepts an [bearauth.Engine] and exposes an [http.Handler]
// that renders all bearauth counters and histograms in Prometheus text exposition format.
// Counter names are prefixed bearauth_*_total; the single histogram is
// bearauth_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
