// Package prometheus provides Prometheus collectors for crewgate metrics.
//
// [NewPrometheusExporter] accepts a [crewgate.Engine] and exposes an
// [net/http.Handler] that renders every engine counter in Prometheus text
// exposition format. Counter names are prefixed crewgate_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the
//     Handler.
//   - Mutate engine state.
package prometheus
