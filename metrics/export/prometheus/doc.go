// Package prometheus renders goAuthState gateway metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] reads a [goAuthState.Gateway] and exposes an
// [http.Handler]. Counter names are prefixed goauthstate_*_total; the single
// histogram is goauthstate_sign_in_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate gateway state.
package prometheus
