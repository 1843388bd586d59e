// Package metrics records bootstrap and proxy metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check. The Prometheus recorder is
// swapped in by the serve command when metrics are enabled:
//
//	reg := prometheus.NewRegistry()
//	recorder := metrics.NewPrometheusRecorder(reg)
//	router.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
