// Package telemetry exports dispatch records to Prometheus metrics and
// OpenTelemetry spans. Both exporters are statebox.Observer values and can
// be combined with statebox.NewMultiObserver.
package telemetry
