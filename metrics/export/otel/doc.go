// Package otel exposes goPhoneAuth metrics through an OpenTelemetry Meter.
//
// [New] registers one Int64ObservableCounter per counter and, per latency
// histogram, one Int64ObservableGauge per cumulative bucket plus a count
// gauge. A single callback reads [goPhoneAuth.Engine.MetricsSnapshot] on each
// collection. The caller owns the MeterProvider.
package otel
