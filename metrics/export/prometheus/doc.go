// Package prometheus renders goPhoneAuth metrics in the Prometheus text
// exposition format.
//
// [New] wraps an [goPhoneAuth.Engine]; mount [Exporter.Handler] wherever the
// scrape endpoint lives. Counters are named phoneauth_*_total and the two
// latency histograms are phoneauth_code_verify_latency_seconds and
// phoneauth_login_latency_seconds. Nothing is registered globally.
package prometheus
