package goPhoneAuth

import (
	"log/slog"
	"time"

	"github.com/MrEthical07/goPhoneAuth/internal/audit"
	"github.com/MrEthical07/goPhoneAuth/internal/codes"
	"github.com/MrEthical07/goPhoneAuth/internal/limiters"
	"github.com/MrEthical07/goPhoneAuth/internal/metrics"
	"github.com/MrEthical07/goPhoneAuth/jwt"
)

// Engine runs the phone verification, registration, password reset and
// login flows. Build one with [New] and share it; all methods are safe for
// concurrent use.
type Engine struct {
	config     Config
	clock      Clock
	logger     *slog.Logger
	directory  AccountDirectory
	sms        SMSSender
	codeStore  codes.Store
	issuer     *codes.Issuer
	verifier   *codes.Verifier
	throttle   *limiters.IssueThrottle
	jwtManager *jwt.Manager
	input      *inputValidator
	audit      *audit.Dispatcher
	metrics    *metrics.Metrics
}

// Close drains pending audit events. The engine must not be used after.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters and latency
// histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) now() time.Time {
	return e.clock.Now()
}

func (e *Engine) metricInc(id int) {
	e.metrics.Inc(metrics.MetricID(id))
}

func (e *Engine) metricObserve(id int, d time.Duration) {
	e.metrics.Observe(metrics.MetricID(id), d)
}
