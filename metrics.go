package crewgate

import "sync/atomic"

// MetricID indexes one engine counter.
type MetricID uint16

const (
	// MetricRateLimitHit counts reads that found the key locked.
	MetricRateLimitHit MetricID = iota
	// MetricRateLimitLocked counts failures that tripped a lockout.
	MetricRateLimitLocked
	// MetricRateLimitCleared counts successful attempts and explicit clears.
	MetricRateLimitCleared
	// MetricTwoFactorSetupStarted counts setup initializations.
	MetricTwoFactorSetupStarted
	// MetricTwoFactorEnabled counts completed setups.
	MetricTwoFactorEnabled
	// MetricTwoFactorDisabled counts explicit disables.
	MetricTwoFactorDisabled
	// MetricTwoFactorSuccess counts verifications satisfied by TOTP.
	MetricTwoFactorSuccess
	// MetricTwoFactorFailure counts failed verifications.
	MetricTwoFactorFailure
	// MetricBackupCodeUsed counts verifications satisfied by a backup code.
	MetricBackupCodeUsed
	// MetricBackupCodeRegenerated counts backup-code replacements.
	MetricBackupCodeRegenerated
	// MetricCheckInSuccess counts recorded check-ins.
	MetricCheckInSuccess
	// MetricCheckInDenied counts geofence and invariant rejections.
	MetricCheckInDenied
	// MetricCheckOut counts recorded check-outs.
	MetricCheckOut
	// MetricBreakStarted counts opened breaks.
	MetricBreakStarted
	// MetricBreakEnded counts closed breaks.
	MetricBreakEnded
	// MetricDeviceTokenIssued counts trusted-device tokens issued.
	MetricDeviceTokenIssued
	// MetricDeviceTokenRejected counts failed token validations.
	MetricDeviceTokenRejected
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the in-process counter registry. Counters are padded to avoid
// false sharing on hot paths; disabled registries cost one branch per Inc.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a registry honoring cfg.Enabled.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether the registry records anything.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc bumps one counter. Safe on nil and disabled registries.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
