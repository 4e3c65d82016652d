package crewgate

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crewgate/crewgate/internal/stores"
	"github.com/crewgate/crewgate/profile"
)

// Engine is the runtime surface for every crewgate service: rate limiting,
// two-factor, shift check-in, and trusted-device tokens. Construct one via
// [Builder.Build]; afterwards it is immutable and safe for concurrent use.
type Engine struct {
	config       Config
	rateLimits   *stores.RateLimits
	twoFactor    *stores.TwoFactor
	shifts       *stores.Shifts
	profiles     profile.Store
	location     LocationProvider
	totp         *totpManager
	deviceTokens *deviceTokenManager
	audit        *auditDispatcher
	metrics      *Metrics
	now          func() time.Time
}

// Close flushes and stops the audit pipeline. The engine must not be used
// afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were shed under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) clock() time.Time {
	if e == nil || e.now == nil {
		return time.Now()
	}
	return e.now()
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID, eventID string, opErr error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.clock().UTC(),
		EventType: eventType,
		UserID:    userID,
		EventID:   eventID,
		Success:   success,
		Metadata:  metadata,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}

	e.audit.Emit(ctx, event)
}
