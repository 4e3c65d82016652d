package crewgate

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// AuditEvent is one security-relevant occurrence: a lockout, a two-factor
// verification, a geofence rejection. Events are emitted asynchronously; see
// [AuditConfig].
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	// EventID refers to the marketplace event (venue booking), not the audit
	// record.
	EventID  string            `json:"event_id,omitempty"`
	Success  bool              `json:"success"`
	Error    string            `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

// Emit implements [AuditSink].
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel for in-process consumers.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink creates a sink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

// Emit implements [AuditSink].
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events exposes the receive side of the sink.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON line per event, suitable for log shipping.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a sink over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit implements [AuditSink].
func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

const (
	auditEventRateLimitLocked  = "ratelimit.locked"
	auditEventRateLimitCleared = "ratelimit.cleared"

	auditEventTwoFactorSetupStarted = "twofactor.setup.started"
	auditEventTwoFactorEnabled      = "twofactor.enabled"
	auditEventTwoFactorDisabled     = "twofactor.disabled"
	auditEventTwoFactorVerified     = "twofactor.verified"
	auditEventTwoFactorFailed       = "twofactor.failed"
	auditEventBackupCodeUsed        = "twofactor.backup_code.used"
	auditEventBackupCodesReplaced   = "twofactor.backup_codes.replaced"

	auditEventCheckIn       = "checkin.recorded"
	auditEventCheckInDenied = "checkin.denied"
	auditEventCheckOut      = "checkout.recorded"
	auditEventBreakStarted  = "break.started"
	auditEventBreakEnded    = "break.ended"

	auditEventDeviceTokenIssued = "device_token.issued"
)
