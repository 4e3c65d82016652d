package crewgate

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/crewgate/crewgate/internal/stores"
)

// rateLimitID joins action and optional identifier into one storage key, so
// "login" can be throttled globally and "login"+email per account.
func rateLimitID(action, identifier string) string {
	if identifier == "" {
		return action
	}
	return action + ":" + identifier
}

// IsRateLimited reports the current lockout state for action[+identifier].
// Attempts older than cfg.Window are pruned before counting. Limited is true
// only while a lock deadline recorded by [Engine.RecordFailedAttempt] lies in
// the future; attempt counts are never re-evaluated on the read path.
//
// This method FAILS OPEN: when the backend is unreachable it logs and reports
// not-limited, trading strictness for availability on the login path.
func (e *Engine) IsRateLimited(ctx context.Context, action string, cfg RateLimitConfig, identifier string) RateLimitStatus {
	if e == nil || e.rateLimits == nil {
		return RateLimitStatus{}
	}
	if err := cfg.validate(); err != nil {
		log.Printf("crewgate: rejecting rate limit config for %q: %v", action, err)
		return RateLimitStatus{}
	}

	now := e.clock()
	state, ok, err := e.rateLimits.Get(ctx, rateLimitID(action, identifier))
	if err != nil {
		log.Printf("crewgate: rate limit read failed for %q, failing open: %v", action, err)
		return RateLimitStatus{}
	}
	if !ok {
		return RateLimitStatus{}
	}

	attempts := pruneAttempts(state.Attempts, now, cfg.Window)

	status := RateLimitStatus{Attempts: len(attempts)}
	if state.LockedUntil != nil && state.LockedUntil.After(now) {
		status.Limited = true
		status.RemainingTime = state.LockedUntil.Sub(now)
		e.metricInc(MetricRateLimitHit)
	}
	return status
}

// RecordFailedAttempt appends a failure for action[+identifier]. When the
// pruned attempt count reaches cfg.MaxAttempts the key locks for cfg.Lockout
// and the result carries Locked plus the full lockout duration.
//
// Unlike the read path, write failures surface as [ErrRateLimitUnavailable]:
// silently dropping failures would let an attacker ride out a backend outage.
func (e *Engine) RecordFailedAttempt(ctx context.Context, action string, cfg RateLimitConfig, identifier string) (FailedAttemptResult, error) {
	if e == nil || e.rateLimits == nil {
		return FailedAttemptResult{}, ErrEngineNotReady
	}
	if err := cfg.validate(); err != nil {
		return FailedAttemptResult{}, err
	}

	id := rateLimitID(action, identifier)
	now := e.clock()

	state, _, err := e.rateLimits.Get(ctx, id)
	if err != nil {
		// Read failure degrades to an empty window; the write below still
		// records this attempt if the backend has recovered.
		log.Printf("crewgate: rate limit read failed for %q: %v", action, err)
		state = stores.RateLimitState{}
	}

	attempts := append(pruneAttempts(state.Attempts, now, cfg.Window), now)
	next := stores.RateLimitState{Attempts: attempts}

	// Keys self-clean once both the window and a full lockout have passed.
	ttl := cfg.Window + cfg.Lockout

	if len(attempts) >= cfg.MaxAttempts {
		until := now.Add(cfg.Lockout)
		next.LockedUntil = &until
		if err := e.rateLimits.Put(ctx, id, next, ttl); err != nil {
			return FailedAttemptResult{}, fmt.Errorf("%w: %v", ErrRateLimitUnavailable, err)
		}
		e.metricInc(MetricRateLimitLocked)
		e.emitAudit(ctx, auditEventRateLimitLocked, false, identifier, "", ErrRateLimited, map[string]string{
			"action":   action,
			"attempts": strconv.Itoa(len(attempts)),
		})
		return FailedAttemptResult{
			Locked:        true,
			RemainingTime: cfg.Lockout,
		}, nil
	}

	if err := e.rateLimits.Put(ctx, id, next, ttl); err != nil {
		return FailedAttemptResult{}, fmt.Errorf("%w: %v", ErrRateLimitUnavailable, err)
	}
	return FailedAttemptResult{
		RemainingAttempts: cfg.MaxAttempts - len(attempts),
	}, nil
}

// RecordSuccessfulAttempt resets the key after a success: attempts empty,
// lock cleared, regardless of prior state.
func (e *Engine) RecordSuccessfulAttempt(ctx context.Context, action, identifier string) error {
	return e.ClearRateLimit(ctx, action, identifier)
}

// ClearRateLimit erases all state for action[+identifier].
func (e *Engine) ClearRateLimit(ctx context.Context, action, identifier string) error {
	if e == nil || e.rateLimits == nil {
		return ErrEngineNotReady
	}
	if err := e.rateLimits.Delete(ctx, rateLimitID(action, identifier)); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimitUnavailable, err)
	}
	e.metricInc(MetricRateLimitCleared)
	e.emitAudit(ctx, auditEventRateLimitCleared, true, identifier, "", nil, map[string]string{
		"action": action,
	})
	return nil
}

func pruneAttempts(attempts []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	kept := attempts[:0]
	for _, at := range attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	return kept
}
