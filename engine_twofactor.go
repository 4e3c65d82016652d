package crewgate

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/crewgate/crewgate/internal/stores"
)

// BeginTwoFactorSetup generates fresh two-factor material for the user: a
// shared secret, a full set of single-use backup codes, and the otpauth://
// provisioning URI for the given account label (normally the user's email).
// The material persists in pending form; nothing is enabled and the profile
// mirror is untouched until [Engine.CompleteTwoFactorSetup].
//
// The returned plaintext codes and secret are shown to the user exactly once
// and are not recoverable afterwards.
func (e *Engine) BeginTwoFactorSetup(ctx context.Context, userID, account string) (*TwoFactorSetup, error) {
	if e == nil || e.twoFactor == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrTwoFactorNotConfigured
	}

	existing, ok, err := e.twoFactor.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}
	if ok && existing.Enabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	secretRaw, secretBase32, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}

	codes, hashes, err := e.newBackupCodeSet(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}

	record := stores.TwoFactorRecord{
		Secret:           secretRaw,
		Enabled:          false,
		BackupCodeHashes: hashes,
		CreatedAt:        e.clock().UTC(),
	}
	if err := e.twoFactor.Put(ctx, userID, record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}

	account = accountLabel(account, userID)
	e.metricInc(MetricTwoFactorSetupStarted)
	e.emitAudit(ctx, auditEventTwoFactorSetupStarted, true, userID, "", nil, nil)

	return &TwoFactorSetup{
		Secret:          secretBase32,
		BackupCodes:     codes,
		ProvisioningURI: e.totp.ProvisionURI(secretBase32, account),
	}, nil
}

// VerifySetupCode checks a code against the pending secret so the client can
// confirm the user scanned the QR correctly. It never enables two-factor; a
// true result should be followed by [Engine.CompleteTwoFactorSetup].
func (e *Engine) VerifySetupCode(ctx context.Context, userID, code string) (bool, error) {
	if e == nil || e.twoFactor == nil {
		return false, ErrEngineNotReady
	}

	record, ok, err := e.twoFactor.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}
	if !ok {
		return false, ErrTwoFactorNotConfigured
	}

	matched, err := e.totp.VerifyCode(record.Secret, code, e.clock())
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}
	return matched, nil
}

// CompleteTwoFactorSetup flips pending material to enabled and mirrors the
// enabled flag plus the backup-code count into the remote profile. It
// requires material from [Engine.BeginTwoFactorSetup] to be present.
func (e *Engine) CompleteTwoFactorSetup(ctx context.Context, userID string) error {
	if e == nil || e.twoFactor == nil {
		return ErrEngineNotReady
	}

	record, ok, err := e.twoFactor.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}
	if !ok || len(record.Secret) == 0 || len(record.BackupCodeHashes) == 0 {
		return ErrTwoFactorSetupPending
	}
	if record.Enabled {
		return ErrTwoFactorAlreadyEnabled
	}

	confirmed := e.clock().UTC()
	record.Enabled = true
	record.ConfirmedAt = &confirmed
	if err := e.twoFactor.Put(ctx, userID, record); err != nil {
		return fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}

	e.mirrorTwoFactor(ctx, userID, true, len(record.BackupCodeHashes))
	e.metricInc(MetricTwoFactorEnabled)
	e.emitAudit(ctx, auditEventTwoFactorEnabled, true, userID, "", nil, nil)
	return nil
}

// VerifyTwoFactorCode validates a login-time code. TOTP is tried first; on a
// miss the code is checked against the stored backup-code digests, and a
// matching backup code is consumed — a second use of the same code fails.
// The result reports which path succeeded and how many backup codes remain.
//
// This method FAILS CLOSED: storage errors surface as
// [ErrTwoFactorUnavailable] rather than letting a login through.
func (e *Engine) VerifyTwoFactorCode(ctx context.Context, userID, code string) (*TwoFactorVerification, error) {
	if e == nil || e.twoFactor == nil {
		return nil, ErrEngineNotReady
	}

	record, ok, err := e.twoFactor.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}
	if !ok || !record.Enabled {
		return nil, ErrTwoFactorNotConfigured
	}

	matched, err := e.totp.VerifyCode(record.Secret, code, e.clock())
	if err != nil {
		e.metricInc(MetricTwoFactorFailure)
		return nil, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}
	if matched {
		e.metricInc(MetricTwoFactorSuccess)
		e.emitAudit(ctx, auditEventTwoFactorVerified, true, userID, "", nil, map[string]string{
			"method": string(MethodTOTP),
		})
		return &TwoFactorVerification{
			Method:               MethodTOTP,
			RemainingBackupCodes: len(record.BackupCodeHashes),
		}, nil
	}

	remaining, consumed := consumeBackupCode(record.BackupCodeHashes, userID, code)
	if !consumed {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailed, false, userID, "", ErrTwoFactorCodeInvalid, nil)
		return nil, ErrTwoFactorCodeInvalid
	}

	record.BackupCodeHashes = remaining
	if err := e.twoFactor.Put(ctx, userID, record); err != nil {
		// If the consumption cannot be persisted the code stays valid, so the
		// verification must not succeed.
		e.metricInc(MetricTwoFactorFailure)
		return nil, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}

	e.mirrorBackupCodeCount(ctx, userID, len(remaining))
	e.metricInc(MetricBackupCodeUsed)
	e.emitAudit(ctx, auditEventBackupCodeUsed, true, userID, "", nil, map[string]string{
		"method":    string(MethodBackupCode),
		"remaining": strconv.Itoa(len(remaining)),
	})

	return &TwoFactorVerification{
		Method:               MethodBackupCode,
		RemainingBackupCodes: len(remaining),
	}, nil
}

// RegenerateBackupCodes replaces the user's backup codes with a fresh set and
// mirrors the new count. Previously issued codes stop working immediately.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	if e == nil || e.twoFactor == nil {
		return nil, ErrEngineNotReady
	}

	record, ok, err := e.twoFactor.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}
	if !ok || !record.Enabled {
		return nil, ErrTwoFactorNotConfigured
	}

	codes, hashes, err := e.newBackupCodeSet(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}

	record.BackupCodeHashes = hashes
	if err := e.twoFactor.Put(ctx, userID, record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}

	e.mirrorBackupCodeCount(ctx, userID, len(hashes))
	e.metricInc(MetricBackupCodeRegenerated)
	e.emitAudit(ctx, auditEventBackupCodesReplaced, true, userID, "", nil, map[string]string{
		"count": strconv.Itoa(len(codes)),
	})
	return codes, nil
}

// DisableTwoFactor erases the user's secret and backup codes and mirrors the
// disabled state. Pending setups are discarded the same way.
func (e *Engine) DisableTwoFactor(ctx context.Context, userID string) error {
	if e == nil || e.twoFactor == nil {
		return ErrEngineNotReady
	}

	if err := e.twoFactor.Delete(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}

	e.mirrorTwoFactor(ctx, userID, false, 0)
	e.metricInc(MetricTwoFactorDisabled)
	e.emitAudit(ctx, auditEventTwoFactorDisabled, true, userID, "", nil, nil)
	return nil
}

// TwoFactorStatus reports the user's current state: disabled, setup-pending,
// or enabled with the remaining backup-code count.
func (e *Engine) TwoFactorStatus(ctx context.Context, userID string) (TwoFactorInfo, error) {
	if e == nil || e.twoFactor == nil {
		return TwoFactorInfo{}, ErrEngineNotReady
	}

	record, ok, err := e.twoFactor.Get(ctx, userID)
	if err != nil {
		return TwoFactorInfo{}, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}
	if !ok {
		return TwoFactorInfo{}, nil
	}

	return TwoFactorInfo{
		Enabled:              record.Enabled,
		SetupPending:         !record.Enabled,
		RemainingBackupCodes: len(record.BackupCodeHashes),
	}, nil
}

func (e *Engine) newBackupCodeSet(userID string) (codes []string, hashes []string, err error) {
	count := e.config.BackupCodes.Count
	length := e.config.BackupCodes.Length

	codes = make([]string, 0, count)
	hashes = make([]string, 0, count)
	seen := make(map[string]struct{}, count)
	for len(codes) < count {
		raw, err := newBackupCode(length)
		if err != nil {
			return nil, nil, err
		}
		// Collisions are ~2^-40 at the default length; regenerate rather than
		// ever issuing a duplicate.
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		codes = append(codes, formatBackupCode(raw))
		hashes = append(hashes, backupCodeHash(userID, raw))
	}
	return codes, hashes, nil
}

// consumeBackupCode returns the digest list without the matched code. The
// second result is false when nothing matched.
func consumeBackupCode(hashes []string, userID, code string) ([]string, bool) {
	canonical := canonicalizeBackupCode(code)
	if canonical == "" {
		return hashes, false
	}
	want := backupCodeHash(userID, canonical)
	for i, h := range hashes {
		if h == want {
			remaining := make([]string, 0, len(hashes)-1)
			remaining = append(remaining, hashes[:i]...)
			remaining = append(remaining, hashes[i+1:]...)
			return remaining, true
		}
	}
	return hashes, false
}

// mirrorTwoFactor reflects display state into the remote profile. Mirror
// writes are best-effort metadata; failures are logged, never blocking the
// local state change that already happened.
func (e *Engine) mirrorTwoFactor(ctx context.Context, userID string, enabled bool, count int) {
	if e.profiles == nil {
		return
	}
	if err := e.profiles.SetTwoFactorEnabled(ctx, userID, enabled); err != nil {
		log.Printf("crewgate: profile mirror update failed for %s: %v", userID, err)
	}
	e.mirrorBackupCodeCount(ctx, userID, count)
}

func (e *Engine) mirrorBackupCodeCount(ctx context.Context, userID string, count int) {
	if e.profiles == nil {
		return
	}
	if err := e.profiles.SetBackupCodeCount(ctx, userID, count); err != nil {
		log.Printf("crewgate: backup code count mirror failed for %s: %v", userID, err)
	}
}

func accountLabel(account, userID string) string {
	if account != "" {
		return account
	}
	return userID
}
