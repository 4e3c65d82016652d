package crewgate

import (
	"context"
	"encoding/base32"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingProfileStore captures mirror writes for assertions.
type recordingProfileStore struct {
	mu      sync.Mutex
	enabled map[string]bool
	counts  map[string]int
}

func newRecordingProfileStore() *recordingProfileStore {
	return &recordingProfileStore{
		enabled: make(map[string]bool),
		counts:  make(map[string]int),
	}
}

func (s *recordingProfileStore) SetTwoFactorEnabled(_ context.Context, userID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled[userID] = enabled
	return nil
}

func (s *recordingProfileStore) SetBackupCodeCount(_ context.Context, userID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[userID] = count
	return nil
}

func (s *recordingProfileStore) snapshot(userID string) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled[userID], s.counts[userID]
}

var backupCodePattern = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)

func TestTwoFactorSetupFlow(t *testing.T) {
	profiles := newRecordingProfileStore()
	engine, _, clock := buildTestEngine(t, func(b *Builder) {
		b.WithProfileStore(profiles)
	})
	ctx := context.Background()

	setup, err := engine.BeginTwoFactorSetup(ctx, "user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("BeginTwoFactorSetup failed: %v", err)
	}

	if len(setup.Secret) != 32 {
		t.Fatalf("secret length = %d, want 32 base32 chars", len(setup.Secret))
	}
	if _, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(setup.Secret); err != nil {
		t.Fatalf("secret is not valid base32: %v", err)
	}
	if !strings.HasPrefix(setup.ProvisioningURI, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning URI: %s", setup.ProvisioningURI)
	}
	if !strings.Contains(setup.ProvisioningURI, "secret="+setup.Secret) {
		t.Fatalf("provisioning URI missing secret: %s", setup.ProvisioningURI)
	}

	if len(setup.BackupCodes) != 10 {
		t.Fatalf("got %d backup codes, want 10", len(setup.BackupCodes))
	}
	seen := make(map[string]struct{})
	for _, code := range setup.BackupCodes {
		if !backupCodePattern.MatchString(code) {
			t.Fatalf("backup code %q does not match XXXX-XXXX", code)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate backup code %q", code)
		}
		seen[code] = struct{}{}
	}

	// Nothing is enabled yet; login-time verification must refuse.
	if _, err := engine.VerifyTwoFactorCode(ctx, "user-1", "123456"); !errors.Is(err, ErrTwoFactorNotConfigured) {
		t.Fatalf("VerifyTwoFactorCode before enable: err = %v, want ErrTwoFactorNotConfigured", err)
	}

	info, err := engine.TwoFactorStatus(ctx, "user-1")
	if err != nil {
		t.Fatalf("TwoFactorStatus failed: %v", err)
	}
	if info.Enabled || !info.SetupPending {
		t.Fatalf("status = %+v, want pending", info)
	}

	secret := storedSecret(t, engine, "user-1")
	code := totpCodeAt(t, engine, secret, clock.Now())

	ok, err := engine.VerifySetupCode(ctx, "user-1", code)
	if err != nil {
		t.Fatalf("VerifySetupCode failed: %v", err)
	}
	if !ok {
		t.Fatal("VerifySetupCode rejected a correct code")
	}
	if ok, _ := engine.VerifySetupCode(ctx, "user-1", "000000"); ok {
		t.Fatal("VerifySetupCode accepted a wrong code")
	}

	if err := engine.CompleteTwoFactorSetup(ctx, "user-1"); err != nil {
		t.Fatalf("CompleteTwoFactorSetup failed: %v", err)
	}

	info, err = engine.TwoFactorStatus(ctx, "user-1")
	if err != nil {
		t.Fatalf("TwoFactorStatus failed: %v", err)
	}
	if !info.Enabled || info.SetupPending || info.RemainingBackupCodes != 10 {
		t.Fatalf("status after enable = %+v", info)
	}

	enabled, count := profiles.snapshot("user-1")
	if !enabled || count != 10 {
		t.Fatalf("profile mirror = (%v, %d), want (true, 10)", enabled, count)
	}

	// A second setup attempt must refuse while enabled.
	if _, err := engine.BeginTwoFactorSetup(ctx, "user-1", "alice@example.com"); !errors.Is(err, ErrTwoFactorAlreadyEnabled) {
		t.Fatalf("second setup err = %v, want ErrTwoFactorAlreadyEnabled", err)
	}
}

func TestCompleteTwoFactorSetupRequiresPendingMaterial(t *testing.T) {
	engine, _, _ := buildTestEngine(t, nil)

	if err := engine.CompleteTwoFactorSetup(context.Background(), "nobody"); !errors.Is(err, ErrTwoFactorSetupPending) {
		t.Fatalf("err = %v, want ErrTwoFactorSetupPending", err)
	}
}

func TestVerifyTwoFactorTOTP(t *testing.T) {
	engine, _, clock := buildTestEngine(t, nil)
	ctx := context.Background()

	enableTwoFactor(t, engine, "user-1")
	secret := storedSecret(t, engine, "user-1")

	verification, err := engine.VerifyTwoFactorCode(ctx, "user-1", totpCodeAt(t, engine, secret, clock.Now()))
	if err != nil {
		t.Fatalf("VerifyTwoFactorCode failed: %v", err)
	}
	if verification.Method != MethodTOTP {
		t.Fatalf("method = %q, want %q", verification.Method, MethodTOTP)
	}
	if verification.RemainingBackupCodes != 10 {
		t.Fatalf("RemainingBackupCodes = %d, want 10 (untouched)", verification.RemainingBackupCodes)
	}

	if _, err := engine.VerifyTwoFactorCode(ctx, "user-1", "000000"); !errors.Is(err, ErrTwoFactorCodeInvalid) {
		t.Fatalf("wrong code err = %v, want ErrTwoFactorCodeInvalid", err)
	}
}

func TestVerifyTwoFactorSkewTolerance(t *testing.T) {
	engine, _, clock := buildTestEngine(t, nil)
	ctx := context.Background()

	enableTwoFactor(t, engine, "user-1")
	secret := storedSecret(t, engine, "user-1")
	period := time.Duration(engine.config.TOTP.Period) * time.Second

	// Code from the previous period still verifies with skew 1.
	previous := totpCodeAt(t, engine, secret, clock.Now().Add(-period))
	if _, err := engine.VerifyTwoFactorCode(ctx, "user-1", previous); err != nil {
		t.Fatalf("previous-period code rejected: %v", err)
	}

	// Two periods back falls outside the skew window.
	stale := totpCodeAt(t, engine, secret, clock.Now().Add(-2*period))
	for _, offset := range []time.Duration{-period, 0, period} {
		if stale == totpCodeAt(t, engine, secret, clock.Now().Add(offset)) {
			t.Skipf("stale code %q collided with an accepted window", stale)
		}
	}
	if _, err := engine.VerifyTwoFactorCode(ctx, "user-1", stale); !errors.Is(err, ErrTwoFactorCodeInvalid) {
		t.Fatalf("stale code err = %v, want ErrTwoFactorCodeInvalid", err)
	}
}

func TestBackupCodeSingleUse(t *testing.T) {
	profiles := newRecordingProfileStore()
	engine, _, _ := buildTestEngine(t, func(b *Builder) {
		b.WithProfileStore(profiles)
	})
	ctx := context.Background()

	setup := enableTwoFactor(t, engine, "user-1")
	code := setup.BackupCodes[3]

	verification, err := engine.VerifyTwoFactorCode(ctx, "user-1", code)
	if err != nil {
		t.Fatalf("backup code rejected: %v", err)
	}
	if verification.Method != MethodBackupCode {
		t.Fatalf("method = %q, want %q", verification.Method, MethodBackupCode)
	}
	if verification.RemainingBackupCodes != 9 {
		t.Fatalf("RemainingBackupCodes = %d, want 9", verification.RemainingBackupCodes)
	}

	// Same code again must fail: it was consumed.
	if _, err := engine.VerifyTwoFactorCode(ctx, "user-1", code); !errors.Is(err, ErrTwoFactorCodeInvalid) {
		t.Fatalf("reused code err = %v, want ErrTwoFactorCodeInvalid", err)
	}

	if _, count := profiles.snapshot("user-1"); count != 9 {
		t.Fatalf("mirrored count = %d, want 9", count)
	}
}

func TestBackupCodeNormalization(t *testing.T) {
	engine, _, _ := buildTestEngine(t, nil)
	ctx := context.Background()

	setup := enableTwoFactor(t, engine, "user-1")
	code := setup.BackupCodes[0]

	// Lowercase without the dash still matches the stored digest.
	loose := strings.ToLower(strings.ReplaceAll(code, "-", ""))
	if _, err := engine.VerifyTwoFactorCode(ctx, "user-1", loose); err != nil {
		t.Fatalf("normalized code rejected: %v", err)
	}
}

func TestBackupCodesAreUserScoped(t *testing.T) {
	engine, _, _ := buildTestEngine(t, nil)
	ctx := context.Background()

	setupA := enableTwoFactor(t, engine, "user-a")
	enableTwoFactor(t, engine, "user-b")

	// user-a's plaintext code must not verify for user-b even if the raw code
	// were identical: digests are salted with the user ID.
	if _, err := engine.VerifyTwoFactorCode(ctx, "user-b", setupA.BackupCodes[0]); !errors.Is(err, ErrTwoFactorCodeInvalid) {
		t.Fatalf("cross-user code err = %v, want ErrTwoFactorCodeInvalid", err)
	}
}

func TestRegenerateBackupCodes(t *testing.T) {
	profiles := newRecordingProfileStore()
	engine, _, _ := buildTestEngine(t, func(b *Builder) {
		b.WithProfileStore(profiles)
	})
	ctx := context.Background()

	setup := enableTwoFactor(t, engine, "user-1")
	old := setup.BackupCodes[0]

	fresh, err := engine.RegenerateBackupCodes(ctx, "user-1")
	if err != nil {
		t.Fatalf("RegenerateBackupCodes failed: %v", err)
	}
	if len(fresh) != 10 {
		t.Fatalf("got %d fresh codes, want 10", len(fresh))
	}

	if _, err := engine.VerifyTwoFactorCode(ctx, "user-1", old); !errors.Is(err, ErrTwoFactorCodeInvalid) {
		t.Fatalf("old code err = %v, want ErrTwoFactorCodeInvalid after regeneration", err)
	}
	if _, err := engine.VerifyTwoFactorCode(ctx, "user-1", fresh[0]); err != nil {
		t.Fatalf("fresh code rejected: %v", err)
	}

	if _, err := engine.RegenerateBackupCodes(ctx, "stranger"); !errors.Is(err, ErrTwoFactorNotConfigured) {
		t.Fatalf("regenerate for unknown user err = %v, want ErrTwoFactorNotConfigured", err)
	}
}

func TestDisableTwoFactor(t *testing.T) {
	profiles := newRecordingProfileStore()
	engine, _, clock := buildTestEngine(t, func(b *Builder) {
		b.WithProfileStore(profiles)
	})
	ctx := context.Background()

	enableTwoFactor(t, engine, "user-1")
	secret := storedSecret(t, engine, "user-1")

	if err := engine.DisableTwoFactor(ctx, "user-1"); err != nil {
		t.Fatalf("DisableTwoFactor failed: %v", err)
	}

	info, err := engine.TwoFactorStatus(ctx, "user-1")
	if err != nil {
		t.Fatalf("TwoFactorStatus failed: %v", err)
	}
	if info.Enabled || info.SetupPending || info.RemainingBackupCodes != 0 {
		t.Fatalf("status after disable = %+v, want zero value", info)
	}

	code := totpCodeAt(t, engine, secret, clock.Now())
	if _, err := engine.VerifyTwoFactorCode(ctx, "user-1", code); !errors.Is(err, ErrTwoFactorNotConfigured) {
		t.Fatalf("verify after disable err = %v, want ErrTwoFactorNotConfigured", err)
	}

	enabled, count := profiles.snapshot("user-1")
	if enabled || count != 0 {
		t.Fatalf("profile mirror = (%v, %d), want (false, 0)", enabled, count)
	}
}

func TestVerifyTwoFactorFailsClosedOnBackend(t *testing.T) {
	engine, mr, clock := buildTestEngine(t, nil)
	ctx := context.Background()

	enableTwoFactor(t, engine, "user-1")
	secret := storedSecret(t, engine, "user-1")
	code := totpCodeAt(t, engine, secret, clock.Now())

	mr.Close()

	if _, err := engine.VerifyTwoFactorCode(ctx, "user-1", code); !errors.Is(err, ErrTwoFactorUnavailable) {
		t.Fatalf("err = %v, want ErrTwoFactorUnavailable", err)
	}
}

// enableTwoFactor runs the full setup flow for the user and returns the setup
// material.
func enableTwoFactor(t *testing.T, engine *Engine, userID string) *TwoFactorSetup {
	t.Helper()
	ctx := context.Background()

	setup, err := engine.BeginTwoFactorSetup(ctx, userID, userID+"@example.com")
	if err != nil {
		t.Fatalf("BeginTwoFactorSetup failed: %v", err)
	}
	if err := engine.CompleteTwoFactorSetup(ctx, userID); err != nil {
		t.Fatalf("CompleteTwoFactorSetup failed: %v", err)
	}
	return setup
}
