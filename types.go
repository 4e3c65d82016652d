package crewgate

import (
	"context"
	"time"
)

// RateLimitStatus is the read-side view of one rate-limit key.
type RateLimitStatus struct {
	// Limited is true only while a stored lock deadline lies in the future.
	// Attempt counts alone never set it; locks engage on the write path.
	Limited bool
	// RemainingTime until the lock clears; zero when not limited.
	RemainingTime time.Duration
	// Attempts still inside the window after pruning.
	Attempts int
}

// FailedAttemptResult reports the outcome of recording one failure.
type FailedAttemptResult struct {
	// Locked is true when this failure tripped the lockout.
	Locked bool
	// RemainingAttempts before the key locks; zero when Locked.
	RemainingAttempts int
	// RemainingTime until the lock clears; zero unless Locked.
	RemainingTime time.Duration
}

// TwoFactorSetup is handed to the user exactly once, at setup start. The
// secret and plaintext backup codes are never readable again.
type TwoFactorSetup struct {
	// Secret is the base32-encoded shared secret (32 characters, no padding).
	Secret string
	// BackupCodes are the formatted single-use codes (XXXX-XXXX).
	BackupCodes []string
	// ProvisioningURI is the otpauth:// URI consumed by authenticator apps.
	ProvisioningURI string
}

// TwoFactorMethod identifies which credential satisfied a verification.
type TwoFactorMethod string

const (
	// MethodTOTP means the time-based code matched.
	MethodTOTP TwoFactorMethod = "totp"
	// MethodBackupCode means a single-use backup code was consumed.
	MethodBackupCode TwoFactorMethod = "backup_code"
)

// TwoFactorVerification reports a successful verification.
type TwoFactorVerification struct {
	Method TwoFactorMethod
	// RemainingBackupCodes after this verification (unchanged for MethodTOTP).
	RemainingBackupCodes int
}

// TwoFactorInfo is the read-side view of a user's two-factor state.
type TwoFactorInfo struct {
	Enabled bool
	// SetupPending is true between BeginTwoFactorSetup and
	// CompleteTwoFactorSetup.
	SetupPending         bool
	RemainingBackupCodes int
}

// Location is a WGS84 coordinate pair with optional reported accuracy.
type Location struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
}

// BreakInterval is one break inside a shift. End is nil while the break is
// open; at most one interval per shift may be open at a time.
type BreakInterval struct {
	Start time.Time
	End   *time.Time
}

// ShiftStatus is the full state of one user's shift at one event.
type ShiftStatus struct {
	ShiftID      string
	UserID       string
	EventID      string
	CheckedIn    bool
	CheckInTime  time.Time
	CheckOutTime *time.Time
	// Location captured at check-in, when the geofence check ran.
	Location *Location
	Breaks   []BreakInterval
	// TotalWorkingMinutes is derived at check-out: elapsed time minus closed
	// breaks, floored at zero, rounded to the nearest minute.
	TotalWorkingMinutes int
}

// OnBreak reports whether the shift currently has an open break.
func (s *ShiftStatus) OnBreak() bool {
	if s == nil || len(s.Breaks) == 0 {
		return false
	}
	return s.Breaks[len(s.Breaks)-1].End == nil
}

// CheckInOptions tunes one check-in attempt.
type CheckInOptions struct {
	// SkipLocationCheck bypasses the geofence (supervisor override, venues
	// without reliable GPS). The captured location is then omitted.
	SkipLocationCheck bool
	// Location overrides the configured [LocationProvider] for this attempt.
	// Servers proxying client-reported coordinates set this per request.
	Location *Location
}

// LocationProvider supplies the device position at check-in time. Permission
// denial and fetch failure are both surfaced as errors; the engine maps them
// to [ErrLocationUnavailable].
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (Location, error)
}

// DeviceTokenClaims is the verified payload of a trusted-device token.
type DeviceTokenClaims struct {
	UserID    string
	DeviceID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
