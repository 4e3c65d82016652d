package crewgate

import "errors"

var (
	// ErrEngineNotReady is returned when a method is called on a nil or
	// un-built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrRateLimitUnavailable indicates the rate-limit backend rejected a write.
	// Reads never return it; see the fail-open note on [Engine.IsRateLimited].
	ErrRateLimitUnavailable = errors.New("rate limit backend unavailable")
	// ErrRateLimited is returned by RecordFailedAttempt once a key is locked.
	ErrRateLimited = errors.New("rate limited")

	// ErrTwoFactorNotConfigured is returned when no setup material exists for
	// the user.
	ErrTwoFactorNotConfigured = errors.New("two-factor not configured")
	// ErrTwoFactorAlreadyEnabled rejects a second setup while 2FA is active.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
	// ErrTwoFactorSetupPending is returned when completion is attempted before
	// any setup material was generated.
	ErrTwoFactorSetupPending = errors.New("two-factor setup not confirmed")
	// ErrTwoFactorCodeInvalid is returned when neither the TOTP window nor a
	// backup code matched.
	ErrTwoFactorCodeInvalid = errors.New("invalid two-factor code")
	// ErrTwoFactorUnavailable indicates two-factor storage failed; verification
	// fails closed. Profile-mirror failures are logged, not wrapped here.
	ErrTwoFactorUnavailable = errors.New("two-factor backend unavailable")

	// ErrAlreadyCheckedIn rejects a check-in while a shift is open.
	ErrAlreadyCheckedIn = errors.New("already checked in to this event")
	// ErrNotCheckedIn rejects check-out and break operations without an open
	// shift.
	ErrNotCheckedIn = errors.New("not checked in to this event")
	// ErrBreakAlreadyActive rejects a second concurrent break.
	ErrBreakAlreadyActive = errors.New("already on break")
	// ErrNoActiveBreak rejects ending a break when none is open.
	ErrNoActiveBreak = errors.New("no active break")
	// ErrOutsideGeofence is wrapped by [GeofenceError] when the device is too
	// far from the venue.
	ErrOutsideGeofence = errors.New("outside check-in geofence")
	// ErrLocationUnavailable covers permission denial and location-fetch
	// failure from the injected provider.
	ErrLocationUnavailable = errors.New("device location unavailable")
	// ErrCheckInUnavailable indicates the shift store failed; check-in fails
	// closed.
	ErrCheckInUnavailable = errors.New("check-in backend unavailable")

	// ErrDeviceTokenInvalid is returned for malformed, expired, or
	// wrongly-signed trusted-device tokens.
	ErrDeviceTokenInvalid = errors.New("invalid trusted device token")
	// ErrDeviceTokenDisabled is returned when the trusted-device feature is
	// not configured.
	ErrDeviceTokenDisabled = errors.New("trusted device tokens disabled")
)
