package crewgate

import (
	"errors"
	"strings"
	"time"
)

// Config carries every tunable for the engine. Zero values are filled from
// defaultConfig by [New]; pass a fully-populated Config through
// [Builder.WithConfig] to override.
//
// Config instances are treated as immutable after [Builder.Build].
type Config struct {
	TOTP        TOTPConfig
	BackupCodes BackupCodeConfig
	CheckIn     CheckInConfig
	DeviceToken DeviceTokenConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig controls RFC 6238 code generation and verification.
type TOTPConfig struct {
	// Issuer appears in the otpauth:// provisioning URI label.
	Issuer string
	// Digits per code; authenticator apps expect 6.
	Digits int
	// Period is the time-step in seconds (the URI encodes it as `period`).
	Period int
	// Algorithm is "SHA1" (default, widest app support), "SHA256" or "SHA512".
	Algorithm string
	// Skew is the number of adjacent periods accepted on either side of now.
	// 1 tolerates ±30s of clock drift at the default period.
	Skew int
}

/*
====================================
BACKUP CODE CONFIG
====================================
*/

// BackupCodeConfig controls single-use fallback codes.
type BackupCodeConfig struct {
	// Count of codes issued per generation.
	Count int
	// Length in alphabet characters before formatting. 8 renders as XXXX-XXXX.
	Length int
}

/*
====================================
CHECK-IN CONFIG
====================================
*/

// CheckInConfig controls the geofenced shift check-in service.
type CheckInConfig struct {
	// GeofenceRadiusMeters is the maximum haversine distance between the
	// device and the venue at check-in time.
	GeofenceRadiusMeters float64
	// ShiftRetention bounds how long a closed shift record stays readable.
	// Zero keeps records until explicitly cleared.
	ShiftRetention time.Duration
}

/*
====================================
DEVICE TOKEN CONFIG
====================================
*/

// DeviceTokenConfig controls trusted-device tokens issued after a successful
// two-factor verification.
type DeviceTokenConfig struct {
	Enabled bool
	// SigningKey is the HS256 secret. Required when Enabled.
	SigningKey []byte
	// TTL bounds how long a device may skip two-factor prompts.
	TTL    time.Duration
	Issuer string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking callers; drops are counted.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counter registry.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig is supplied per call site; there are no engine-wide
// defaults beyond the two named presets.
type RateLimitConfig struct {
	// MaxAttempts within Window before the key locks.
	MaxAttempts int
	// Lockout is how long the key stays locked once tripped.
	Lockout time.Duration
	// Window is how far back failed attempts are counted.
	Window time.Duration
}

// AuthRateLimit is the preset for login attempts: 5 failures inside 5 minutes
// lock the identifier for 15 minutes.
func AuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts: 5,
		Lockout:     15 * time.Minute,
		Window:      5 * time.Minute,
	}
}

// PasswordResetRateLimit is the preset for reset requests: 3 requests inside
// 15 minutes lock the identifier for 30 minutes.
func PasswordResetRateLimit() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts: 3,
		Lockout:     30 * time.Minute,
		Window:      15 * time.Minute,
	}
}

func (c RateLimitConfig) validate() error {
	if c.MaxAttempts <= 0 {
		return errors.New("rate limit MaxAttempts must be > 0")
	}
	if c.Lockout <= 0 {
		return errors.New("rate limit Lockout must be > 0")
	}
	if c.Window <= 0 {
		return errors.New("rate limit Window must be > 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		TOTP: TOTPConfig{
			Issuer:    "crewgate",
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
			Skew:      1,
		},
		BackupCodes: BackupCodeConfig{
			Count:  10,
			Length: 8,
		},
		CheckIn: CheckInConfig{
			GeofenceRadiusMeters: 500,
			ShiftRetention:       0,
		},
		DeviceToken: DeviceTokenConfig{
			Enabled: false,
			TTL:     30 * 24 * time.Hour,
			Issuer:  "crewgate",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if len(cfg.DeviceToken.SigningKey) > 0 {
		out.DeviceToken.SigningKey = append([]byte(nil), cfg.DeviceToken.SigningKey...)
	}
	return out
}

// Validate checks internal consistency. Build calls it; it is exported so
// integrators can check configs loaded from their own sources.
func (c *Config) Validate() error {
	// TOTP
	if c.TOTP.Issuer == "" {
		return errors.New("TOTP Issuer must be set")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 10 {
		return errors.New("TOTP Digits must be within [6,10]")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("TOTP Period must be > 0")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 4 {
		return errors.New("TOTP Skew must be within [0,4]")
	}
	switch strings.ToUpper(c.TOTP.Algorithm) {
	case "", "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("unsupported TOTP algorithm")
	}

	// Backup codes
	if c.BackupCodes.Count <= 0 {
		return errors.New("BackupCodes Count must be > 0")
	}
	if c.BackupCodes.Length < 8 {
		return errors.New("BackupCodes Length must be >= 8")
	}

	// Check-in
	if c.CheckIn.GeofenceRadiusMeters <= 0 {
		return errors.New("CheckIn GeofenceRadiusMeters must be > 0")
	}
	if c.CheckIn.ShiftRetention < 0 {
		return errors.New("CheckIn ShiftRetention must be >= 0")
	}

	// Device tokens
	if c.DeviceToken.Enabled {
		if len(c.DeviceToken.SigningKey) < 32 {
			return errors.New("DeviceToken SigningKey must be >= 32 bytes")
		}
		if c.DeviceToken.TTL <= 0 {
			return errors.New("DeviceToken TTL must be > 0")
		}
		if c.DeviceToken.Issuer == "" {
			return errors.New("DeviceToken Issuer must be set")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
