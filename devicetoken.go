package crewgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// deviceTokenClaims is the wire payload: subject is the user, did the device.
type deviceTokenClaims struct {
	DeviceID string `json:"did"`
	jwt.RegisteredClaims
}

// deviceTokenManager signs and verifies trusted-device tokens with HS256.
type deviceTokenManager struct {
	config DeviceTokenConfig
}

func newDeviceTokenManager(cfg DeviceTokenConfig) (*deviceTokenManager, error) {
	if len(cfg.SigningKey) < 32 {
		return nil, errors.New("device token signing key must be >= 32 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("device token TTL must be > 0")
	}
	return &deviceTokenManager{config: cfg}, nil
}

func (m *deviceTokenManager) Issue(userID, deviceID string, now time.Time) (string, error) {
	claims := deviceTokenClaims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.SigningKey)
}

func (m *deviceTokenManager) Validate(token string, now time.Time) (DeviceTokenClaims, error) {
	var claims deviceTokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return m.config.SigningKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !parsed.Valid {
		return DeviceTokenClaims{}, fmt.Errorf("%w: %v", ErrDeviceTokenInvalid, err)
	}
	if claims.Subject == "" || claims.DeviceID == "" {
		return DeviceTokenClaims{}, ErrDeviceTokenInvalid
	}

	out := DeviceTokenClaims{
		UserID:   claims.Subject,
		DeviceID: claims.DeviceID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// IssueTrustedDeviceToken mints a signed, TTL-bound token binding userID to
// deviceID. Call it after [Engine.VerifyTwoFactorCode] succeeds so the device
// can skip two-factor prompts until the token expires.
func (e *Engine) IssueTrustedDeviceToken(ctx context.Context, userID, deviceID string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if e.deviceTokens == nil {
		return "", ErrDeviceTokenDisabled
	}
	if userID == "" || deviceID == "" {
		return "", ErrDeviceTokenInvalid
	}

	token, err := e.deviceTokens.Issue(userID, deviceID, e.clock())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDeviceTokenInvalid, err)
	}

	e.metricInc(MetricDeviceTokenIssued)
	e.emitAudit(ctx, auditEventDeviceTokenIssued, true, userID, "", nil, map[string]string{
		"device_id": deviceID,
	})
	return token, nil
}

// ValidateTrustedDeviceToken verifies signature, issuer, and expiry (with
// bounded leeway) and returns the bound identity. Failures are
// [ErrDeviceTokenInvalid]; no distinction is exposed between malformed,
// expired, and wrongly-signed tokens.
func (e *Engine) ValidateTrustedDeviceToken(token string) (DeviceTokenClaims, error) {
	if e == nil {
		return DeviceTokenClaims{}, ErrEngineNotReady
	}
	if e.deviceTokens == nil {
		return DeviceTokenClaims{}, ErrDeviceTokenDisabled
	}

	claims, err := e.deviceTokens.Validate(token, e.clock())
	if err != nil {
		e.metricInc(MetricDeviceTokenRejected)
		return DeviceTokenClaims{}, err
	}
	return claims, nil
}
