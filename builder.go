package crewgate

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crewgate/crewgate/internal/stores"
	"github.com/crewgate/crewgate/profile"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens before the first Engine method call.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	profiles profile.Store
	location LocationProvider
	sink     AuditSink
	clock    func() time.Time

	built bool
}

// New returns a Builder seeded with defaults: SHA-1 TOTP at 30s/±1 skew,
// 10 backup codes, a 500m geofence, audit and metrics off.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the state backend. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithProfileStore sets the remote profile mirror. Optional; nil disables
// mirroring.
func (b *Builder) WithProfileStore(store profile.Store) *Builder {
	b.profiles = store
	return b
}

// WithLocationProvider sets the device location source used by the geofence
// check. Optional; without it every check-in must pass SkipLocationCheck.
func (b *Builder) WithLocationProvider(p LocationProvider) *Builder {
	b.location = p
	return b
}

// WithAuditSink sets the audit destination and enables audit dispatch with
// the configured buffer settings.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithMetricsEnabled toggles the counter registry.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithClock overrides the time source. Test hook; production builds use
// time.Now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and assembles the engine. A Builder may
// build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		rateLimits: stores.NewRateLimits(b.redis),
		twoFactor:  stores.NewTwoFactor(b.redis),
		shifts:     stores.NewShifts(b.redis),
		profiles:   b.profiles,
		location:   b.location,
		totp:       newTOTPManager(cfg.TOTP),
		audit:      newAuditDispatcher(cfg.Audit, b.sink),
		metrics:    NewMetrics(cfg.Metrics),
		now:        b.clock,
	}

	if cfg.DeviceToken.Enabled {
		manager, err := newDeviceTokenManager(cfg.DeviceToken)
		if err != nil {
			return nil, err
		}
		engine.deviceTokens = manager
	}

	b.built = true
	return engine, nil
}
