// Package veridian wires the authentication orchestration core together
// with its default collaborators: a synchronous in-process event bus, the
// strategy selected by configuration, and an optional audit trail.
package veridian

import (
	"gorm.io/gorm"

	"github.com/getveridian/veridian/audit"
	"github.com/getveridian/veridian/authc"
	"github.com/getveridian/veridian/config"
	"github.com/getveridian/veridian/event"
	"github.com/getveridian/veridian/internal/logger"
	"github.com/getveridian/veridian/telemetry"
)

// NewDefaultAuthenticator builds an Authenticator from configuration,
// backed by a SyncBus, with the cache-clear reaction already subscribed to
// the session lifecycle topics. The bus is returned so callers can publish
// session events and subscribe their own handlers.
//
// When telemetry is enabled in the configuration, a telemetry.Provider is
// built and registered globally; it lives for the rest of the process.
func NewDefaultAuthenticator(cfg *config.Config, realms ...authc.Realm) (*authc.Authenticator, *event.SyncBus, error) {
	logger.InitLogger(cfg.LogLevel)

	var strategy authc.Strategy
	switch cfg.Strategy {
	case config.StrategyAllSuccessful:
		strategy = &authc.AllSuccessfulStrategy{}
	default:
		strategy = &authc.FirstSuccessfulStrategy{}
	}

	var provider *telemetry.Provider
	if cfg.TelemetryEnabled {
		tcfg := telemetry.DefaultConfig()
		tcfg.OTLPEndpoint = cfg.OTLPEndpoint
		p, err := telemetry.NewProvider(tcfg)
		if err != nil {
			return nil, nil, err
		}
		provider = p
	}

	bus := event.NewSyncBus()
	authenticator, err := authc.NewAuthenticator(authc.Config{
		Realms:        realms,
		Strategy:      strategy,
		Notifier:      bus,
		LockThreshold: cfg.AccountLockThreshold,
		StrictLocking: cfg.StrictLocking,
		Telemetry:     provider,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := authenticator.RegisterCacheClearListener(); err != nil {
		return nil, nil, err
	}

	return authenticator, bus, nil
}

// NewAuditTrail builds a GORM-backed audit recorder and subscribes it to
// the authentication topics on the bus.
func NewAuditTrail(db *gorm.DB, bus event.Bus) (*audit.Recorder, error) {
	store := audit.NewGormStore(db)
	if err := store.AutoMigrate(); err != nil {
		return nil, err
	}
	recorder := audit.NewRecorder(store)
	recorder.Register(bus)
	return recorder, nil
}
