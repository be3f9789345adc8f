package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/presenced/internal/config"
	"github.com/dokzlo13/presenced/internal/db"
	"github.com/dokzlo13/presenced/internal/eventbus"
	"github.com/dokzlo13/presenced/internal/ledger"
	"github.com/dokzlo13/presenced/internal/light"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Bus    *eventbus.Bus

	// High-level services
	Device   *DeviceService
	Presence *PresenceService
	Health   *HealthService
	Webhook  *WebhookService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Command ledger is optional; without it commands are only logged.
	var recorder light.Recorder
	if cfg.Ledger.Enabled {
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		s.DB = database
		s.Ledger = ledger.New(database.DB)
		recorder = s.Ledger
	}

	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	s.Device = NewDeviceService(cfg, recorder)

	presenceService, err := NewPresenceService(cfg, s.Device, s.Bus)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Presence = presenceService

	s.Health = NewHealthService(cfg)
	s.Webhook = NewWebhookService(cfg, s.Bus, s.Device)

	return s, nil
}

// Start starts all services in the correct order.
func (s *Services) Start(ctx context.Context) error {
	// The presence source is the one hard dependency: without it the
	// monitoring session cannot exist. On failure the lights are forced
	// off so the last commanded state does not linger on the board.
	if err := s.Presence.Start(ctx, s.Bus); err != nil {
		s.Device.ForceOff(ctx)
		return err
	}

	s.Health.Start(ctx)
	s.Webhook.Start(ctx)

	if s.cfg.Ledger.Enabled {
		go s.runLedgerCleanup(ctx)
	}

	return nil
}

// runLedgerCleanup periodically removes old command ledger entries.
func (s *Services) runLedgerCleanup(ctx context.Context) {
	retention := s.cfg.Ledger.RetentionPeriod.Duration()
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.Ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
			}
		}
	}
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Presence != nil {
		s.Presence.Close()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		s.Bus.Close(ctx)
	}
	if s.Device != nil {
		s.Device.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
