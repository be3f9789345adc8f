package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/presenced/internal/config"
	"github.com/dokzlo13/presenced/internal/device"
	"github.com/dokzlo13/presenced/internal/light"
)

// DeviceService wraps everything that touches the GPIO board: the HTTP
// client, the light controller and the blink scheduler.
type DeviceService struct {
	cfg *config.Config

	Client     *device.Client
	Endpoints  device.Endpoints
	Controller *light.Controller
	Blinker    *light.Blinker
}

// NewDeviceService creates the device stack. recorder may be nil when the
// ledger is disabled.
func NewDeviceService(cfg *config.Config, recorder light.Recorder) *DeviceService {
	client := device.NewClient(
		cfg.Device.Username,
		cfg.Device.Password,
		cfg.Device.Timeout.Duration(),
		cfg.Device.RateLimitRPS,
	)

	endpoints := device.ResolveEndpoints(cfg.Device.Host, cfg.Device.Port, device.Pins{
		Available: cfg.Device.Pins.Available,
		Away:      cfg.Device.Pins.Away,
		Busy:      cfg.Device.Pins.Busy,
	})

	controller := light.NewController(client, endpoints.Map(), recorder)
	blinker := light.NewBlinker(controller, recorder)

	return &DeviceService{
		cfg:        cfg,
		Client:     client,
		Endpoints:  endpoints,
		Controller: controller,
		Blinker:    blinker,
	}
}

// Commanded exposes the controller's cached light state (webhook /status).
func (s *DeviceService) Commanded() light.Flag {
	return s.Controller.Commanded()
}

// BlinkActive reports whether a blink session is running (webhook /status).
func (s *DeviceService) BlinkActive() bool {
	return s.Blinker.Active()
}

// ForceOff turns every light off, best effort.
func (s *DeviceService) ForceOff(ctx context.Context) {
	s.Blinker.Stop()
	if err := s.Controller.Apply(ctx, light.FlagNone); err != nil {
		log.Warn().Err(err).Msg("Failed to force lights off")
	}
}

// SelfTest cycles each light on and off in order, verifying each write with
// a read-back, then flashes all three together. Any failure aborts.
func (s *DeviceService) SelfTest(ctx context.Context) error {
	log.Info().
		Str("host", s.cfg.Device.Host).
		Int("port", s.cfg.Device.Port).
		Msg("Running light self-test")

	for _, f := range light.Order() {
		if err := s.Controller.Apply(ctx, f); err != nil {
			return fmt.Errorf("self-test: %w", err)
		}
		if !s.Controller.IsOn(ctx, f) {
			return fmt.Errorf("self-test: %s light did not read back as on", f)
		}
		time.Sleep(300 * time.Millisecond)
	}

	if err := s.Controller.Apply(ctx, light.FlagAll); err != nil {
		return fmt.Errorf("self-test: %w", err)
	}
	time.Sleep(500 * time.Millisecond)
	if err := s.Controller.Apply(ctx, light.FlagNone); err != nil {
		return fmt.Errorf("self-test: %w", err)
	}

	log.Info().Msg("Light self-test passed")
	return nil
}

// Close releases device resources.
func (s *DeviceService) Close() {
	s.Blinker.Stop()
	s.Client.Close()
}
