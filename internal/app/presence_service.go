package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/presenced/internal/config"
	"github.com/dokzlo13/presenced/internal/eventbus"
	"github.com/dokzlo13/presenced/internal/presence"
	"github.com/dokzlo13/presenced/internal/script"
)

// PresenceService wraps the presence state machine and its source adapters.
type PresenceService struct {
	cfg *config.Config

	Machine *presence.Machine
	Source  *presence.MQTTSource // nil when MQTT is disabled
	mapper  *script.Mapper       // nil when no script configured
}

// NewPresenceService creates the machine and, if configured, the mapping
// override script and the MQTT source.
func NewPresenceService(cfg *config.Config, devices *DeviceService, bus *eventbus.Bus) (*PresenceService, error) {
	var mapper *script.Mapper
	if cfg.Script != "" {
		m, err := script.Load(cfg.Script)
		if err != nil {
			return nil, err
		}
		mapper = m
	}

	var override presence.Mapper
	if mapper != nil {
		override = mapper
	}

	machine := presence.NewMachine(
		devices.Controller,
		devices.Blinker,
		override,
		cfg.Blink.Interval.Duration(),
	)

	var source *presence.MQTTSource
	if cfg.MQTT.Enabled {
		source = presence.NewMQTTSource(presence.MQTTOptions{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			StatusTopic:    cfg.MQTT.StatusTopic,
			PowerTopic:     cfg.MQTT.PowerTopic,
			ConnectTimeout: cfg.MQTT.ConnectTimeout.Duration(),
		}, bus)
	}

	return &PresenceService{
		cfg:     cfg,
		Machine: machine,
		Source:  source,
		mapper:  mapper,
	}, nil
}

// Start subscribes the machine to the bus and connects the MQTT source. An
// MQTT connect failure is fatal to the monitoring session; the caller
// forces the lights off and gives up.
func (s *PresenceService) Start(ctx context.Context, bus *eventbus.Bus) error {
	s.Machine.Attach(ctx, bus)

	if s.Source != nil {
		if err := s.Source.Connect(); err != nil {
			return err
		}
	} else {
		log.Info().Msg("MQTT presence source disabled, webhook ingest only")
	}

	return nil
}

// Close releases the source and the script VM.
func (s *PresenceService) Close() {
	if s.Source != nil {
		s.Source.Close()
	}
	if s.mapper != nil {
		s.mapper.Close()
	}
}
