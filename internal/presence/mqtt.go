package presence

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/presenced/internal/eventbus"
)

// Status-topic payloads that signal an unreadable source rather than a
// presence value.
const payloadNotSignedIn = "notsignedin"

// MQTTOptions configures the MQTT presence source.
type MQTTOptions struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	StatusTopic    string
	PowerTopic     string
	ConnectTimeout time.Duration
}

// MQTTSource subscribes to a status topic and a power topic and republishes
// what it hears onto the event bus. A retained message on the status topic
// delivers the initial presence value right after connect.
type MQTTSource struct {
	opts   MQTTOptions
	bus    *eventbus.Bus
	client paho.Client
}

// NewMQTTSource creates a source; Connect establishes the session.
func NewMQTTSource(opts MQTTOptions, bus *eventbus.Bus) *MQTTSource {
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.ClientID == "" {
		opts.ClientID = "presenced"
	}
	return &MQTTSource{opts: opts, bus: bus}
}

// Connect dials the broker and subscribes both topics. A failure here is a
// construction-time failure for the monitoring session: the caller must
// treat it as fatal.
func (s *MQTTSource) Connect() error {
	copts := paho.NewClientOptions().
		AddBroker(s.opts.Broker).
		SetClientID(s.opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second)
	if s.opts.Username != "" {
		copts.SetUsername(s.opts.Username)
		copts.SetPassword(s.opts.Password)
	}
	copts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})
	copts.SetOnConnectHandler(func(_ paho.Client) {
		log.Info().Str("broker", s.opts.Broker).Msg("MQTT connected")
	})

	s.client = paho.NewClient(copts)
	token := s.client.Connect()
	if !token.WaitTimeout(s.opts.ConnectTimeout) {
		return fmt.Errorf("mqtt connect timeout after %s", s.opts.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	if err := s.subscribe(s.opts.StatusTopic, s.onStatus); err != nil {
		return err
	}
	if err := s.subscribe(s.opts.PowerTopic, s.onPower); err != nil {
		return err
	}

	log.Info().
		Str("status_topic", s.opts.StatusTopic).
		Str("power_topic", s.opts.PowerTopic).
		Msg("Presence source subscribed")
	return nil
}

func (s *MQTTSource) subscribe(topic string, handler paho.MessageHandler) error {
	token := s.client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(s.opts.ConnectTimeout) {
		return fmt.Errorf("mqtt subscribe timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", topic, err)
	}
	return nil
}

func (s *MQTTSource) onStatus(_ paho.Client, msg paho.Message) {
	payload := string(msg.Payload())
	log.Debug().Str("topic", msg.Topic()).Str("payload", payload).Msg("Presence message")

	ev := eventbus.Event{Type: eventbus.EventTypePresence, Source: "mqtt"}
	if payload == "" || string(ParseStatus(payload)) == payloadNotSignedIn {
		ev.SourceErr = payloadNotSignedIn
	} else {
		ev.Status = payload
	}
	s.bus.Publish(ev)
}

func (s *MQTTSource) onPower(_ paho.Client, msg paho.Message) {
	mode := string(ParseStatus(string(msg.Payload())))
	log.Debug().Str("topic", msg.Topic()).Str("mode", mode).Msg("Power message")

	s.bus.Publish(eventbus.Event{
		Type:   eventbus.EventTypePower,
		Mode:   mode,
		Source: "mqtt",
	})
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(1000)
	}
}
