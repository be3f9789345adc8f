package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/presenced/internal/eventbus"
	"github.com/dokzlo13/presenced/internal/light"
)

// ErrNotSignedIn means the presence source has no readable session. Known
// quirk: the source fires a change notification right after resume, before
// the value is actually readable, so the first such failure after a resume
// is suppressed.
var ErrNotSignedIn = errors.New("presence source not signed in")

// Lights is the slice of the light controller the machine drives.
type Lights interface {
	Apply(ctx context.Context, desired light.Flag) error
	IsOn(ctx context.Context, f light.Flag) bool
}

// Blink is the slice of the blink scheduler the machine drives.
type Blink interface {
	Start(flags light.Flag, interval time.Duration)
	Stop()
}

// Mapper overrides the built-in status mapping for selected statuses. The
// second return is false when the override does not apply.
type Mapper interface {
	Map(s Status) (Target, bool)
}

// Event is one presence notification: either a readable status or the
// error the source raised instead.
type Event struct {
	Status Status
	Err    error
}

// Machine reacts to presence and power events and decides what the lights
// should show. A mutex serializes event handling; sources deliver on their
// own goroutines and may interleave arbitrarily.
type Machine struct {
	lights        Lights
	blink         Blink
	override      Mapper // may be nil
	blinkInterval time.Duration

	mu       sync.Mutex
	sleeping bool
	justWoke bool
	errBlink bool
}

// NewMachine creates a machine over the given light controller and blink
// scheduler. override may be nil.
func NewMachine(lights Lights, blink Blink, override Mapper, blinkInterval time.Duration) *Machine {
	if blinkInterval == 0 {
		blinkInterval = 500 * time.Millisecond
	}
	return &Machine{
		lights:        lights,
		blink:         blink,
		override:      override,
		blinkInterval: blinkInterval,
	}
}

// HandleChange processes one presence-changed notification.
func (m *Machine) HandleChange(ctx context.Context, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sleeping {
		log.Debug().Msg("Suspend pending, ignoring presence change")
		return
	}

	justWoke := m.justWoke
	m.justWoke = false

	if ev.Err != nil {
		if errors.Is(ev.Err, ErrNotSignedIn) && justWoke {
			log.Info().Msg("Presence unreadable right after resume, suppressing")
			return
		}
		log.Warn().Err(ev.Err).Msg("Presence unreadable, signaling error")
		m.errorBlink(ctx)
		return
	}

	// A usable value always clears an active error blink before
	// re-evaluation, so a recovered source goes straight to steady lights.
	if m.errBlink {
		m.blink.Stop()
		m.errBlink = false
	}

	target := m.mapStatus(ev.Status)
	log.Info().Str("status", string(ev.Status)).Str("target", target.String()).Msg("Presence changed")

	switch target {
	case TargetOff:
		if err := m.lights.Apply(ctx, light.FlagNone); err != nil {
			log.Error().Err(err).Msg("Failed to turn lights off")
		}
	case TargetBlink:
		m.errorBlink(ctx)
	default:
		f := target.Flag()
		if m.lights.IsOn(ctx, f) {
			log.Debug().Str("light", f.String()).Msg("Light already on, skipping command")
			return
		}
		if err := m.lights.Apply(ctx, f); err != nil {
			log.Error().Err(err).Str("light", f.String()).Msg("Failed to apply light set")
		}
	}
}

// HandleSuspend processes a power-suspend notification: lights off
// immediately, presence churn ignored until resume.
func (m *Machine) HandleSuspend(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.Info().Msg("Power suspend, forcing lights off")
	m.sleeping = true
	m.justWoke = false

	if m.errBlink {
		m.blink.Stop()
		m.errBlink = false
	}
	if err := m.lights.Apply(ctx, light.FlagNone); err != nil {
		log.Error().Err(err).Msg("Failed to force lights off on suspend")
	}
}

// HandleResume processes a power-resume notification. No light action here;
// the next presence change decides, with one "not signed in" failure
// forgiven.
func (m *Machine) HandleResume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.Info().Msg("Power resume")
	m.sleeping = false
	m.justWoke = true
}

// ErrorActive reports whether the machine is in the error-blink state.
func (m *Machine) ErrorActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errBlink
}

// errorBlink turns everything off, then blinks all lights. Caller holds mu.
func (m *Machine) errorBlink(ctx context.Context) {
	if err := m.lights.Apply(ctx, light.FlagNone); err != nil {
		log.Error().Err(err).Msg("Failed to clear lights before error blink")
	}
	m.blink.Start(light.FlagAll, m.blinkInterval)
	m.errBlink = true
}

// mapStatus consults the script override first, then the built-in table.
func (m *Machine) mapStatus(s Status) Target {
	if m.override != nil {
		if target, ok := m.override.Map(s); ok {
			log.Debug().Str("status", string(s)).Str("target", target.String()).Msg("Mapping overridden by script")
			return target
		}
	}
	return MapStatus(s)
}

// Attach subscribes the machine to presence and power events on the bus.
func (m *Machine) Attach(ctx context.Context, bus *eventbus.Bus) {
	bus.Subscribe(eventbus.EventTypePresence, func(ev eventbus.Event) {
		if ev.SourceErr != "" {
			m.HandleChange(ctx, Event{Err: ErrNotSignedIn})
			return
		}
		m.HandleChange(ctx, Event{Status: ParseStatus(ev.Status)})
	})

	bus.Subscribe(eventbus.EventTypePower, func(ev eventbus.Event) {
		switch ev.Mode {
		case eventbus.PowerSuspend:
			m.HandleSuspend(ctx)
		case eventbus.PowerResume:
			m.HandleResume()
		default:
			log.Warn().Str("mode", ev.Mode).Msg("Unknown power mode, ignoring")
		}
	})
}
