package light

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Setter applies a full light configuration. *Controller satisfies it.
type Setter interface {
	Apply(ctx context.Context, desired Flag) error
}

// Blinker pulses a set of lights at a fixed interval. At most one blink
// session runs at a time: Start while blinking and Stop while idle are
// no-ops. The idle/blinking transition is a single atomic test-and-set; the
// mutex only guards the per-session channels around it.
type Blinker struct {
	setter   Setter
	recorder Recorder

	active atomic.Bool

	mu        sync.Mutex
	stop      chan struct{}
	done      chan struct{}
	interval  time.Duration
	sessionID string
}

// NewBlinker creates an idle blinker. recorder may be nil.
func NewBlinker(setter Setter, recorder Recorder) *Blinker {
	return &Blinker{setter: setter, recorder: recorder}
}

// Start begins blinking flags with the given interval. Each firing asserts
// the lights on, holds for interval, then asserts all lights off, so a
// missed tick can never leave lights stuck on. Firings repeat every
// 2×interval. Idempotent: a second Start while blinking does nothing.
func (b *Blinker) Start(flags Flag, interval time.Duration) {
	b.mu.Lock()
	if !b.active.CompareAndSwap(false, true) {
		b.mu.Unlock()
		log.Debug().Msg("Blink already running, ignoring start")
		return
	}

	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	b.interval = interval
	b.sessionID = uuid.NewString()
	stop, done, sessionID := b.stop, b.done, b.sessionID
	b.mu.Unlock()

	if b.recorder != nil {
		b.recorder.RecordBlink(sessionID, flags, interval, true)
	}
	log.Info().
		Str("session_id", sessionID).
		Str("lights", flags.String()).
		Dur("interval", interval).
		Msg("Blink started")

	go b.run(flags, interval, stop, done)
}

// Stop ends the blink session and blocks for 2×interval to let an in-flight
// firing finish its on/off cycle. Best effort only: a firing that began
// just before the disarm still runs to completion and can race with the
// caller's next light command. Callers here always issue a fresh command
// right after Stop, which overwrites whatever the straggler left behind.
// Idempotent: Stop while idle does nothing.
func (b *Blinker) Stop() {
	b.mu.Lock()
	if !b.active.CompareAndSwap(true, false) {
		b.mu.Unlock()
		return
	}

	close(b.stop)
	interval := b.interval
	sessionID := b.sessionID
	b.mu.Unlock()

	time.Sleep(2 * interval)

	if b.recorder != nil {
		b.recorder.RecordBlink(sessionID, FlagNone, interval, false)
	}
	log.Info().Str("session_id", sessionID).Msg("Blink stopped")
}

// Active reports whether a blink session is running.
func (b *Blinker) Active() bool {
	return b.active.Load()
}

func (b *Blinker) run(flags Flag, interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			b.fire(flags, interval)
			// fire held the lights on for one interval already, so one
			// more interval of darkness completes the 2×interval period.
			timer.Reset(interval)
		}
	}
}

// fire runs one on/off pulse. It is not cancellable mid-cycle.
func (b *Blinker) fire(flags Flag, interval time.Duration) {
	ctx := context.Background()
	if err := b.setter.Apply(ctx, flags); err != nil {
		log.Warn().Err(err).Msg("Blink on-pulse failed")
	}
	time.Sleep(interval)
	if err := b.setter.Apply(ctx, FlagNone); err != nil {
		log.Warn().Err(err).Msg("Blink off-pulse failed")
	}
}
