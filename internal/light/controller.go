package light

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Transport issues reads and writes against one light endpoint.
type Transport interface {
	// Get reports whether the light behind url is on. Transport failures
	// are folded into false (see device.Client.Get).
	Get(ctx context.Context, url string) bool
	// Post sets the light behind url to on or off.
	Post(ctx context.Context, url string, on bool) error
}

// Recorder receives a ledger entry for every issued command and every blink
// session transition. Implementations must not block for long; they run on
// the command path.
type Recorder interface {
	RecordCommand(opID string, flag Flag, on bool, url string, cmdErr error)
	RecordBlink(sessionID string, flags Flag, interval time.Duration, started bool)
}

// Controller owns the light-set operation and the commanded-state cache.
// Commanded state reflects only lights that were successfully set; a failed
// command leaves the cache untouched for that light.
type Controller struct {
	transport Transport
	urls      map[Flag]string
	recorder  Recorder

	mu        sync.Mutex
	commanded Flag
}

// NewController creates a controller over the given endpoints. recorder may
// be nil.
func NewController(transport Transport, urls map[Flag]string, recorder Recorder) *Controller {
	return &Controller{
		transport: transport,
		urls:      urls,
		recorder:  recorder,
	}
}

// Apply drives the device to the desired light set. Commands are issued in
// the fixed order Available, Away, Busy; the first failure aborts the rest
// of the operation. Lights already changed are not rolled back, so a failed
// apply can leave the device partially updated.
func (c *Controller) Apply(ctx context.Context, desired Flag) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	opID := uuid.NewString()
	for _, cmd := range BuildCommands(c.urls, desired) {
		err := c.transport.Post(ctx, cmd.URL, cmd.On)
		if c.recorder != nil {
			c.recorder.RecordCommand(opID, cmd.Flag, cmd.On, cmd.URL, err)
		}
		if err != nil {
			log.Error().
				Str("op_id", opID).
				Str("light", cmd.Flag.String()).
				Bool("on", cmd.On).
				Str("url", cmd.URL).
				Err(err).
				Msg("Light command failed, aborting set operation")
			return fmt.Errorf("set %s on=%v: %w", cmd.Flag, cmd.On, err)
		}

		if cmd.On {
			c.commanded = c.commanded.With(cmd.Flag)
		} else {
			c.commanded = c.commanded.Without(cmd.Flag)
		}
	}

	log.Debug().Str("op_id", opID).Str("lights", desired.String()).Msg("Light set applied")
	return nil
}

// IsOn verifies a single light against the device. A read failure reads as
// off, same as the underlying transport.
func (c *Controller) IsOn(ctx context.Context, f Flag) bool {
	return c.transport.Get(ctx, c.urls[f])
}

// Commanded returns the cached belief of which lights are lit.
func (c *Controller) Commanded() Flag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commanded
}
