// Package device talks to the remote GPIO board over its REST service.
package device

import (
	"fmt"

	"github.com/dokzlo13/presenced/internal/light"
)

// Pins holds the GPIO pin number for each light.
type Pins struct {
	Available int
	Away      int
	Busy      int
}

// DefaultPins is the wiring the board ships with.
var DefaultPins = Pins{Available: 18, Away: 17, Busy: 27}

// Endpoints holds the resolved value URL for each light. Pure data; the
// caller validates the host before resolving.
type Endpoints struct {
	urls map[light.Flag]string
}

// ResolveEndpoints builds the three per-light URLs from host, port and pin
// assignment. The device contract is GET/POST {base}/GPIO/{pin}/value.
func ResolveEndpoints(host string, port int, pins Pins) Endpoints {
	url := func(pin int) string {
		return fmt.Sprintf("http://%s:%d/GPIO/%d/value", host, port, pin)
	}
	return Endpoints{
		urls: map[light.Flag]string{
			light.FlagAvailable: url(pins.Available),
			light.FlagAway:      url(pins.Away),
			light.FlagBusy:      url(pins.Busy),
		},
	}
}

// URL returns the endpoint for a single light.
func (e Endpoints) URL(f light.Flag) string {
	return e.urls[f]
}

// Map returns a copy of the flag→URL table in the shape the light
// controller consumes.
func (e Endpoints) Map() map[light.Flag]string {
	m := make(map[light.Flag]string, len(e.urls))
	for f, u := range e.urls {
		m[f] = u
	}
	return m
}
