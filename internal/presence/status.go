// Package presence maps a user's availability status to a light
// configuration and runs the state machine that reacts to presence and
// power events.
package presence

import (
	"strings"

	"github.com/dokzlo13/presenced/internal/light"
)

// Status is a presence value as reported by the collaboration client.
type Status string

const (
	StatusFree            Status = "free"
	StatusFreeIdle        Status = "freeidle"
	StatusBusy            Status = "busy"
	StatusBusyIdle        Status = "busyidle"
	StatusDoNotDisturb    Status = "donotdisturb"
	StatusAway            Status = "away"
	StatusTemporarilyAway Status = "temporarilyaway"
	StatusOffline         Status = "offline"
)

// ParseStatus normalizes a raw presence string (case, separators) into a
// Status. Unrecognized values pass through so the mapping can route them to
// the error blink.
func ParseStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
	return Status(s)
}

// Target is the light configuration a status calls for.
type Target int

const (
	TargetAvailable Target = iota
	TargetAway
	TargetBusy
	TargetOff
	TargetBlink
)

// String returns a human-readable name for the target.
func (t Target) String() string {
	switch t {
	case TargetAvailable:
		return "available"
	case TargetAway:
		return "away"
	case TargetBusy:
		return "busy"
	case TargetOff:
		return "off"
	case TargetBlink:
		return "blink"
	default:
		return "unknown"
	}
}

// Flag returns the light set a target commands. TargetBlink blinks every
// light; TargetOff commands none.
func (t Target) Flag() light.Flag {
	switch t {
	case TargetAvailable:
		return light.FlagAvailable
	case TargetAway:
		return light.FlagAway
	case TargetBusy:
		return light.FlagBusy
	case TargetBlink:
		return light.FlagAll
	default:
		return light.FlagNone
	}
}

// MapStatus is the fixed presence→light table. Anything it does not know
// lands on TargetBlink, the error signal.
func MapStatus(s Status) Target {
	switch s {
	case StatusBusy, StatusBusyIdle, StatusDoNotDisturb:
		return TargetBusy
	case StatusFreeIdle, StatusAway, StatusTemporarilyAway:
		return TargetAway
	case StatusFree:
		return TargetAvailable
	case StatusOffline:
		return TargetOff
	default:
		return TargetBlink
	}
}
