// Package light models the three indicator LEDs and the operations that
// drive them: the light-set operation with its commanded-state cache, and
// the blink scheduler.
package light

// Flag is a bitset over the three indicator lights.
type Flag uint8

const (
	FlagAvailable Flag = 1 << iota
	FlagAway
	FlagBusy
)

const (
	// FlagNone means all lights off.
	FlagNone Flag = 0
	// FlagAll is every light at once, used by the error blink and self-test.
	FlagAll = FlagAvailable | FlagAway | FlagBusy
)

// Has reports whether all bits of other are set in f.
func (f Flag) Has(other Flag) bool {
	return f&other == other
}

// With returns f with the bits of other added.
func (f Flag) With(other Flag) Flag {
	return f | other
}

// Without returns f with the bits of other cleared.
func (f Flag) Without(other Flag) Flag {
	return f &^ other
}

// String returns a human-readable name for the flag set.
func (f Flag) String() string {
	switch f {
	case FlagNone:
		return "none"
	case FlagAvailable:
		return "available"
	case FlagAway:
		return "away"
	case FlagBusy:
		return "busy"
	case FlagAll:
		return "all"
	}

	s := ""
	for _, single := range Order() {
		if f.Has(single) {
			if s != "" {
				s += "+"
			}
			s += single.String()
		}
	}
	if s == "" {
		return "unknown"
	}
	return s
}

// Order returns the individual lights in the fixed order commands are
// issued: Available, Away, Busy. Callers must not reorder.
func Order() []Flag {
	return []Flag{FlagAvailable, FlagAway, FlagBusy}
}
