package presence

import (
	"context"
	"testing"
	"time"

	"github.com/dokzlo13/presenced/internal/light"
)

// fakeLights records applies and serves IsOn from the last applied set.
type fakeLights struct {
	applies []light.Flag
	lit     light.Flag
}

func (f *fakeLights) Apply(_ context.Context, desired light.Flag) error {
	f.applies = append(f.applies, desired)
	f.lit = desired
	return nil
}

func (f *fakeLights) IsOn(_ context.Context, fl light.Flag) bool {
	return f.lit.Has(fl)
}

// fakeBlink tracks start/stop calls without any timers.
type fakeBlink struct {
	starts int
	stops  int
	flags  light.Flag
	active bool
}

func (f *fakeBlink) Start(flags light.Flag, _ time.Duration) {
	if f.active {
		return
	}
	f.active = true
	f.starts++
	f.flags = flags
}

func (f *fakeBlink) Stop() {
	if !f.active {
		return
	}
	f.active = false
	f.stops++
}

func newTestMachine() (*Machine, *fakeLights, *fakeBlink) {
	lights := &fakeLights{}
	blink := &fakeBlink{}
	return NewMachine(lights, blink, nil, 10*time.Millisecond), lights, blink
}

func TestFreeTurnsAvailableOnOnce(t *testing.T) {
	m, lights, blink := newTestMachine()
	ctx := context.Background()

	m.HandleChange(ctx, Event{Status: StatusFree})

	if len(lights.applies) != 1 || lights.applies[0] != light.FlagAvailable {
		t.Fatalf("applies = %v, want exactly [available]", lights.applies)
	}
	if blink.starts != 0 {
		t.Errorf("blink started %d times, want 0", blink.starts)
	}
	if !lights.IsOn(ctx, light.FlagAvailable) {
		t.Error("available light not on after Free")
	}

	// Same status again: light already on, no new command.
	m.HandleChange(ctx, Event{Status: StatusFree})
	if len(lights.applies) != 1 {
		t.Errorf("applies = %v, want no second command for an already-lit light", lights.applies)
	}
}

func TestOfflineTurnsAllOff(t *testing.T) {
	m, lights, _ := newTestMachine()
	ctx := context.Background()

	m.HandleChange(ctx, Event{Status: StatusBusy})
	m.HandleChange(ctx, Event{Status: StatusOffline})

	last := lights.applies[len(lights.applies)-1]
	if last != light.FlagNone {
		t.Errorf("last apply = %s, want none", last)
	}
}

func TestUnmappedStatusBlinksAllLights(t *testing.T) {
	m, lights, blink := newTestMachine()
	ctx := context.Background()

	m.HandleChange(ctx, Event{Status: Status("lunch")})

	if blink.starts != 1 || blink.flags != light.FlagAll {
		t.Fatalf("blink starts=%d flags=%s, want one start of all lights", blink.starts, blink.flags)
	}
	// Lights are cleared before blinking begins.
	if len(lights.applies) == 0 || lights.applies[0] != light.FlagNone {
		t.Errorf("applies = %v, want all-off before blink", lights.applies)
	}
	if !m.ErrorActive() {
		t.Error("ErrorActive() = false after unmapped status")
	}
}

func TestUsableStatusStopsErrorBlink(t *testing.T) {
	m, lights, blink := newTestMachine()
	ctx := context.Background()

	m.HandleChange(ctx, Event{Status: Status("lunch")})
	m.HandleChange(ctx, Event{Status: StatusFree})

	if blink.stops != 1 {
		t.Errorf("blink stops = %d, want 1", blink.stops)
	}
	if m.ErrorActive() {
		t.Error("ErrorActive() = true after recovery")
	}
	last := lights.applies[len(lights.applies)-1]
	if last != light.FlagAvailable {
		t.Errorf("last apply = %s, want available", last)
	}
}

func TestSuspendForcesOffAndMutesChanges(t *testing.T) {
	m, lights, _ := newTestMachine()
	ctx := context.Background()

	m.HandleChange(ctx, Event{Status: StatusBusy})
	m.HandleSuspend(ctx)

	last := lights.applies[len(lights.applies)-1]
	if last != light.FlagNone {
		t.Fatalf("last apply = %s, want none after suspend", last)
	}

	// Presence churn while going to sleep is a no-op.
	before := len(lights.applies)
	m.HandleChange(ctx, Event{Status: StatusFree})
	m.HandleChange(ctx, Event{Status: StatusAway})
	if len(lights.applies) != before {
		t.Errorf("applies grew from %d to %d while sleeping", before, len(lights.applies))
	}
}

func TestSuspendCancelsErrorBlink(t *testing.T) {
	m, _, blink := newTestMachine()
	ctx := context.Background()

	m.HandleChange(ctx, Event{Status: Status("lunch")})
	m.HandleSuspend(ctx)

	if blink.stops != 1 {
		t.Errorf("blink stops = %d, want 1 after suspend", blink.stops)
	}
	if m.ErrorActive() {
		t.Error("ErrorActive() = true after suspend")
	}
}

func TestResumeReenablesChanges(t *testing.T) {
	m, lights, _ := newTestMachine()
	ctx := context.Background()

	m.HandleSuspend(ctx)
	m.HandleResume()

	// Resume itself takes no light action.
	if len(lights.applies) != 1 { // the suspend's all-off
		t.Fatalf("applies = %v, want only the suspend all-off", lights.applies)
	}

	m.HandleChange(ctx, Event{Status: StatusFree})
	last := lights.applies[len(lights.applies)-1]
	if last != light.FlagAvailable {
		t.Errorf("last apply = %s, want available after resume", last)
	}
}

func TestNotSignedInSuppressedOnceAfterResume(t *testing.T) {
	m, _, blink := newTestMachine()
	ctx := context.Background()

	m.HandleSuspend(ctx)
	m.HandleResume()

	// First read failure right after waking: forgiven.
	m.HandleChange(ctx, Event{Err: ErrNotSignedIn})
	if blink.starts != 0 {
		t.Fatalf("blink started on the suppressed failure")
	}

	// Second consecutive failure without another resume: error blink.
	m.HandleChange(ctx, Event{Err: ErrNotSignedIn})
	if blink.starts != 1 {
		t.Errorf("blink starts = %d, want 1 on the second failure", blink.starts)
	}
}

func TestNotSignedInWithoutResumeBlinksImmediately(t *testing.T) {
	m, _, blink := newTestMachine()
	ctx := context.Background()

	m.HandleChange(ctx, Event{Err: ErrNotSignedIn})
	if blink.starts != 1 {
		t.Errorf("blink starts = %d, want 1", blink.starts)
	}
}

func TestGoodStatusConsumesWakeFlag(t *testing.T) {
	m, _, blink := newTestMachine()
	ctx := context.Background()

	m.HandleSuspend(ctx)
	m.HandleResume()

	// A good read consumes the just-woke window; the next failure blinks.
	m.HandleChange(ctx, Event{Status: StatusFree})
	m.HandleChange(ctx, Event{Err: ErrNotSignedIn})
	if blink.starts != 1 {
		t.Errorf("blink starts = %d, want 1 once the wake window is spent", blink.starts)
	}
}

// staticMapper routes one status to a fixed target.
type staticMapper struct {
	status Status
	target Target
}

func (s staticMapper) Map(st Status) (Target, bool) {
	if st == s.status {
		return s.target, true
	}
	return 0, false
}

func TestScriptOverrideWins(t *testing.T) {
	lights := &fakeLights{}
	blink := &fakeBlink{}
	override := staticMapper{status: Status("lunch"), target: TargetAway}
	m := NewMachine(lights, blink, override, time.Millisecond)
	ctx := context.Background()

	// Overridden status: steady away instead of the default error blink.
	m.HandleChange(ctx, Event{Status: Status("lunch")})
	if blink.starts != 0 {
		t.Errorf("blink started despite override")
	}
	last := lights.applies[len(lights.applies)-1]
	if last != light.FlagAway {
		t.Errorf("last apply = %s, want away", last)
	}

	// Unrelated status falls through to the built-in table.
	m.HandleChange(ctx, Event{Status: Status("mystery")})
	if blink.starts != 1 {
		t.Errorf("blink starts = %d, want 1 for an unmapped status", blink.starts)
	}
}
