package light

import (
	"context"
	"sync"
	"testing"
	"time"
)

// countingSetter tallies on-pulses and off-pulses.
type countingSetter struct {
	mu   sync.Mutex
	ons  int
	offs int
	last Flag
}

func (s *countingSetter) Apply(_ context.Context, desired Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if desired == FlagNone {
		s.offs++
	} else {
		s.ons++
	}
	s.last = desired
	return nil
}

func (s *countingSetter) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ons, s.offs
}

func TestBlinkerPulses(t *testing.T) {
	setter := &countingSetter{}
	b := NewBlinker(setter, nil)

	b.Start(FlagAll, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	b.Stop()

	ons, offs := setter.counts()
	if ons < 2 {
		t.Errorf("got %d on-pulses, want at least 2", ons)
	}
	// Every on-pulse is followed by its own off-pulse.
	if offs < ons-1 {
		t.Errorf("got %d off-pulses for %d on-pulses", offs, ons)
	}
}

func TestBlinkerStartIsIdempotent(t *testing.T) {
	setter := &countingSetter{}
	b := NewBlinker(setter, nil)

	b.Start(FlagAll, 5*time.Millisecond)
	b.Start(FlagBusy, time.Hour) // must be ignored
	if !b.Active() {
		t.Fatal("Active() = false after Start")
	}

	time.Sleep(30 * time.Millisecond)
	b.Stop()

	setter.mu.Lock()
	last := setter.last
	setter.mu.Unlock()
	// The second Start would have blinked busy only; pulses must carry the
	// first session's flags.
	if last != FlagNone && last != FlagAll {
		t.Errorf("pulse carried %s, want flags from the first Start", last)
	}
}

func TestBlinkerStopIsIdempotent(t *testing.T) {
	setter := &countingSetter{}
	b := NewBlinker(setter, nil)

	b.Start(FlagAll, time.Millisecond)
	b.Stop()
	b.Stop() // no-op, must not panic or block on a closed session

	if b.Active() {
		t.Error("Active() = true after Stop")
	}
}

func TestBlinkerStopEndsPulsing(t *testing.T) {
	setter := &countingSetter{}
	b := NewBlinker(setter, nil)

	b.Start(FlagAll, 2*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	b.Stop() // blocks 2×interval, draining any in-flight firing

	ons, _ := setter.counts()
	time.Sleep(20 * time.Millisecond)
	onsAfter, _ := setter.counts()
	if onsAfter != ons {
		t.Errorf("pulses continued after Stop: %d -> %d", ons, onsAfter)
	}
}

func TestBlinkerRestartAfterStop(t *testing.T) {
	setter := &countingSetter{}
	b := NewBlinker(setter, nil)

	b.Start(FlagAll, 2*time.Millisecond)
	b.Stop()

	b.Start(FlagAll, 2*time.Millisecond)
	if !b.Active() {
		t.Fatal("Active() = false after restart")
	}
	time.Sleep(10 * time.Millisecond)
	b.Stop()

	ons, _ := setter.counts()
	if ons == 0 {
		t.Error("no pulses after restart")
	}
}
