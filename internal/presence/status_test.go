package presence

import (
	"testing"

	"github.com/dokzlo13/presenced/internal/light"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		status   Status
		expected Target
	}{
		{StatusBusy, TargetBusy},
		{StatusBusyIdle, TargetBusy},
		{StatusDoNotDisturb, TargetBusy},
		{StatusFreeIdle, TargetAway},
		{StatusAway, TargetAway},
		{StatusTemporarilyAway, TargetAway},
		{StatusFree, TargetAvailable},
		{StatusOffline, TargetOff},
		{Status("inameeting"), TargetBlink},
		{Status(""), TargetBlink},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := MapStatus(tt.status); got != tt.expected {
				t.Errorf("MapStatus(%q) = %s, want %s", tt.status, got, tt.expected)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected Status
	}{
		{"Free", StatusFree},
		{"BUSY", StatusBusy},
		{"Do Not Disturb", StatusDoNotDisturb},
		{"do-not-disturb", StatusDoNotDisturb},
		{"temporarily_away", StatusTemporarilyAway},
		{" Offline ", StatusOffline},
		{"whatever", Status("whatever")},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseStatus(tt.raw); got != tt.expected {
				t.Errorf("ParseStatus(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestTargetFlag(t *testing.T) {
	tests := []struct {
		target   Target
		expected light.Flag
	}{
		{TargetAvailable, light.FlagAvailable},
		{TargetAway, light.FlagAway},
		{TargetBusy, light.FlagBusy},
		{TargetOff, light.FlagNone},
		{TargetBlink, light.FlagAll},
	}

	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			if got := tt.target.Flag(); got != tt.expected {
				t.Errorf("Flag() = %s, want %s", got, tt.expected)
			}
		})
	}
}
