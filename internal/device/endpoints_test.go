package device

import (
	"testing"

	"github.com/dokzlo13/presenced/internal/light"
)

func TestResolveEndpoints(t *testing.T) {
	eps := ResolveEndpoints("192.168.1.50", 8000, DefaultPins)

	tests := []struct {
		flag light.Flag
		want string
	}{
		{light.FlagAvailable, "http://192.168.1.50:8000/GPIO/18/value"},
		{light.FlagAway, "http://192.168.1.50:8000/GPIO/17/value"},
		{light.FlagBusy, "http://192.168.1.50:8000/GPIO/27/value"},
	}

	for _, tt := range tests {
		t.Run(tt.flag.String(), func(t *testing.T) {
			if got := eps.URL(tt.flag); got != tt.want {
				t.Errorf("URL(%s) = %q, want %q", tt.flag, got, tt.want)
			}
		})
	}
}

func TestResolveEndpointsCustomPins(t *testing.T) {
	eps := ResolveEndpoints("pi.local", 8080, Pins{Available: 4, Away: 5, Busy: 6})
	if got := eps.URL(light.FlagBusy); got != "http://pi.local:8080/GPIO/6/value" {
		t.Errorf("URL(busy) = %q", got)
	}
}

func TestEndpointsMapCoversAllLights(t *testing.T) {
	eps := ResolveEndpoints("dev", 8000, DefaultPins)
	m := eps.Map()
	if len(m) != 3 {
		t.Fatalf("Map() has %d entries, want 3", len(m))
	}
	for _, f := range light.Order() {
		if m[f] == "" {
			t.Errorf("Map() missing %s", f)
		}
	}
}
