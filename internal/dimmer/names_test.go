package dimmer

import (
	"testing"

	"github.com/KDSPL/SaveMyEyes/internal/platform"
)

func display(id int, name string, x, y, w, h int) platform.Display {
	return platform.Display{
		ID:   id,
		Name: name,
		Bounds: platform.Rect{
			X: x, Y: y, Width: w, Height: h,
		},
	}
}

func TestDedupeNames(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			"no duplicates",
			[]string{"eDP-1", "HDMI-1"},
			[]string{"eDP-1", "HDMI-1"},
		},
		{
			"one duplicate pair",
			[]string{"Display", "Display"},
			[]string{"Display", "Display (2)"},
		},
		{
			"triple duplicate keeps first untouched",
			[]string{"DP-1", "DP-1", "DP-1"},
			[]string{"DP-1", "DP-1 (2)", "DP-1 (3)"},
		},
		{
			"empty", nil, nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			displays := make([]platform.Display, len(tt.in))
			for i, n := range tt.in {
				displays[i] = display(i, n, i*1920, 0, 1920, 1080)
			}
			got := DedupeNames(displays)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d displays, want %d", len(got), len(tt.want))
			}
			for i, d := range got {
				if d.Name != tt.want[i] {
					t.Errorf("name[%d] = %q, want %q", i, d.Name, tt.want[i])
				}
			}
		})
	}
}

func TestIndexAtPoint(t *testing.T) {
	displays := []platform.Display{
		display(0, "eDP-1", 0, 0, 1920, 1080),
		display(1, "HDMI-1", 1920, 0, 2560, 1440),
	}

	tests := []struct {
		name string
		x, y int
		want int
	}{
		{"inside first", 100, 100, 0},
		{"inside second", 2000, 500, 1},
		{"first edge inclusive", 0, 0, 0},
		{"second origin", 1920, 0, 1},
		{"outside all falls back to primary", -50, -50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IndexAtPoint(displays, tt.x, tt.y); got != tt.want {
				t.Errorf("IndexAtPoint(%d, %d) = %d, want %d", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestOpacityForPrefersOverride(t *testing.T) {
	snap := Snapshot{
		GlobalOpacity: 0.3,
		PerMonitor:    map[string]float64{"HDMI-1": 0.7},
	}

	if got := opacityFor(display(0, "eDP-1", 0, 0, 1920, 1080), snap); got != 0.3 {
		t.Errorf("opacityFor(eDP-1) = %v, want global 0.3", got)
	}
	if got := opacityFor(display(1, "HDMI-1", 1920, 0, 1920, 1080), snap); got != 0.7 {
		t.Errorf("opacityFor(HDMI-1) = %v, want override 0.7", got)
	}
}
