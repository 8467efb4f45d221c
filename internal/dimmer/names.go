package dimmer

import (
	"fmt"

	"github.com/KDSPL/SaveMyEyes/internal/platform"
)

// DedupeNames returns a copy of displays with duplicate names made distinct.
// External monitors of the same model commonly report identical names; the
// second and later occurrences get a positional suffix so per-monitor
// opacity keys stay stable and distinct: "DP-1", "DP-1 (2)", "DP-1 (3)".
func DedupeNames(displays []platform.Display) []platform.Display {
	out := make([]platform.Display, len(displays))
	seen := make(map[string]bool, len(displays))
	for i, d := range displays {
		name := d.Name
		if seen[name] {
			name = fmt.Sprintf("%s (%d)", d.Name, i+1)
		}
		seen[name] = true
		d.Name = name
		out[i] = d
	}
	return out
}

// IndexAtPoint returns the index of the display containing the point, for
// routing keyboard adjustments to the display under the cursor. Falls back
// to 0 when no display contains the point.
func IndexAtPoint(displays []platform.Display, x, y int) int {
	for i, d := range displays {
		b := d.Bounds
		if x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height {
			return i
		}
	}
	return 0
}

// opacityFor resolves the opacity for a display from the snapshot: the
// per-monitor override when one exists for the (de-duplicated) name,
// otherwise the global opacity.
func opacityFor(d platform.Display, snap Snapshot) float64 {
	if o, ok := snap.PerMonitor[d.Name]; ok {
		return ClampOpacity(o)
	}
	return snap.GlobalOpacity
}
