package platform

// Rect describes a rectangular region in global display space.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Display describes a physical display. ID is the logical index in
// enumeration order; index 0 is treated as the primary display. Name is the
// raw hardware name and may collide with another display of the same model.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
}

// Surface is one native dimming surface owned by the overlay backend. All
// operations are safe to call after the underlying native object has been
// destroyed by an external actor: Alive reports false and the mutating
// calls return errors or no-op.
type Surface interface {
	ID() uint32
	Alive() bool
	SetOpacity(opacity float64) error
	Raise() error
	Destroy()
}

// Backend abstracts the native display operations the dimming engine needs.
type Backend interface {
	// Displays enumerates currently active displays. Never cached; callers
	// re-invoke on every show/refresh and on display-configuration changes.
	Displays() ([]Display, error)

	// ApplyBrightness applies a multiplicative brightness factor to a
	// display's output color pipeline. Returns an error when the compositor
	// hook is unavailable for that display.
	ApplyBrightness(displayID int, brightness float64) error

	// RestoreBrightness restores the identity transform on every display
	// touched by ApplyBrightness. Idempotent.
	RestoreBrightness() error

	// CreateSurface creates one click-through, topmost dimming surface
	// covering the given display.
	CreateSurface(d Display, opacity float64) (Surface, error)
}
