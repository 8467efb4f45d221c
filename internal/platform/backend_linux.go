//go:build linux

package platform

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"

	"github.com/KDSPL/SaveMyEyes/internal/x11"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection

	mu     sync.Mutex
	crtcs  map[int]randr.Crtc // display ID -> CRTC, from the last enumeration
	dimmed map[int]randr.Crtc // CRTCs with a non-identity gamma ramp applied
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{
		conn:   conn,
		crtcs:  make(map[int]randr.Crtc),
		dimmed: make(map[int]randr.Crtc),
	}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn), nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// Quit asks the X11 event loop to exit.
func (b *LinuxBackend) Quit() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// PointerPosition returns the pointer's root-relative coordinates.
func (b *LinuxBackend) PointerPosition() (int, int, error) {
	return b.conn.PointerPosition()
}

// WatchForegroundChanges registers a foreground-change notification callback.
func (b *LinuxBackend) WatchForegroundChanges(cb func()) error {
	return b.conn.WatchForegroundChanges(cb)
}

// WatchScreenChanges registers a display-configuration-change callback.
func (b *LinuxBackend) WatchScreenChanges(cb func()) error {
	return b.conn.WatchScreenChanges(cb)
}

// Displays returns all active displays and refreshes the display-to-CRTC
// mapping used by ApplyBrightness.
func (b *LinuxBackend) Displays() ([]Display, error) {
	monitors, err := b.conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.crtcs = make(map[int]randr.Crtc, len(monitors))
	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		b.crtcs[m.ID] = m.Crtc
		displays = append(displays, Display{
			ID:   m.ID,
			Name: m.Name,
			Bounds: Rect{
				X:      m.X,
				Y:      m.Y,
				Width:  m.Width,
				Height: m.Height,
			},
		})
	}
	b.mu.Unlock()

	return displays, nil
}

// ApplyBrightness scales the gamma ramp of the CRTC driving the given display.
func (b *LinuxBackend) ApplyBrightness(displayID int, brightness float64) error {
	b.mu.Lock()
	crtc, ok := b.crtcs[displayID]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("no crtc known for display %d", displayID)
	}

	if err := b.conn.SetCrtcBrightness(crtc, brightness); err != nil {
		return err
	}

	b.mu.Lock()
	b.dimmed[displayID] = crtc
	b.mu.Unlock()
	return nil
}

// RestoreBrightness resets every dimmed CRTC to the identity gamma ramp.
// Idempotent: calling with nothing applied is a no-op.
func (b *LinuxBackend) RestoreBrightness() error {
	b.mu.Lock()
	dimmed := b.dimmed
	b.dimmed = make(map[int]randr.Crtc)
	b.mu.Unlock()

	var firstErr error
	for _, crtc := range dimmed {
		if err := b.conn.RestoreCrtcGamma(crtc); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CreateSurface creates one overlay surface matching the display bounds.
func (b *LinuxBackend) CreateSurface(d Display, opacity float64) (Surface, error) {
	return b.conn.CreateOverlay(d.Bounds.X, d.Bounds.Y, d.Bounds.Width, d.Bounds.Height, opacity)
}
