package x11

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

const opacityAtom = "_NET_WM_WINDOW_OPACITY"

var shapeInitOnce sync.Once

// OverlayWindow is one borderless, click-through dimming surface covering a
// single monitor. The window is override-redirect (the window manager never
// manages or restacks it), filled solid black, and alpha-blended by the
// compositing manager via _NET_WM_WINDOW_OPACITY. The SHAPE input region is
// set empty so all pointer events pass through to whatever is underneath.
type OverlayWindow struct {
	win *xwindow.Window
}

// CreateOverlay creates and maps a dimming surface with the given geometry
// and opacity. The surface does not take focus and cannot be clicked.
func (c *Connection) CreateOverlay(x, y, width, height int, opacity float64) (*OverlayWindow, error) {
	var shapeErr error
	shapeInitOnce.Do(func() {
		shapeErr = shape.Init(c.XUtil.Conn())
	})
	if shapeErr != nil {
		return nil, fmt.Errorf("shape extension init failed: %w", shapeErr)
	}

	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate window id: %w", err)
	}

	err = win.CreateChecked(c.Root, x, y, width, height,
		xproto.CwBackPixel|xproto.CwOverrideRedirect,
		0x00000000, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create overlay window: %w", err)
	}

	// Empty input region: clicks, scrolls and hovers all pass through.
	err = shape.RectanglesChecked(
		c.XUtil.Conn(),
		shape.SoSet,
		shape.SkInput,
		xproto.ClipOrderingUnsorted,
		win.Id,
		0, 0,
		[]xproto.Rectangle{},
	).Check()
	if err != nil {
		win.Destroy()
		return nil, fmt.Errorf("failed to clear input shape: %w", err)
	}

	// Identification for tools like xwininfo; harmless if it fails.
	ewmh.WmNameSet(c.XUtil, win.Id, "savemyeyes-overlay")
	icccm.WmClassSet(c.XUtil, win.Id, &icccm.WmClass{
		Instance: "savemyeyes",
		Class:    "SaveMyEyes",
	})

	o := &OverlayWindow{win: win}
	if err := o.SetOpacity(opacity); err != nil {
		win.Destroy()
		return nil, err
	}

	win.Map()
	o.Raise()

	return o, nil
}

// ID returns the X window id of the surface.
func (o *OverlayWindow) ID() uint32 {
	return uint32(o.win.Id)
}

// SetOpacity updates the surface alpha in place, without recreating the
// window, so slider adjustments never flicker.
func (o *OverlayWindow) SetOpacity(opacity float64) error {
	alpha := uint(opacity * float64(0xffffffff))
	err := xprop.ChangeProp32(o.win.X, o.win.Id, opacityAtom, "CARDINAL", alpha)
	if err != nil {
		return fmt.Errorf("failed to set window opacity: %w", err)
	}
	return nil
}

// Raise restacks the surface above all siblings.
func (o *OverlayWindow) Raise() error {
	return xproto.ConfigureWindowChecked(
		o.win.X.Conn(),
		o.win.Id,
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove},
	).Check()
}

// Alive reports whether the window id still refers to a live X window.
// Returns false after an external actor destroys the surface.
func (o *OverlayWindow) Alive() bool {
	_, err := xproto.GetGeometry(o.win.X.Conn(), xproto.Drawable(o.win.Id)).Reply()
	return err == nil
}

// Destroy unmaps and destroys the surface. Safe to call on a window that
// was already destroyed externally.
func (o *OverlayWindow) Destroy() {
	o.win.Unmap()
	o.win.Destroy()
}
