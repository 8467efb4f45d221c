package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WatchForegroundChanges invokes cb whenever a different window takes the
// foreground (_NET_ACTIVE_WINDOW changes on the root window). The callback
// runs on the X event loop goroutine and must not touch surfaces directly;
// it is expected to only stamp a timestamp.
func (c *Connection) WatchForegroundChanges(cb func()) error {
	activeAtom, err := xprop.Atm(c.XUtil, "_NET_ACTIVE_WINDOW")
	if err != nil {
		return fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}

	if err := xwindow.New(c.XUtil, c.Root).Listen(xproto.EventMaskPropertyChange); err != nil {
		return fmt.Errorf("failed to listen on root window: %w", err)
	}

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		if ev.Atom == activeAtom {
			cb()
		}
	}).Connect(c.XUtil, c.Root)

	return nil
}

// WatchScreenChanges invokes cb whenever the display configuration changes
// (monitor connect/disconnect, resolution change). The callback runs on the
// X event loop goroutine.
func (c *Connection) WatchScreenChanges(cb func()) error {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return fmt.Errorf("randr init failed: %w", err)
	}

	err := randr.SelectInputChecked(c.XUtil.Conn(), c.Root, randr.NotifyMaskScreenChange).Check()
	if err != nil {
		return fmt.Errorf("failed to select randr input: %w", err)
	}

	// RandR events are not dispatched through the typed xevent callbacks,
	// so hook the raw event stream and match on the concrete type.
	xevent.HookFun(func(xu *xgbutil.XUtil, event interface{}) bool {
		if _, ok := event.(randr.ScreenChangeNotifyEvent); ok {
			cb()
		}
		return true
	}).Connect(c.XUtil)

	return nil
}
