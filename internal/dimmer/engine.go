package dimmer

import (
	"context"
	"log/slog"

	"github.com/KDSPL/SaveMyEyes/internal/platform"
)

// Mode identifies which dimming backend is currently active. Exactly one is
// active at a time; transitions happen only inside show/hide on the engine
// loop, never concurrently.
type Mode int

const (
	ModeInactive Mode = iota
	ModeCompositor
	ModeOverlay
)

func (m Mode) String() string {
	switch m {
	case ModeCompositor:
		return "compositor"
	case ModeOverlay:
		return "overlay"
	default:
		return "inactive"
	}
}

// MinBrightness is the floor for the compositor brightness factor. Never
// driving the output below 5% avoids a pure-black, unrecoverable display.
const MinBrightness = 0.05

// brightnessFor converts an opacity into the multiplicative brightness
// factor applied to the display's output color pipeline.
func brightnessFor(opacity float64) float64 {
	b := 1.0 - ClampOpacity(opacity)
	if b < MinBrightness {
		return MinBrightness
	}
	if b > 1.0 {
		return 1.0
	}
	return b
}

// dimSurface tracks one overlay surface and the opacity it was created or
// last updated with. Ownership is exclusive to the engine loop.
type dimSurface struct {
	display platform.Display
	surface platform.Surface
	opacity float64
}

// target pairs a display with its resolved opacity for one show session.
type target struct {
	display platform.Display
	opacity float64
}

// EngineConfig holds the engine's collaborators.
type EngineConfig struct {
	Backend platform.Backend
	Store   *Store
	Capture CapturePolicy
	Logger  *slog.Logger

	// ForceOverlay skips the compositor-effect probe so every show uses
	// overlay surfaces. Set when captures should include the dimming, since
	// the compositor effect is invisible to capture by construction.
	ForceOverlay bool

	// Guardian tuning; zero values use production defaults.
	Guardian GuardianConfig
}

// Engine is the multi-monitor dimming engine. One goroutine (the engine
// loop, started with Run) owns every surface and compositor-effect
// mutation; public methods marshal their work onto that loop. The watchdog
// and platform notification callbacks never touch surfaces directly.
type Engine struct {
	backend      platform.Backend
	store        *Store
	capture      CapturePolicy
	logger       *slog.Logger
	forceOverlay bool
	guardianCfg  GuardianConfig

	clock ReassertClock
	tasks chan func()

	// Everything below is owned by the engine loop.
	mode     Mode
	surfaces []*dimSurface
	displays []platform.Display
	guardian *Guardian
}

// NewEngine creates a dimming engine. Run must be called before any other
// method.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	capture := cfg.Capture
	if capture == nil {
		capture = NewExclusionPolicy(logger, false)
	}
	guardianCfg := cfg.Guardian
	guardianCfg.Logger = logger

	return &Engine{
		backend:      cfg.Backend,
		store:        cfg.Store,
		capture:      capture,
		logger:       logger,
		forceOverlay: cfg.ForceOverlay,
		guardianCfg:  guardianCfg,
		tasks:        make(chan func(), 16),
	}
}

// Store returns the opacity state store backing the engine.
func (e *Engine) Store() *Store {
	return e.store
}

// Run executes the engine loop until the context is cancelled. All dimming
// is cleared on exit. Blocks; run it on a dedicated goroutine.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			e.hideNow()
			return
		case fn := <-e.tasks:
			fn()
		}
	}
}

// call runs fn on the engine loop and waits for it to complete.
func (e *Engine) call(fn func()) {
	done := make(chan struct{})
	e.tasks <- func() {
		fn()
		close(done)
	}
	<-done
}

// submit queues fn on the engine loop without waiting. Used by the watchdog
// so it can never deadlock against the loop; a dropped request is retried
// on the watchdog's next tick.
func (e *Engine) submit(fn func()) {
	select {
	case e.tasks <- fn:
	default:
	}
}

// Show applies dimming per the current state snapshot. An in-progress
// session is torn down first, so every Show is implicitly preceded by a
// Hide of the previous session.
func (e *Engine) Show() {
	snap := e.store.Snapshot()
	e.call(func() { e.showNow(snap) })
}

// Hide clears all dimming. Idempotent: calling it twice, or with nothing
// active, is a no-op.
func (e *Engine) Hide() {
	e.call(func() { e.hideNow() })
}

// Toggle flips the enabled flag and applies it, returning the new state.
func (e *Engine) Toggle() bool {
	enabled := !e.store.Snapshot().Enabled
	snap := e.store.SetEnabled(enabled)
	e.call(func() {
		if enabled {
			e.showNow(snap)
		} else {
			e.hideNow()
		}
	})
	return enabled
}

// SetOpacity updates the global opacity and applies it in place on the
// active session without recreating surfaces.
func (e *Engine) SetOpacity(opacity float64) {
	snap := e.store.SetGlobalOpacity(opacity)
	e.call(func() { e.applyOpacityNow(snap) })
}

// SetMonitorOpacity records a per-monitor override (keyed by de-duplicated
// display name) and applies it in place.
func (e *Engine) SetMonitorOpacity(name string, opacity float64) {
	snap := e.store.SetMonitorOpacity(name, opacity)
	e.call(func() { e.applyOpacityNow(snap) })
}

// Refresh re-applies the current state: hide followed by show when enabled.
// Used after a display-configuration change and after config reloads.
func (e *Engine) Refresh() {
	snap := e.store.Snapshot()
	e.call(func() {
		e.hideNow()
		if snap.Enabled {
			e.showNow(snap)
		}
	})
}

// IsVisible reports whether any dimming is currently applied.
func (e *Engine) IsVisible() bool {
	var visible bool
	e.call(func() { visible = e.mode != ModeInactive })
	return visible
}

// Mode returns the active backend mode.
func (e *Engine) Mode() Mode {
	var m Mode
	e.call(func() { m = e.mode })
	return m
}

// SurfaceCount returns the number of live overlay surfaces (0 in
// compositor mode).
func (e *Engine) SurfaceCount() int {
	var n int
	e.call(func() { n = len(e.surfaces) })
	return n
}

// MonitorNames enumerates all connected displays and returns their
// de-duplicated names in display order, for building per-display UI
// controls. All displays are listed even when only the primary is dimmed.
func (e *Engine) MonitorNames() []string {
	var names []string
	e.call(func() {
		displays := e.enumerate()
		names = make([]string, len(displays))
		for i, d := range displays {
			names[i] = d.Name
		}
	})
	return names
}

// Monitors enumerates all connected displays with de-duplicated names and
// the opacity each would be dimmed at under the current state.
func (e *Engine) Monitors() []MonitorState {
	snap := e.store.Snapshot()
	var out []MonitorState
	e.call(func() {
		displays := e.enumerate()
		out = make([]MonitorState, len(displays))
		for i, d := range displays {
			out[i] = MonitorState{Display: d, Opacity: opacityFor(d, snap)}
		}
	})
	return out
}

// MonitorState pairs a display with its effective opacity.
type MonitorState struct {
	Display platform.Display
	Opacity float64
}

// MonitorIndexAt returns the index of the display containing the point,
// falling back to 0. Used to route keyboard adjustments to the display
// under the cursor in multi-monitor mode.
func (e *Engine) MonitorIndexAt(x, y int) int {
	var idx int
	e.call(func() { idx = IndexAtPoint(e.enumerate(), x, y) })
	return idx
}

// NoteForegroundChange records a foreground-change event. Called from the
// platform notification callback; only stamps the re-assertion clock and
// never touches surfaces, so it is safe from any goroutine.
func (e *Engine) NoteForegroundChange() {
	e.clock.Touch()
}

// DisplayConfigurationChanged reacts to a monitor connect/disconnect: the
// display list is re-enumerated and, when dimming is enabled, the session
// is fully rebuilt. Fire-and-forget; safe from the X event loop goroutine.
func (e *Engine) DisplayConfigurationChanged() {
	snap := e.store.Snapshot()
	e.submit(func() {
		e.logger.Info("display configuration changed; refreshing")
		e.hideNow()
		if snap.Enabled {
			e.showNow(snap)
		} else {
			e.displays = e.enumerate()
		}
	})
}

// ---- engine-loop internals ----

// enumerate lists displays fresh and de-duplicates their names. Never
// cached across calls: indices are not stable across hot-plug events.
func (e *Engine) enumerate() []platform.Display {
	displays, err := e.backend.Displays()
	if err != nil {
		e.logger.Error("display enumeration failed", "error", err)
		return nil
	}
	return DedupeNames(displays)
}

// targetsFor resolves which displays get dimmed and at what opacity.
// Single-monitor mode dims only the primary (index 0); multi-monitor mode
// dims every display at its per-monitor override or the global fallback.
func targetsFor(displays []platform.Display, snap Snapshot) []target {
	if len(displays) == 0 {
		return nil
	}
	if !snap.MultiMonitor {
		return []target{{display: displays[0], opacity: snap.GlobalOpacity}}
	}
	targets := make([]target, len(displays))
	for i, d := range displays {
		targets[i] = target{display: d, opacity: opacityFor(d, snap)}
	}
	return targets
}

func (e *Engine) showNow(snap Snapshot) {
	e.hideNow()
	if !snap.Enabled {
		return
	}

	displays := e.enumerate()
	e.displays = displays
	if len(displays) == 0 {
		// State stays enabled so a display reconnect re-applies dimming.
		e.logger.Warn("no active displays; dimming deferred until a display connects")
		return
	}

	targets := targetsFor(displays, snap)

	if !e.forceOverlay && e.applyCompositor(targets) {
		e.mode = ModeCompositor
		e.logger.Info("dimming shown", "mode", e.mode, "displays", len(targets))
		return
	}

	e.showOverlays(targets)
}

// applyCompositor tries the compositor-effect path on every target. Any
// failure rolls the whole attempt back; the caller falls back to overlay
// surfaces. Never surfaced to the user as an error.
func (e *Engine) applyCompositor(targets []target) bool {
	for _, t := range targets {
		if err := e.backend.ApplyBrightness(t.display.ID, brightnessFor(t.opacity)); err != nil {
			e.logger.Info("compositor effect unavailable; falling back to overlay surfaces",
				"display", t.display.Name, "error", err)
			if restoreErr := e.backend.RestoreBrightness(); restoreErr != nil {
				e.logger.Warn("failed to restore brightness after partial apply", "error", restoreErr)
			}
			return false
		}
	}
	return true
}

func (e *Engine) showOverlays(targets []target) {
	for _, t := range targets {
		s, err := e.backend.CreateSurface(t.display, t.opacity)
		if err != nil {
			// Skip this monitor, keep dimming the rest.
			e.logger.Error("overlay surface creation failed; skipping display",
				"display", t.display.Name, "error", err)
			continue
		}
		e.capture.Exclude(s)
		e.surfaces = append(e.surfaces, &dimSurface{
			display: t.display,
			surface: s,
			opacity: t.opacity,
		})
	}

	if len(e.surfaces) == 0 {
		return
	}

	e.mode = ModeOverlay
	e.startGuardian()
	e.logger.Info("dimming shown", "mode", e.mode, "surfaces", len(e.surfaces))
}

func (e *Engine) hideNow() {
	switch e.mode {
	case ModeCompositor:
		if err := e.backend.RestoreBrightness(); err != nil {
			e.logger.Warn("failed to restore brightness", "error", err)
		}
	case ModeOverlay:
		e.stopGuardian()
		for _, ds := range e.surfaces {
			// Tolerates surfaces already destroyed externally.
			ds.surface.Destroy()
		}
		e.surfaces = nil
	default:
		return
	}
	e.mode = ModeInactive
	e.clock.Clear()
	e.logger.Info("dimming hidden")
}

// applyOpacityNow re-resolves per-display opacity from the snapshot and
// applies it to the active session in place. Overlay surfaces keep their
// native window and only change alpha, so slider adjustments never flicker.
func (e *Engine) applyOpacityNow(snap Snapshot) {
	switch e.mode {
	case ModeCompositor:
		for _, t := range targetsFor(e.displays, snap) {
			if err := e.backend.ApplyBrightness(t.display.ID, brightnessFor(t.opacity)); err != nil {
				e.logger.Warn("failed to update brightness", "display", t.display.Name, "error", err)
			}
		}
	case ModeOverlay:
		for _, ds := range e.surfaces {
			opacity := opacityFor(ds.display, snap)
			if !snap.MultiMonitor {
				opacity = snap.GlobalOpacity
			}
			if err := ds.surface.SetOpacity(opacity); err != nil {
				e.logger.Warn("failed to update surface opacity", "surface", ds.surface.ID(), "error", err)
				continue
			}
			ds.opacity = opacity
		}
		// Explicit user action: re-top immediately rather than debounced.
		e.reassertNow()
	}
}

func (e *Engine) startGuardian() {
	g := NewGuardian(e.guardianCfg, &e.clock,
		func() { e.submit(e.reassertNow) },
		func() { e.submit(e.checkSurfacesNow) },
	)
	e.guardian = g
	go g.Run()
}

func (e *Engine) stopGuardian() {
	if e.guardian != nil {
		e.guardian.Stop()
		e.guardian = nil
	}
}

// reassertNow restacks every live surface into the top z-band.
func (e *Engine) reassertNow() {
	for _, ds := range e.surfaces {
		if !ds.surface.Alive() {
			continue
		}
		if err := ds.surface.Raise(); err != nil {
			e.logger.Debug("failed to raise surface", "surface", ds.surface.ID(), "error", err)
		}
	}
}

// checkSurfacesNow is the watchdog's liveness sweep: when any tracked
// surface has been destroyed by an external actor the whole session is torn
// down and recreated from the current state snapshot, so each surviving
// monitor comes back at the opacity it had before.
func (e *Engine) checkSurfacesNow() {
	if e.mode != ModeOverlay {
		return
	}
	for _, ds := range e.surfaces {
		if !ds.surface.Alive() {
			e.logger.Warn("overlay surface destroyed externally; recreating session",
				"surface", ds.surface.ID(), "display", ds.display.Name)
			e.showNow(e.store.Snapshot())
			return
		}
	}
}
