package dimmer

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// DebounceWindow is how long the foreground-event stream must stay quiet
// before top-most placement is re-asserted. Re-asserting immediately on
// every foreground change fights other always-on-top windows and visibly
// flickers; waiting for the stream to settle lets the window manager finish
// first.
const DebounceWindow = 500 * time.Millisecond

const (
	defaultGuardianPoll = 200 * time.Millisecond
	// Surface liveness is checked every N polls (~5s at the default poll).
	defaultLivenessEvery = 25
)

var clockEpoch = time.Now()

// ReassertClock records the most recent foreground-change event as a
// monotonic offset from process start. Written by the platform notification
// callback; read and cleared by the watchdog. Zero means no pending
// re-assertion.
type ReassertClock struct {
	v atomic.Int64
}

// Touch stamps the clock with the current time. Each call resets the
// debounce timer.
func (c *ReassertClock) Touch() {
	c.v.Store(int64(time.Since(clockEpoch)) + 1)
}

// Clear resets the clock to "no pending re-assertion".
func (c *ReassertClock) Clear() {
	c.v.Store(0)
}

// Elapsed returns how long ago the clock was last touched. ok is false when
// no re-assertion is pending.
func (c *ReassertClock) Elapsed() (elapsed time.Duration, ok bool) {
	v := c.v.Load()
	if v == 0 {
		return 0, false
	}
	return time.Since(clockEpoch) - time.Duration(v-1), true
}

// GuardianConfig holds configuration for the watchdog.
type GuardianConfig struct {
	Poll          time.Duration
	LivenessEvery int
	Logger        *slog.Logger
}

// Guardian is the background watchdog for one overlay session. On each poll
// it re-asserts top-most placement once the foreground-event stream has been
// quiet for the debounce window, and periodically requests a liveness sweep
// of the tracked surfaces. It never touches native handles itself: both
// actions are callbacks that marshal work onto the surface-owning loop.
type Guardian struct {
	clock         *ReassertClock
	poll          time.Duration
	livenessEvery int
	logger        *slog.Logger

	reassert      func()
	checkLiveness func()

	stop chan struct{}
	done chan struct{}
}

// NewGuardian creates a watchdog. reassert and checkLiveness must be safe to
// call from the watchdog goroutine; they are expected to submit work to the
// engine loop rather than act directly.
func NewGuardian(cfg GuardianConfig, clock *ReassertClock, reassert, checkLiveness func()) *Guardian {
	poll := cfg.Poll
	if poll <= 0 {
		poll = defaultGuardianPoll
	}
	livenessEvery := cfg.LivenessEvery
	if livenessEvery <= 0 {
		livenessEvery = defaultLivenessEvery
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Guardian{
		clock:         clock,
		poll:          poll,
		livenessEvery: livenessEvery,
		logger:        logger,
		reassert:      reassert,
		checkLiveness: checkLiveness,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Run executes the watchdog loop until Stop is called. Blocks; run it on a
// dedicated goroutine.
func (g *Guardian) Run() {
	defer close(g.done)

	ticker := time.NewTicker(g.poll)
	defer ticker.Stop()

	g.logger.Debug("z-order guardian started", "poll", g.poll, "debounce", DebounceWindow)

	polls := 0
	for {
		select {
		case <-g.stop:
			g.logger.Debug("z-order guardian stopped")
			return
		case <-ticker.C:
			if elapsed, pending := g.clock.Elapsed(); pending && elapsed >= DebounceWindow {
				// The window manager has settled; safe to re-top now.
				g.clock.Clear()
				g.reassert()
			}

			polls++
			if polls >= g.livenessEvery {
				polls = 0
				g.checkLiveness()
			}
		}
	}
}

// Stop signals the watchdog to exit. Does not wait: the engine loop may be
// the caller and the watchdog may concurrently be submitting work to it.
func (g *Guardian) Stop() {
	select {
	case <-g.stop:
	default:
		close(g.stop)
	}
}

// Done is closed when the watchdog goroutine has exited.
func (g *Guardian) Done() <-chan struct{} {
	return g.done
}
