package dimmer

import (
	"log/slog"
	"sync"

	"github.com/KDSPL/SaveMyEyes/internal/platform"
)

// captureExcluder is implemented by surfaces on platforms that offer a
// per-surface "exclude from capture" display-affinity flag.
type captureExcluder interface {
	ExcludeFromCapture() error
}

// CapturePolicy marks dimming surfaces as excluded from screen-capture
// pipelines. Failure is never fatal: the surface stays visible and dimming
// still functions, just in a degraded-capture-safety state.
type CapturePolicy interface {
	Exclude(s platform.Surface)
}

// ExclusionPolicy is the default capture policy. When the surface exposes a
// native capture-affinity flag it is applied at creation time and re-applied
// on every watchdog recreation. On platforms without a per-surface flag
// (X11 among them) the policy degrades to a one-time log line; capture
// safety then derives entirely from preferring the compositor effect.
type ExclusionPolicy struct {
	logger       *slog.Logger
	allowCapture bool
	warnOnce     sync.Once
}

// NewExclusionPolicy creates a capture policy. When allowCapture is true the
// policy is inert and captures will show the dimming.
func NewExclusionPolicy(logger *slog.Logger, allowCapture bool) *ExclusionPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExclusionPolicy{logger: logger, allowCapture: allowCapture}
}

// Exclude applies the capture-affinity flag to one surface.
func (p *ExclusionPolicy) Exclude(s platform.Surface) {
	if p.allowCapture {
		return
	}

	excluder, ok := s.(captureExcluder)
	if !ok {
		p.warnOnce.Do(func() {
			p.logger.Info("platform has no per-surface capture exclusion; overlay dimming will appear in captures")
		})
		return
	}

	if err := excluder.ExcludeFromCapture(); err != nil {
		p.logger.Warn("failed to exclude surface from capture; dimming continues degraded",
			"surface", s.ID(), "error", err)
	}
}
