package dimmer

import "sync"

// MinOpacity and MaxOpacity bound every opacity value in the system. The
// upper bound is deliberately below 1.0 so user input can never drive a
// display fully black.
const (
	MinOpacity = 0.0
	MaxOpacity = 0.9
)

// Snapshot is an immutable copy of the dimming state. PerMonitor is keyed
// by de-duplicated display name, which is the only identity stable across
// hot-plug events.
type Snapshot struct {
	Enabled       bool
	GlobalOpacity float64
	MultiMonitor  bool
	PerMonitor    map[string]float64

	// LastOpacity remembers the most recent positive global opacity so
	// enabling dimming at opacity zero restores a visible level.
	LastOpacity float64
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.PerMonitor = make(map[string]float64, len(s.PerMonitor))
	for name, opacity := range s.PerMonitor {
		out.PerMonitor[name] = opacity
	}
	return out
}

// Persister receives every state update for write-through persistence.
// Implementations must not call back into the store.
type Persister func(Snapshot)

// Store is the single source of truth for dimming state. All mutations go
// through its update methods, which clamp opacity inputs and delegate
// persistence. The lock is only held for snapshot copy-in/copy-out, never
// across a native API call.
type Store struct {
	mu      sync.Mutex
	snap    Snapshot
	persist Persister
}

// NewStore creates a store seeded with the given state. Opacity values are
// clamped on the way in. persist may be nil.
func NewStore(initial Snapshot, persist Persister) *Store {
	s := &Store{persist: persist}
	s.snap = sanitize(initial)
	return s
}

// Snapshot returns an immutable copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// Update replaces the whole state and returns the effective snapshot after
// clamping. The persister is invoked outside the lock.
func (s *Store) Update(snap Snapshot) Snapshot {
	next := sanitize(snap)

	s.mu.Lock()
	s.snap = next
	out := s.snap.clone()
	s.mu.Unlock()

	s.notify(out)
	return out
}

// SetEnabled flips the enabled flag. Enabling with a zero global opacity
// restores the last positive opacity so the change is visible.
func (s *Store) SetEnabled(enabled bool) Snapshot {
	return s.mutate(func(snap *Snapshot) {
		snap.Enabled = enabled
		if enabled && snap.GlobalOpacity == 0 && snap.LastOpacity > 0 {
			snap.GlobalOpacity = snap.LastOpacity
		}
	})
}

// SetGlobalOpacity updates the global opacity, clamped to the valid range.
func (s *Store) SetGlobalOpacity(opacity float64) Snapshot {
	return s.mutate(func(snap *Snapshot) {
		snap.GlobalOpacity = ClampOpacity(opacity)
	})
}

// SetMonitorOpacity records a per-monitor override keyed by de-duplicated
// display name.
func (s *Store) SetMonitorOpacity(name string, opacity float64) Snapshot {
	return s.mutate(func(snap *Snapshot) {
		snap.PerMonitor[name] = ClampOpacity(opacity)
	})
}

// SetMultiMonitor flips multi-monitor mode.
func (s *Store) SetMultiMonitor(multi bool) Snapshot {
	return s.mutate(func(snap *Snapshot) {
		snap.MultiMonitor = multi
	})
}

func (s *Store) mutate(fn func(*Snapshot)) Snapshot {
	s.mu.Lock()
	next := s.snap.clone()
	fn(&next)
	if next.GlobalOpacity > 0 {
		next.LastOpacity = next.GlobalOpacity
	}
	s.snap = next
	out := next.clone()
	s.mu.Unlock()

	s.notify(out)
	return out
}

func (s *Store) notify(snap Snapshot) {
	if s.persist != nil {
		s.persist(snap)
	}
}

// ClampOpacity clamps an opacity value to [MinOpacity, MaxOpacity].
// Out-of-range values are clamped, never rejected.
func ClampOpacity(v float64) float64 {
	if v < MinOpacity {
		return MinOpacity
	}
	if v > MaxOpacity {
		return MaxOpacity
	}
	return v
}

func sanitize(snap Snapshot) Snapshot {
	out := snap.clone()
	out.GlobalOpacity = ClampOpacity(out.GlobalOpacity)
	out.LastOpacity = ClampOpacity(out.LastOpacity)
	for name, opacity := range out.PerMonitor {
		out.PerMonitor[name] = ClampOpacity(opacity)
	}
	if out.GlobalOpacity > 0 {
		out.LastOpacity = out.GlobalOpacity
	}
	return out
}
