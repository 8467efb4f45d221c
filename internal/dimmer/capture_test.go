package dimmer

import (
	"errors"
	"testing"
)

type excludableSurface struct {
	fakeSurface
	calls int
	err   error
}

func (s *excludableSurface) ExcludeFromCapture() error {
	s.calls++
	return s.err
}

func TestExclusionPolicyAppliesFlag(t *testing.T) {
	p := NewExclusionPolicy(testLogger(), false)
	s := &excludableSurface{}

	p.Exclude(s)

	if s.calls != 1 {
		t.Errorf("ExcludeFromCapture called %d times, want 1", s.calls)
	}
}

func TestExclusionPolicyInertWhenCaptureAllowed(t *testing.T) {
	p := NewExclusionPolicy(testLogger(), true)
	s := &excludableSurface{}

	p.Exclude(s)

	if s.calls != 0 {
		t.Errorf("ExcludeFromCapture called %d times with capture allowed, want 0", s.calls)
	}
}

func TestExclusionPolicyFailureIsNonFatal(t *testing.T) {
	p := NewExclusionPolicy(testLogger(), false)
	s := &excludableSurface{err: errors.New("affinity rejected")}

	// Must not panic and must not propagate the error.
	p.Exclude(s)
	p.Exclude(s)

	if s.calls != 2 {
		t.Errorf("ExcludeFromCapture called %d times, want 2", s.calls)
	}
}

func TestExclusionPolicyToleratesUnsupportedSurface(t *testing.T) {
	p := NewExclusionPolicy(testLogger(), false)
	s := &fakeSurface{alive: true}

	// Plain surfaces without the affinity flag are skipped quietly.
	p.Exclude(s)
	p.Exclude(s)
}
