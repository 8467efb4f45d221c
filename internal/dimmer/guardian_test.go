package dimmer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestReassertClock(t *testing.T) {
	var c ReassertClock

	if _, ok := c.Elapsed(); ok {
		t.Fatal("fresh clock should report nothing pending")
	}

	c.Touch()
	elapsed, ok := c.Elapsed()
	if !ok {
		t.Fatal("touched clock should report pending")
	}
	if elapsed > time.Second {
		t.Errorf("elapsed = %v immediately after touch", elapsed)
	}

	c.Clear()
	if _, ok := c.Elapsed(); ok {
		t.Fatal("cleared clock should report nothing pending")
	}
}

func TestGuardianDebouncesBurstIntoOneReassert(t *testing.T) {
	var clock ReassertClock
	var reasserts, sweeps atomic.Int64

	g := NewGuardian(GuardianConfig{
		Poll:          20 * time.Millisecond,
		LivenessEvery: 1000, // keep liveness out of this test
		Logger:        testLogger(),
	}, &clock,
		func() { reasserts.Add(1) },
		func() { sweeps.Add(1) },
	)
	go g.Run()
	defer func() {
		g.Stop()
		<-g.Done()
	}()

	// A burst of foreground changes: each touch resets the debounce timer,
	// so nothing fires while the stream is active.
	for i := 0; i < 6; i++ {
		clock.Touch()
		time.Sleep(50 * time.Millisecond)
	}
	if n := reasserts.Load(); n != 0 {
		t.Fatalf("%d reasserts during active burst, want 0", n)
	}

	// Stream goes quiet; exactly one re-assertion after the window.
	time.Sleep(DebounceWindow + 200*time.Millisecond)
	if n := reasserts.Load(); n != 1 {
		t.Fatalf("%d reasserts after quiet period, want 1", n)
	}

	// Still quiet: the clock was cleared, no further firing.
	time.Sleep(200 * time.Millisecond)
	if n := reasserts.Load(); n != 1 {
		t.Fatalf("%d reasserts after extended quiet, want 1", n)
	}
}

func TestGuardianLivenessCadence(t *testing.T) {
	var clock ReassertClock
	var sweeps atomic.Int64

	g := NewGuardian(GuardianConfig{
		Poll:          5 * time.Millisecond,
		LivenessEvery: 3,
		Logger:        testLogger(),
	}, &clock,
		func() {},
		func() { sweeps.Add(1) },
	)
	go g.Run()
	defer func() {
		g.Stop()
		<-g.Done()
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sweeps.Load() >= 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("only %d liveness sweeps observed", sweeps.Load())
}

func TestGuardianStopIsIdempotent(t *testing.T) {
	var clock ReassertClock
	g := NewGuardian(GuardianConfig{Poll: 5 * time.Millisecond, Logger: testLogger()},
		&clock, func() {}, func() {})
	go g.Run()

	g.Stop()
	g.Stop()

	select {
	case <-g.Done():
	case <-time.After(time.Second):
		t.Fatal("guardian did not exit after Stop")
	}
}
