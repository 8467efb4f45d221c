package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/KDSPL/SaveMyEyes/internal/ipc"
)

type fakeController struct {
	shows, hides int
	toggled      bool
	opacity      float64
	monitor      string
	status       *ipc.StatusData
	monitors     *ipc.MonitorsData
	err          error
}

func (f *fakeController) Show() error {
	f.shows++
	return f.err
}

func (f *fakeController) Hide() error {
	f.hides++
	return f.err
}

func (f *fakeController) Toggle() (bool, error) {
	f.toggled = !f.toggled
	return f.toggled, f.err
}

func (f *fakeController) SetOpacity(opacity float64) error {
	f.opacity = opacity
	f.monitor = ""
	return f.err
}

func (f *fakeController) SetMonitorOpacity(monitor string, opacity float64) error {
	f.opacity = opacity
	f.monitor = monitor
	return f.err
}

func (f *fakeController) GetStatus() (*ipc.StatusData, error) {
	return f.status, f.err
}

func (f *fakeController) GetMonitors() (*ipc.MonitorsData, error) {
	return f.monitors, f.err
}

func TestHandleGetStatus(t *testing.T) {
	fake := &fakeController{status: &ipc.StatusData{
		Visible:      true,
		Mode:         "overlay",
		Opacity:      0.4,
		SurfaceCount: 2,
	}}
	s := newServer(fake)

	_, out, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{})
	if err != nil {
		t.Fatalf("handleGetStatus: %v", err)
	}
	if !out.Visible || out.Mode != "overlay" || out.Opacity != 0.4 || out.SurfaceCount != 2 {
		t.Errorf("output = %+v", out)
	}
}

func TestHandleListMonitors(t *testing.T) {
	fake := &fakeController{monitors: &ipc.MonitorsData{Monitors: []ipc.MonitorInfo{
		{ID: 0, Name: "eDP-1", Width: 1920, Height: 1080, Opacity: 0.3},
		{ID: 1, Name: "Display (2)", X: 1920, Width: 2560, Height: 1440, Opacity: 0.6},
	}}}
	s := newServer(fake)

	_, out, err := s.handleListMonitors(context.Background(), nil, ListMonitorsInput{})
	if err != nil {
		t.Fatalf("handleListMonitors: %v", err)
	}
	if len(out.Monitors) != 2 {
		t.Fatalf("got %d monitors, want 2", len(out.Monitors))
	}
	if out.Monitors[1].Name != "Display (2)" || out.Monitors[1].Opacity != 0.6 {
		t.Errorf("monitor[1] = %+v", out.Monitors[1])
	}
}

func TestHandleSetOpacityRoutesMonitor(t *testing.T) {
	fake := &fakeController{}
	s := newServer(fake)

	if _, _, err := s.handleSetOpacity(context.Background(), nil, SetOpacityInput{Opacity: 0.5}); err != nil {
		t.Fatalf("global set: %v", err)
	}
	if fake.opacity != 0.5 || fake.monitor != "" {
		t.Errorf("global set recorded opacity=%v monitor=%q", fake.opacity, fake.monitor)
	}

	if _, _, err := s.handleSetOpacity(context.Background(), nil, SetOpacityInput{Opacity: 0.7, Monitor: "HDMI-1"}); err != nil {
		t.Fatalf("monitor set: %v", err)
	}
	if fake.opacity != 0.7 || fake.monitor != "HDMI-1" {
		t.Errorf("monitor set recorded opacity=%v monitor=%q", fake.opacity, fake.monitor)
	}
}

func TestHandleShowHideToggle(t *testing.T) {
	fake := &fakeController{}
	s := newServer(fake)

	if _, _, err := s.handleShowDimming(context.Background(), nil, ShowDimmingInput{}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.handleHideDimming(context.Background(), nil, HideDimmingInput{}); err != nil {
		t.Fatal(err)
	}
	if fake.shows != 1 || fake.hides != 1 {
		t.Errorf("shows=%d hides=%d, want 1 and 1", fake.shows, fake.hides)
	}

	_, out, err := s.handleToggleDimming(context.Background(), nil, ToggleDimmingInput{})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Enabled {
		t.Error("first toggle should report enabled")
	}
}

func TestHandlersSurfaceDaemonErrors(t *testing.T) {
	fake := &fakeController{err: errors.New("daemon not running")}
	s := newServer(fake)

	if _, _, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{}); err == nil {
		t.Error("expected error from get_status")
	}
	if _, _, err := s.handleShowDimming(context.Background(), nil, ShowDimmingInput{}); err == nil {
		t.Error("expected error from show_dimming")
	}
}
