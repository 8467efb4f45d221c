package mcp

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	Visible       bool    `json:"visible"`
	Mode          string  `json:"mode"`
	Enabled       bool    `json:"enabled"`
	Opacity       float64 `json:"opacity"`
	MultiMonitor  bool    `json:"multi_monitor"`
	SurfaceCount  int     `json:"surface_count"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// ListMonitorsInput is the input for the list_monitors tool.
type ListMonitorsInput struct{}

// MonitorEntry describes one connected display.
type MonitorEntry struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Opacity float64 `json:"opacity"`
}

// ListMonitorsOutput is the output for the list_monitors tool.
type ListMonitorsOutput struct {
	Monitors []MonitorEntry `json:"monitors"`
}

// ShowDimmingInput is the input for the show_dimming tool.
type ShowDimmingInput struct{}

// HideDimmingInput is the input for the hide_dimming tool.
type HideDimmingInput struct{}

// ToggleDimmingInput is the input for the toggle_dimming tool.
type ToggleDimmingInput struct{}

// ToggleDimmingOutput is the output for the toggle_dimming tool.
type ToggleDimmingOutput struct {
	Enabled bool `json:"enabled"`
}

// SetOpacityInput is the input for the set_opacity tool.
type SetOpacityInput struct {
	Opacity float64 `json:"opacity" jsonschema:"required,Dimming opacity from 0.0 (off) to 0.9. Out-of-range values are clamped."`
	Monitor string  `json:"monitor,omitempty" jsonschema:"Optional display name (from list_monitors) to set a per-display override. Omit to set the global opacity."`
}
