// Package mcp exposes daemon control as MCP tools over stdio, so assistants
// can inspect and drive dimming through the running daemon's IPC socket.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/KDSPL/SaveMyEyes/internal/ipc"
)

const (
	ServerName    = "savemyeyes"
	ServerVersion = "0.1.0"
)

// controller is the slice of the IPC client the tools need; narrowed for
// tests.
type controller interface {
	Show() error
	Hide() error
	Toggle() (bool, error)
	SetOpacity(opacity float64) error
	SetMonitorOpacity(monitor string, opacity float64) error
	GetStatus() (*ipc.StatusData, error)
	GetMonitors() (*ipc.MonitorsData, error)
}

// Server is the MCP server bridging tools to the dimming daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	client    controller
}

// NewServer creates an MCP server talking to the local daemon socket.
func NewServer() *Server {
	return newServer(ipc.NewClient())
}

func newServer(client controller) *Server {
	s := &Server{client: client}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Get the current dimming status: visibility, active backend mode, opacity, multi-monitor state and daemon uptime.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_monitors",
		Description: "List all connected displays with their geometry and the opacity each would be dimmed at. Duplicate display names are disambiguated with a numeric suffix.",
	}, s.handleListMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_dimming",
		Description: "Enable screen dimming on the configured displays.",
	}, s.handleShowDimming)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hide_dimming",
		Description: "Disable screen dimming everywhere.",
	}, s.handleHideDimming)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_dimming",
		Description: "Toggle screen dimming on or off, returning the new state.",
	}, s.handleToggleDimming)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_opacity",
		Description: "Set the dimming opacity, globally or for one display by name. Values are clamped to 0.0-0.9. Changes apply immediately to active dimming.",
	}, s.handleSetOpacity)
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	status, err := s.client.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, err
	}

	return nil, GetStatusOutput{
		Visible:       status.Visible,
		Mode:          status.Mode,
		Enabled:       status.Enabled,
		Opacity:       status.Opacity,
		MultiMonitor:  status.MultiMonitor,
		SurfaceCount:  status.SurfaceCount,
		UptimeSeconds: status.UptimeSeconds,
	}, nil
}

func (s *Server) handleListMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListMonitorsInput) (*mcpsdk.CallToolResult, ListMonitorsOutput, error) {
	monitors, err := s.client.GetMonitors()
	if err != nil {
		return nil, ListMonitorsOutput{}, err
	}

	out := ListMonitorsOutput{Monitors: make([]MonitorEntry, len(monitors.Monitors))}
	for i, m := range monitors.Monitors {
		out.Monitors[i] = MonitorEntry{
			ID:      m.ID,
			Name:    m.Name,
			X:       m.X,
			Y:       m.Y,
			Width:   m.Width,
			Height:  m.Height,
			Opacity: m.Opacity,
		}
	}
	return nil, out, nil
}

func (s *Server) handleShowDimming(_ context.Context, _ *mcpsdk.CallToolRequest, _ ShowDimmingInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.client.Show(); err != nil {
		return nil, nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "Dimming enabled."}},
	}, nil, nil
}

func (s *Server) handleHideDimming(_ context.Context, _ *mcpsdk.CallToolRequest, _ HideDimmingInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.client.Hide(); err != nil {
		return nil, nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "Dimming disabled."}},
	}, nil, nil
}

func (s *Server) handleToggleDimming(_ context.Context, _ *mcpsdk.CallToolRequest, _ ToggleDimmingInput) (*mcpsdk.CallToolResult, ToggleDimmingOutput, error) {
	enabled, err := s.client.Toggle()
	if err != nil {
		return nil, ToggleDimmingOutput{}, err
	}
	return nil, ToggleDimmingOutput{Enabled: enabled}, nil
}

func (s *Server) handleSetOpacity(_ context.Context, _ *mcpsdk.CallToolRequest, args SetOpacityInput) (*mcpsdk.CallToolResult, any, error) {
	var err error
	if args.Monitor == "" {
		err = s.client.SetOpacity(args.Opacity)
	} else {
		err = s.client.SetMonitorOpacity(args.Monitor, args.Opacity)
	}
	if err != nil {
		return nil, nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "Opacity updated."}},
	}, nil, nil
}
