package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/KDSPL/SaveMyEyes/internal/dimmer"
	"github.com/KDSPL/SaveMyEyes/internal/runtimepath"
)

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	engine       *dimmer.Engine
	logger       *slog.Logger
	startTime    time.Time
	reloadChan   chan struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. Reload requests are forwarded to
// reloadChan without blocking.
func NewServer(engine *dimmer.Engine, reloadChan chan struct{}, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		socketPath: socketPath,
		engine:     engine,
		logger:     logger,
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

// Stop closes the listener and removes the socket file.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Error("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Error("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal IPC response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Error("failed to send IPC response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandShow:
		return s.handleShow()
	case CommandHide:
		return s.handleHide()
	case CommandToggle:
		return s.handleToggle()
	case CommandSetOpacity:
		return s.handleSetOpacity(req.Payload)
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetMonitors:
		return s.handleGetMonitors()
	case CommandReload:
		return s.handleReload()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleShow() *Response {
	s.engine.Store().SetEnabled(true)
	s.engine.Show()
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleHide() *Response {
	s.engine.Store().SetEnabled(false)
	s.engine.Hide()
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleToggle() *Response {
	enabled := s.engine.Toggle()
	resp, _ := NewOKResponse(ToggleData{Enabled: enabled})
	return resp
}

func (s *Server) handleSetOpacity(payload json.RawMessage) *Response {
	var p SetOpacityPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid set-opacity payload: %v", err))
	}

	// Out-of-range values are clamped, never rejected.
	if p.Monitor == "" {
		s.engine.SetOpacity(p.Opacity)
	} else {
		s.engine.SetMonitorOpacity(p.Monitor, p.Opacity)
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetStatus() *Response {
	snap := s.engine.Store().Snapshot()
	status := StatusData{
		Visible:       s.engine.IsVisible(),
		Mode:          s.engine.Mode().String(),
		Enabled:       snap.Enabled,
		Opacity:       snap.GlobalOpacity,
		MultiMonitor:  snap.MultiMonitor,
		SurfaceCount:  s.engine.SurfaceCount(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleGetMonitors() *Response {
	monitors := s.engine.Monitors()

	infos := make([]MonitorInfo, len(monitors))
	for i, m := range monitors {
		infos[i] = MonitorInfo{
			ID:      m.Display.ID,
			Name:    m.Display.Name,
			X:       m.Display.Bounds.X,
			Y:       m.Display.Bounds.Y,
			Width:   m.Display.Bounds.Width,
			Height:  m.Display.Bounds.Height,
			Opacity: m.Opacity,
		}
	}

	resp, _ := NewOKResponse(MonitorsData{Monitors: infos})
	return resp
}

func (s *Server) handleReload() *Response {
	s.logger.Info("IPC: received RELOAD command")

	// Notify the daemon via channel (non-blocking)
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) sendError(conn net.Conn, msg string) {
	resp := NewErrorResponse(msg)
	data, err := resp.Marshal()
	if err != nil {
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
