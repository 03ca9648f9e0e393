package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/tfufuu/nova/internal/bridge"
	"github.com/tfufuu/nova/internal/logger"
)

// SocketServer accepts control-surface connections and turns their requests
// into bridge intents. It never touches core state directly.
type SocketServer struct {
	mu         sync.Mutex
	listener   net.Listener
	socketPath string
	bridge     *bridge.Bridge
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	running    bool
}

// NewSocketServer creates a control server over the given bridge.
func NewSocketServer(br *bridge.Bridge) (*SocketServer, error) {
	socketPath, err := SocketPath()
	if err != nil {
		return nil, fmt.Errorf("resolve socket path: %w", err)
	}
	return &SocketServer{socketPath: socketPath, bridge: br}, nil
}

// SocketPath returns the control socket location, preferring
// $XDG_RUNTIME_DIR.
func SocketPath() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "nova", "control.sock"), nil
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("nova-%d", os.Getuid()), "control.sock"), nil
}

// Start begins accepting connections.
func (s *SocketServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0700); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("set socket permissions: %w", err)
	}

	s.listener = listener
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.acceptConnections(ctx)

	logger.Infof("Control socket listening at %s", s.socketPath)
	return nil
}

// Stop shuts the server down and removes the socket file.
func (s *SocketServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.RemoveAll(s.socketPath)
	logger.Info("Control socket stopped")
}

func (s *SocketServer) acceptConnections(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Errorf("Control socket accept failed: %v", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	logger.Debug("SocketServer.handleConnection: new control connection")

	for {
		var req Request
		if err := readFrame(conn, &req); err != nil {
			logger.Debugf("Control connection closed: %v", err)
			return
		}
		resp := s.handleRequest(ctx, req)
		if err := writeFrame(conn, resp); err != nil {
			logger.Errorf("Control response write failed: %v", err)
			return
		}
	}
}

// handleRequest maps one control request onto a bridge intent and waits for
// the core's reply. No side effect is visible to the caller before the next
// composed frame.
func (s *SocketServer) handleRequest(ctx context.Context, req Request) Response {
	var kind bridge.IntentKind
	switch req.Type {
	case RequestListWindows:
		kind = bridge.IntentListWindows
	case RequestGetWindow:
		kind = bridge.IntentGetWindow
	case RequestFocusWindow:
		kind = bridge.IntentFocusWindow
	case RequestCloseWindow:
		kind = bridge.IntentCloseWindow
	case RequestStatus:
		kind = bridge.IntentStatus
	default:
		return Response{OK: false, Error: fmt.Sprintf("unknown request type %q", req.Type)}
	}

	reply, err := s.bridge.Request(ctx, bridge.Intent{Kind: kind, Surface: req.Surface})
	if err != nil {
		return errorResponse(err)
	}
	if reply.Err != nil {
		return errorResponse(reply.Err)
	}
	return Response{
		OK:      true,
		Windows: reply.Windows,
		Window:  reply.Window,
		Status:  reply.Status,
	}
}
