package ipc

import (
	"fmt"
	"net"
	"time"
)

// Client is a control-surface caller, used by the CLI commands.
type Client struct {
	conn net.Conn
}

// Dial connects to the running compositor's control socket.
func Dial() (*Client, error) {
	path, err := SocketPath()
	if err != nil {
		return nil, err
	}
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to compositor at %s: %w", path, err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call performs one request/response round trip.
func (c *Client) Call(req Request) (Response, error) {
	if err := writeFrame(c.conn, req); err != nil {
		return Response{}, err
	}
	var resp Response
	if err := readFrame(c.conn, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// ListWindows returns every top-level window.
func (c *Client) ListWindows() (Response, error) {
	return c.Call(Request{Type: RequestListWindows})
}

// GetWindow returns one window's properties.
func (c *Client) GetWindow(id uint64) (Response, error) {
	return c.Call(Request{Type: RequestGetWindow, Surface: id})
}

// FocusWindow asks the compositor to focus a window.
func (c *Client) FocusWindow(id uint64) (Response, error) {
	return c.Call(Request{Type: RequestFocusWindow, Surface: id})
}

// CloseWindow asks the compositor to close a window.
func (c *Client) CloseWindow(id uint64) (Response, error) {
	return c.Call(Request{Type: RequestCloseWindow, Surface: id})
}

// Status returns the compositor status summary.
func (c *Client) Status() (Response, error) {
	return c.Call(Request{Type: RequestStatus})
}
