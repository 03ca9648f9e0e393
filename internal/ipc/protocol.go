// Package ipc exposes the compositor's control surface on a local unix
// socket: list windows, query properties, focus and close, all mapped onto
// bridge intents. Frames are length-prefixed JSON.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tfufuu/nova/internal/bridge"
	"github.com/tfufuu/nova/internal/comperr"
)

// RequestType names a control operation.
type RequestType string

const (
	RequestListWindows RequestType = "list_windows"
	RequestGetWindow   RequestType = "get_window"
	RequestFocusWindow RequestType = "focus_window"
	RequestCloseWindow RequestType = "close_window"
	RequestStatus      RequestType = "status"
)

// Request is one control-surface call.
type Request struct {
	Type    RequestType `json:"type"`
	Surface uint64      `json:"surface,omitempty"`
}

// Response is the reply to a Request. Callers receive a typed code rather
// than a raw error string so shells can localize failures.
type Response struct {
	OK      bool                `json:"ok"`
	Code    comperr.Code        `json:"code,omitempty"`
	Error   string              `json:"error,omitempty"`
	Windows []bridge.WindowInfo `json:"windows,omitempty"`
	Window  *bridge.WindowInfo  `json:"window,omitempty"`
	Status  *bridge.StatusInfo  `json:"status,omitempty"`
}

// maxFrame bounds a control frame; anything larger is a protocol violation.
const maxFrame = 1 << 20

func writeFrame(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(data))); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame data: %w", err)
	}
	return nil
}

func readFrame(r io.Reader, v interface{}) error {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return err
	}
	if length > maxFrame {
		return fmt.Errorf("frame of %d bytes exceeds limit", length)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("read frame data: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal frame: %w", err)
	}
	return nil
}

// errorResponse converts a core error into a typed wire failure.
func errorResponse(err error) Response {
	return Response{
		OK:    false,
		Code:  comperr.CodeOf(err),
		Error: err.Error(),
	}
}
