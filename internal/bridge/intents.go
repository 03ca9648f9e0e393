package bridge

import (
	"github.com/tfufuu/nova/internal/geometry"
	"github.com/tfufuu/nova/internal/input"
	"github.com/tfufuu/nova/internal/output"
)

// IntentKind tags an inbound request for the core to apply.
type IntentKind int

const (
	// Control surface requests (request/response).
	IntentListWindows IntentKind = iota
	IntentGetWindow
	IntentFocusWindow
	IntentCloseWindow
	IntentStatus

	// Hardware/session layer notifications (fire and forget unless noted).
	IntentOutputAdded
	IntentOutputRemoved
	IntentOutputEnable
	IntentOutputDisable
	IntentOutputSetPosition
	IntentOutputSetMode
	IntentDeviceAdded
	IntentDeviceRemoved
	IntentPowerStatus
	IntentReloadConfig
	IntentLockSession
	IntentUnlockSession
)

// Intent is one inbound command. Reply, when non-nil, receives exactly one
// Reply and is then closed by the core.
type Intent struct {
	Kind IntentKind

	Surface    uint64
	OutputID   uint64
	OutputName string
	Modes      []output.Mode
	Mode       output.Mode
	Pos        geometry.Point
	DeviceID   uint64
	DeviceName string
	DeviceCaps input.Capability
	PowerOn    bool

	Reply chan Reply
}

// WindowInfo is the control surface's view of one window.
type WindowInfo struct {
	ID      uint64 `json:"id"`
	Title   string `json:"title"`
	AppID   string `json:"app_id"`
	Role    string `json:"role"`
	State   string `json:"state"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Focused bool   `json:"focused"`
}

// StatusInfo summarizes the compositor for the status command.
type StatusInfo struct {
	Outputs  []OutputInfo `json:"outputs"`
	Windows  int          `json:"windows"`
	Focused  uint64       `json:"focused"`
	Locked   bool         `json:"locked"`
	Seat     string       `json:"seat"`
	SeatCaps string       `json:"seat_capabilities"`
}

// OutputInfo is the control surface's view of one output.
type OutputInfo struct {
	ID      uint64  `json:"id"`
	Name    string  `json:"name"`
	Mode    string  `json:"mode"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Scale   float64 `json:"scale"`
	Enabled bool    `json:"enabled"`
	Primary bool    `json:"primary"`
}

// Reply carries the outcome of a request intent. Err is set on failure; the
// remaining fields are populated per request kind.
type Reply struct {
	Err     error
	Windows []WindowInfo
	Window  *WindowInfo
	Status  *StatusInfo
}
