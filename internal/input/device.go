// Package input tracks physical input sources and their capabilities.
package input

// Capability is a bitmask of the event classes a device can produce.
type Capability uint8

const (
	CapPointer Capability = 1 << iota
	CapKeyboard
	CapTouch
)

// Has reports whether c includes want.
func (c Capability) Has(want Capability) bool {
	return c&want != 0
}

func (c Capability) String() string {
	s := ""
	if c.Has(CapPointer) {
		s += "pointer,"
	}
	if c.Has(CapKeyboard) {
		s += "keyboard,"
	}
	if c.Has(CapTouch) {
		s += "touch,"
	}
	if s == "" {
		return "none"
	}
	return s[:len(s)-1]
}

// Device represents one physical input source.
type Device struct {
	ID   uint64
	Name string
	Caps Capability
}
