package input

import (
	"sort"

	"github.com/tfufuu/nova/internal/logger"
)

// Registry is the table of attached input devices. Owned by the compositor
// core thread; not safe for concurrent use.
type Registry struct {
	devices map[uint64]*Device
	nextID  uint64
}

// NewRegistry creates an empty input registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[uint64]*Device),
		nextID:  1,
	}
}

// Add registers a hot-plugged device and returns it.
func (r *Registry) Add(name string, caps Capability) *Device {
	d := &Device{ID: r.nextID, Name: name, Caps: caps}
	r.nextID++
	r.devices[d.ID] = d
	logger.Infof("Input device added: %s (%s)", name, caps)
	return d
}

// Remove drops a detached device.
func (r *Registry) Remove(id uint64) *Device {
	d, ok := r.devices[id]
	if !ok {
		return nil
	}
	delete(r.devices, id)
	logger.Infof("Input device removed: %s", d.Name)
	return d
}

// Get returns a device by id.
func (r *Registry) Get(id uint64) (*Device, bool) {
	d, ok := r.devices[id]
	return d, ok
}

// All returns the attached devices sorted by id.
func (r *Registry) All() []*Device {
	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SeatCapabilities aggregates the capabilities of every attached device.
// The seat advertises this union to clients.
func (r *Registry) SeatCapabilities() Capability {
	var caps Capability
	for _, d := range r.devices {
		caps |= d.Caps
	}
	return caps
}
