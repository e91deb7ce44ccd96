package device

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds the set of known devices.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	devices map[ID]Device
	order   []ID // registration order
}

// NewRegistry creates a registry containing the given devices.
func NewRegistry(devices ...Device) (*Registry, error) {
	r := &Registry{
		devices: make(map[ID]Device, len(devices)),
	}
	for _, d := range devices {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a device. IDs must be non-empty and unique.
func (r *Registry) Register(d Device) error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDevice)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[d.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateDevice, string(d.ID))
	}
	r.devices[d.ID] = d
	r.order = append(r.order, d.ID)
	return nil
}

// Lookup returns the device with the given ID.
func (r *Registry) Lookup(id ID) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, &UnknownDeviceError{ID: id}
	}
	return d, nil
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[id]
	return ok
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Devices returns all devices, highest priority first.
// Devices of equal priority keep registration order.
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	result := make([]Device, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.devices[id])
	}
	r.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority > result[j].Priority
	})
	return result
}

// Resolve finds a device by name. Exact ID or label matches win; otherwise
// name must be a unique case-insensitive prefix of an ID or label.
func (r *Registry) Resolve(name string) (Device, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return Device{}, &UnknownDeviceError{ID: ID(name)}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Device
	for _, id := range r.order {
		d := r.devices[id]
		idName := strings.ToLower(string(d.ID))
		label := strings.ToLower(d.Label)
		if idName == needle || label == needle {
			return d, nil
		}
		if strings.HasPrefix(idName, needle) || (label != "" && strings.HasPrefix(label, needle)) {
			matches = append(matches, d)
		}
	}

	switch len(matches) {
	case 0:
		return Device{}, &UnknownDeviceError{ID: ID(name)}
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, d := range matches {
			names[i] = string(d.ID)
		}
		return Device{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguousDevice, name, strings.Join(names, ", "))
	}
}
