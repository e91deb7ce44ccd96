// Package mask tracks which devices are masked (disabled) and notifies
// waiters when that changes.
package mask

import (
	"sync"

	"github.com/irqsim/irqsim/pkg/device"
)

// Table maps devices to their masked flag. Registered devices start
// unmasked; devices the registry does not know are always reported as
// masked.
type Table struct {
	mu sync.RWMutex

	registry *device.Registry
	masked   map[device.ID]bool

	// changed is closed and replaced on every mutation.
	changed chan struct{}
}

// NewTable creates a mask table for the devices in reg.
func NewTable(reg *device.Registry) *Table {
	return &Table{
		registry: reg,
		masked:   make(map[device.ID]bool),
		changed:  make(chan struct{}),
	}
}

// SetMask sets the masked flag for id. The change is visible to every
// reader once SetMask returns. Setting the current value again is a no-op
// apart from the wake-up.
func (t *Table) SetMask(id device.ID, masked bool) error {
	if !t.registry.Contains(id) {
		return &device.UnknownDeviceError{ID: id}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if masked {
		t.masked[id] = true
	} else {
		delete(t.masked, id)
	}
	t.notifyLocked()
	return nil
}

// IsMasked returns the current flag for id.
func (t *Table) IsMasked(id device.ID) bool {
	if !t.registry.Contains(id) {
		return true
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.masked[id]
}

// AllMasked reports whether every listed device is masked.
// It returns true for an empty list.
func (t *Table) AllMasked(ids ...device.ID) bool {
	for _, id := range ids {
		if !t.IsMasked(id) {
			return false
		}
	}
	return true
}

// Reset unmasks every device.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.masked)
	t.notifyLocked()
}

// Snapshot returns the flag of every registered device.
func (t *Table) Snapshot() map[device.ID]bool {
	devices := t.registry.Devices()

	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[device.ID]bool, len(devices))
	for _, d := range devices {
		result[d.ID] = t.masked[d.ID]
	}
	return result
}

// Changes returns a channel that is closed by the next mask mutation.
// Grab it before checking masks so a concurrent change cannot be missed.
func (t *Table) Changes() <-chan struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.changed
}

func (t *Table) notifyLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}
