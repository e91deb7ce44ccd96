package queue

import (
	"fmt"
	"time"

	"github.com/irqsim/irqsim/pkg/device"
)

// Event is a pending interrupt raised by a device.
// Events are immutable once created.
type Event struct {
	// Device that raised the event.
	Device device.Device

	// Payload is opaque data supplied by the producer.
	Payload any

	// Sequence is assigned at submission and survives requeueing.
	// Lower sequence numbers win ties between equal priorities.
	Sequence uint64

	// SubmittedAt is when the event entered the queue for the first time.
	SubmittedAt time.Time
}

// String returns a short form like "Keyboard#12".
func (e Event) String() string {
	return fmt.Sprintf("%s#%d", e.Device, e.Sequence)
}

// before reports whether a should be dispatched before b.
func before(a, b Event) bool {
	if a.Device.Priority != b.Device.Priority {
		return a.Device.Priority > b.Device.Priority
	}
	return a.Sequence < b.Sequence
}
