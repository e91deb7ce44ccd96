package log

import (
	"fmt"
	"time"
)

// Event represents a trace event captured at any controller component.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies one simulator run (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Component that produced the event.
	Component Component `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// DeviceID is the interrupt source, if the event concerns one.
	DeviceID string `cbor:"5,keyasint,omitempty"`

	// Sequence is the interrupt's submission sequence number.
	Sequence uint64 `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (at most one of these will be set).
	Interrupt   *InterruptEvent   `cbor:"10,keyasint,omitempty"` // Submit/defer/requeue/dispatch
	Mask        *MaskEvent        `cbor:"11,keyasint,omitempty"` // Mask table changes
	Wait        *WaitEvent        `cbor:"12,keyasint,omitempty"` // Dispatcher waits
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"` // Dispatcher lifecycle
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Handler failures
}

// Component identifies the part of the controller that emitted an event.
type Component uint8

const (
	// ComponentQueue is the event queue.
	ComponentQueue Component = 0
	// ComponentMask is the mask table.
	ComponentMask Component = 1
	// ComponentDispatcher is the dispatch loop.
	ComponentDispatcher Component = 2
)

// String returns the component name.
func (c Component) String() string {
	switch c {
	case ComponentQueue:
		return "QUEUE"
	case ComponentMask:
		return "MASK"
	case ComponentDispatcher:
		return "DISPATCHER"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategorySubmit indicates an interrupt entered the queue.
	CategorySubmit Category = 0
	// CategoryDispatch indicates a handler ran for an interrupt.
	CategoryDispatch Category = 1
	// CategoryDefer indicates an interrupt was held because it is masked.
	CategoryDefer Category = 2
	// CategoryRequeue indicates a deferred interrupt went back to the queue.
	CategoryRequeue Category = 3
	// CategoryWait indicates the dispatcher slept on masked work.
	CategoryWait Category = 4
	// CategoryMask indicates a mask change.
	CategoryMask Category = 5
	// CategoryState indicates a dispatcher state change.
	CategoryState Category = 6
	// CategoryError indicates an error event.
	CategoryError Category = 7
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategorySubmit, CategoryDispatch, CategoryDefer, CategoryRequeue,
	CategoryWait, CategoryMask, CategoryState, CategoryError,
}

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategorySubmit:
		return "SUBMIT"
	case CategoryDispatch:
		return "DISPATCH"
	case CategoryDefer:
		return "DEFER"
	case CategoryRequeue:
		return "REQUEUE"
	case CategoryWait:
		return "WAIT"
	case CategoryMask:
		return "MASK"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// InterruptEvent captures an interrupt moving through the controller.
type InterruptEvent struct {
	// Priority of the raising device.
	Priority int `cbor:"1,keyasint"`

	// Payload supplied by the producer (CBOR-compatible representation).
	Payload any `cbor:"2,keyasint,omitempty"`

	// Latency from first submission to handler start (dispatch only).
	// Stored as nanoseconds.
	Latency *time.Duration `cbor:"3,keyasint,omitempty"`

	// Duration of the handler call (dispatch only).
	Duration *time.Duration `cbor:"4,keyasint,omitempty"`
}

// MaskEvent captures a mask table mutation.
type MaskEvent struct {
	// Masked is the new flag. Ignored when Reset is set.
	Masked bool `cbor:"1,keyasint"`

	// Reset indicates every device was unmasked at once.
	Reset bool `cbor:"2,keyasint,omitempty"`
}

// WaitEvent captures one bounded wait of the dispatcher on masked work.
type WaitEvent struct {
	// Deferred is the number of held interrupts during the wait.
	Deferred int `cbor:"1,keyasint"`

	// Waited is how long the dispatcher slept.
	Waited time.Duration `cbor:"2,keyasint"`

	// Wake is why the wait ended.
	Wake WakeReason `cbor:"3,keyasint"`
}

// WakeReason tells why a dispatcher wait ended.
type WakeReason uint8

const (
	// WakeMaskChange indicates a mask was changed.
	WakeMaskChange WakeReason = 0
	// WakeArrival indicates a new interrupt was submitted.
	WakeArrival WakeReason = 1
	// WakeTimeout indicates the bounded wait expired.
	WakeTimeout WakeReason = 2
	// WakeStop indicates a stop was requested.
	WakeStop WakeReason = 3
)

// String returns the wake reason name.
func (w WakeReason) String() string {
	switch w {
	case WakeMaskChange:
		return "MASK_CHANGE"
	case WakeArrival:
		return "ARRIVAL"
	case WakeTimeout:
		return "TIMEOUT"
	case WakeStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures dispatcher lifecycle transitions.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors at any component.
type ErrorEventData struct {
	// Component where the error occurred.
	Component Component `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}

// PayloadValue converts an interrupt payload into a value the CBOR encoder
// always accepts. Scalars and byte slices pass through; anything else is
// recorded by its fmt representation.
func PayloadValue(p any) any {
	switch v := p.(type) {
	case nil, string, bool, []byte,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
