package device

import (
	"errors"
	"fmt"
)

// Device errors.
var (
	ErrUnknownDevice   = errors.New("unknown device")
	ErrAmbiguousDevice = errors.New("ambiguous device name")
	ErrDuplicateDevice = errors.New("duplicate device")
	ErrInvalidDevice   = errors.New("invalid device")
)

// ID is the stable identifier of an interrupt source.
type ID string

// Device is an interrupt source with a fixed priority.
type Device struct {
	// ID uniquely identifies the device.
	ID ID

	// Label is the display name (e.g. "Keyboard").
	Label string

	// Priority orders dispatch: bigger number = serviced first.
	Priority int
}

// String returns the label, falling back to the ID.
func (d Device) String() string {
	if d.Label != "" {
		return d.Label
	}
	return string(d.ID)
}

// UnknownDeviceError reports a reference to a device outside the registry.
type UnknownDeviceError struct {
	ID ID
}

func (e *UnknownDeviceError) Error() string {
	return fmt.Sprintf("unknown device %q", string(e.ID))
}

// Is makes errors.Is(err, ErrUnknownDevice) hold.
func (e *UnknownDeviceError) Is(target error) bool {
	return target == ErrUnknownDevice
}

// Defaults returns the peripherals of the classic simulator:
// Keyboard > Mouse > Printer.
func Defaults() []Device {
	return []Device{
		{ID: "keyboard", Label: "Keyboard", Priority: 3},
		{ID: "mouse", Label: "Mouse", Priority: 2},
		{ID: "printer", Label: "Printer", Priority: 1},
	}
}
