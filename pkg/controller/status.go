package controller

import (
	"github.com/irqsim/irqsim/pkg/device"
	"github.com/irqsim/irqsim/pkg/dispatch"
	"github.com/irqsim/irqsim/pkg/queue"
)

// DeviceStatus is one row of the mask table.
type DeviceStatus struct {
	Device  device.Device
	Masked  bool
	Pending int
}

// Status is a point-in-time view of the controller.
type Status struct {
	SessionID string
	State     dispatch.State

	// Devices in dispatch priority order.
	Devices []DeviceStatus

	// Pending events in dispatch order. Events the dispatcher is holding
	// mid-scan may be missing for an instant.
	Pending []queue.Event

	Stats dispatch.Stats
}

// Status returns a snapshot of masks, pending events and counters.
// The parts are read one after another, not atomically.
func (c *Controller) Status() Status {
	pending := c.queue.Snapshot()
	masks := c.masks.Snapshot()

	perDevice := make(map[device.ID]int, len(masks))
	for _, ev := range pending {
		perDevice[ev.Device.ID]++
	}

	devices := c.registry.Devices()
	rows := make([]DeviceStatus, len(devices))
	for i, d := range devices {
		rows[i] = DeviceStatus{
			Device:  d,
			Masked:  masks[d.ID],
			Pending: perDevice[d.ID],
		}
	}

	return Status{
		SessionID: c.config.SessionID,
		State:     c.dispatcher.State(),
		Devices:   rows,
		Pending:   pending,
		Stats:     c.dispatcher.Stats(),
	}
}
