// Package controller ties the event queue, mask table and dispatcher
// together behind the interface producers use: submit interrupts, mask and
// unmask devices, and request shutdown.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/irqsim/irqsim/pkg/device"
	"github.com/irqsim/irqsim/pkg/dispatch"
	"github.com/irqsim/irqsim/pkg/log"
	"github.com/irqsim/irqsim/pkg/mask"
	"github.com/irqsim/irqsim/pkg/queue"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("controller already started")

// Config configures a Controller.
type Config struct {
	// Dispatch configures the dispatcher. Its Logger, TraceLogger and
	// SessionID are filled from this Config when empty.
	Dispatch dispatch.Config

	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// TraceLogger receives structured trace events (optional).
	TraceLogger log.Logger

	// SessionID is stamped on trace events. Empty means a new UUID.
	SessionID string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Dispatch: dispatch.DefaultConfig(),
	}
}

// Controller is a software interrupt controller.
type Controller struct {
	config     Config
	registry   *device.Registry
	queue      *queue.Queue
	masks      *mask.Table
	dispatcher *dispatch.Dispatcher

	started atomic.Bool
}

// New creates a controller for the devices in reg that hands dispatched
// events to h. Call Start to begin dispatching.
func New(reg *device.Registry, h dispatch.Handler, cfg Config) *Controller {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	dc := cfg.Dispatch
	if dc.Logger == nil {
		dc.Logger = cfg.Logger
	}
	if dc.TraceLogger == nil {
		dc.TraceLogger = cfg.TraceLogger
	}
	if dc.SessionID == "" {
		dc.SessionID = cfg.SessionID
	}

	q := queue.New()
	masks := mask.NewTable(reg)
	return &Controller{
		config:     cfg,
		registry:   reg,
		queue:      q,
		masks:      masks,
		dispatcher: dispatch.New(q, masks, h, dc),
	}
}

// Start runs the dispatcher in a background goroutine.
// Cancelling ctx requests a stop; pending work is still drained.
func (c *Controller) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go func() {
		if err := c.dispatcher.Run(ctx); err != nil {
			c.debugLog("dispatcher exited", "error", err)
		}
	}()
	c.debugLog("controller started", "session", c.config.SessionID, "devices", c.registry.Len())
	return nil
}

// Submit enqueues an interrupt for device id. It never blocks.
// It fails only for devices outside the registry.
func (c *Controller) Submit(id device.ID, payload any) (queue.Event, error) {
	d, err := c.registry.Lookup(id)
	if err != nil {
		return queue.Event{}, err
	}

	ev := c.queue.Submit(d, payload)
	c.debugLog("interrupt submitted", "event", ev.String(), "masked", c.masks.IsMasked(id))
	c.trace(log.Event{
		Component: log.ComponentQueue,
		Category:  log.CategorySubmit,
		DeviceID:  string(id),
		Sequence:  ev.Sequence,
		Interrupt: &log.InterruptEvent{
			Priority: d.Priority,
			Payload:  log.PayloadValue(payload),
		},
	})
	return ev, nil
}

// SetMask masks or unmasks device id. The change is visible to the
// dispatcher when SetMask returns.
func (c *Controller) SetMask(id device.ID, masked bool) error {
	if err := c.masks.SetMask(id, masked); err != nil {
		return err
	}
	c.debugLog("mask changed", "device", id, "masked", masked)
	c.trace(log.Event{
		Component: log.ComponentMask,
		Category:  log.CategoryMask,
		DeviceID:  string(id),
		Mask:      &log.MaskEvent{Masked: masked},
	})
	return nil
}

// IsMasked reports the mask flag of device id. Unknown devices are masked.
func (c *Controller) IsMasked(id device.ID) bool {
	return c.masks.IsMasked(id)
}

// Reset unmasks every device.
func (c *Controller) Reset() {
	c.masks.Reset()
	c.debugLog("masks reset")
	c.trace(log.Event{
		Component: log.ComponentMask,
		Category:  log.CategoryMask,
		Mask:      &log.MaskEvent{Reset: true},
	})
}

// RequestStop asks the dispatcher to drain pending work and stop.
// It is idempotent.
func (c *Controller) RequestStop() {
	c.dispatcher.RequestStop()
}

// IsStopped reports whether the dispatcher has stopped.
func (c *Controller) IsStopped() bool {
	return c.dispatcher.IsStopped()
}

// Done returns a channel closed when the dispatcher has stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.dispatcher.Done()
}

// Wait blocks until the dispatcher has stopped or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.dispatcher.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Registry returns the device registry.
func (c *Controller) Registry() *device.Registry {
	return c.registry
}

// Resolve finds a device by ID, label or unique prefix.
func (c *Controller) Resolve(name string) (device.Device, error) {
	return c.registry.Resolve(name)
}

// SessionID returns the session stamped on trace events.
func (c *Controller) SessionID() string {
	return c.config.SessionID
}

func (c *Controller) trace(e log.Event) {
	if c.config.TraceLogger == nil {
		return
	}
	e.Timestamp = time.Now()
	e.SessionID = c.config.SessionID
	c.config.TraceLogger.Log(e)
}

func (c *Controller) debugLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}
