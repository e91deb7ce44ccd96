// Package isr provides a simulated interrupt service routine that reports
// each interrupt on a writer and pretends to work for a fixed service time.
package isr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/irqsim/irqsim/pkg/device"
	"github.com/irqsim/irqsim/pkg/queue"
)

// ErrFault is returned for events carrying the configured fail payload.
var ErrFault = errors.New("simulated device fault")

// Config configures a Routine.
type Config struct {
	// ServiceTime is how long each call takes.
	ServiceTime time.Duration

	// FailPayload makes Handle fail for events whose payload equals it.
	// Empty disables faults.
	FailPayload string
}

// Routine is a dispatch.Handler that prints progress messages.
type Routine struct {
	out    io.Writer
	config Config

	mu      sync.Mutex
	handled map[device.ID]int
}

// New creates a routine writing to out.
func New(out io.Writer, cfg Config) *Routine {
	return &Routine{
		out:     out,
		config:  cfg,
		handled: make(map[device.ID]int),
	}
}

// Handle services one interrupt.
func (r *Routine) Handle(ctx context.Context, ev queue.Event) error {
	r.printf("%s Interrupt received → processing handler...\n", ev.Device)

	if r.config.FailPayload != "" {
		if s, ok := ev.Payload.(string); ok && s == r.config.FailPayload {
			r.printf("%s handler aborted.\n", ev.Device)
			return ErrFault
		}
	}

	if r.config.ServiceTime > 0 {
		timer := time.NewTimer(r.config.ServiceTime)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	r.mu.Lock()
	r.handled[ev.Device.ID]++
	r.mu.Unlock()

	r.printf("%s handler finished.\n", ev.Device)
	return nil
}

// Handled returns how many interrupts each device had serviced.
func (r *Routine) Handled() map[device.ID]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[device.ID]int, len(r.handled))
	for id, n := range r.handled {
		out[id] = n
	}
	return out
}

func (r *Routine) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}
