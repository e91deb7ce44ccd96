// Package generator raises random interrupts. Each cycle every device fires
// with its own probability, in the order the devices were given.
package generator

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/irqsim/irqsim/pkg/device"
	"github.com/irqsim/irqsim/pkg/queue"
)

// ErrNoDevices is returned by New without devices.
var ErrNoDevices = errors.New("generator needs at least one device")

// Submitter accepts generated interrupts.
type Submitter interface {
	Submit(id device.ID, payload any) (queue.Event, error)
}

// Source is one device and its firing probability per cycle.
type Source struct {
	Device device.ID
	Rate   float64
}

// Config configures a Generator.
type Config struct {
	// Sources in firing order.
	Sources []Source

	// Seed for the random source. Zero picks a random seed.
	Seed uint64

	// Logger is the optional logger for debug output.
	Logger *slog.Logger
}

// Cycle is the outcome of one generation cycle.
type Cycle struct {
	// Number counts cycles from 1.
	Number int

	// Fired holds the submitted events, in firing order.
	Fired []queue.Event

	// Errors holds submissions that were rejected.
	Errors []error
}

// Generator raises interrupts on a Submitter.
type Generator struct {
	submitter Submitter
	sources   []Source
	logger    *slog.Logger

	mu    sync.Mutex
	rng   *rand.Rand
	cycle int
}

// New creates a generator submitting to s.
func New(s Submitter, cfg Config) (*Generator, error) {
	if len(cfg.Sources) == 0 {
		return nil, ErrNoDevices
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Generator{
		submitter: s,
		sources:   append([]Source(nil), cfg.Sources...),
		logger:    cfg.Logger,
		rng:       rand.New(rand.NewPCG(seed, seed)),
	}, nil
}

// Step runs one cycle. The payload of a generated event is its cycle number.
func (g *Generator) Step() Cycle {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cycle++
	c := Cycle{Number: g.cycle}
	for _, src := range g.sources {
		if g.rng.Float64() >= src.Rate {
			continue
		}
		ev, err := g.submitter.Submit(src.Device, c.Number)
		if err != nil {
			c.Errors = append(c.Errors, err)
			continue
		}
		c.Fired = append(c.Fired, ev)
	}

	if g.logger != nil {
		g.logger.Debug("generator cycle", "cycle", c.Number, "fired", len(c.Fired), "errors", len(c.Errors))
	}
	return c
}

// Cycles returns the number of cycles run so far.
func (g *Generator) Cycles() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cycle
}

// Run calls Step every interval until ctx is done, passing each cycle to
// onCycle when it is not nil.
func (g *Generator) Run(ctx context.Context, interval time.Duration, onCycle func(Cycle)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c := g.Step()
			if onCycle != nil {
				onCycle(c)
			}
		}
	}
}
