// Package interactive provides the interactive command-line interface
// for the interrupt simulator.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/irqsim/irqsim/pkg/controller"
	"github.com/irqsim/irqsim/pkg/device"
	"github.com/irqsim/irqsim/pkg/generator"
	"github.com/irqsim/irqsim/pkg/inspect"
	"github.com/irqsim/irqsim/pkg/isr"
)

// maxSteps caps "step n" so a typo cannot flood the queue.
const maxSteps = 1000

// Simulator bundles what the console drives.
type Simulator struct {
	Controller *controller.Controller
	Generator  *generator.Generator
	Routine    *isr.Routine

	// Interval between cycles for "auto on".
	Interval time.Duration
}

// Console handles interactive mode for irq-sim.
type Console struct {
	rl        *readline.Instance
	out       io.Writer
	sim       Simulator
	formatter *inspect.Formatter

	mu         sync.Mutex
	autoCancel context.CancelFunc
	autoDone   chan struct{}
}

// New creates a console reading commands with readline.
// Call Bind before Run.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "irq> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{
		rl:        rl,
		out:       rl.Stdout(),
		formatter: inspect.NewFormatter(),
	}, nil
}

// newConsole creates a console without a terminal, writing to out.
func newConsole(out io.Writer, sim Simulator) *Console {
	return &Console{
		out:       out,
		sim:       sim,
		formatter: inspect.NewFormatter(),
	}
}

// Bind attaches the simulator the commands operate on.
func (c *Console) Bind(sim Simulator) {
	c.sim = sim
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	if c.rl == nil {
		return os.Stdout
	}
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	if c.rl == nil {
		return os.Stderr
	}
	return c.rl.Stderr()
}

// Close releases the terminal. A blocked Run returns.
func (c *Console) Close() error {
	if c.rl == nil {
		return nil
	}
	return c.rl.Close()
}

// Run starts the interactive command loop. It calls cancel when the user
// quits or input ends. The caller closes the console.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.stopAuto()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.Execute(line); quit {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the user asked to quit.
func (c *Console) Execute(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "step", "s":
		c.cmdStep(args)

	case "raise", "r":
		c.cmdRaise(args)

	case "mask", "m":
		c.cmdMask(args, true)

	case "unmask", "u":
		c.cmdMask(args, false)

	case "status", "st":
		c.cmdStatus()

	case "pending", "p":
		c.cmdPending()

	case "stats":
		c.cmdStats()

	case "reset":
		c.sim.Controller.Reset()
		fmt.Fprintln(c.out, "All devices unmasked.")

	case "auto":
		c.cmdAuto(args)

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Interrupt Simulator Commands:
  Generation:
    step [n]             - Run n random generation cycles (default 1)
    raise <dev> [data]   - Raise one interrupt with optional payload
    auto [on|off]        - Toggle background generation

  Masking:
    mask <dev>           - Mask a device (its interrupts are held)
    unmask <dev>         - Unmask a device
    reset                - Unmask every device

  Inspection:
    status               - Show masks and dispatcher state
    pending              - List pending interrupts in dispatch order
    stats                - Show dispatcher counters

  General:
    help                 - Show this help
    quit                 - Drain pending work and exit

  Devices may be named by ID, label or a unique prefix (e.g. "key").`)
}

// cmdStep runs generation cycles.
func (c *Console) cmdStep(args []string) {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			fmt.Fprintf(c.out, "Invalid cycle count: %s\n", args[0])
			return
		}
		n = min(v, maxSteps)
	}

	for i := 0; i < n; i++ {
		ReportCycle(c.out, c.sim.Generator.Step(), c.sim.Controller.IsMasked)
	}
}

// cmdRaise submits a single interrupt.
func (c *Console) cmdRaise(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: raise <dev> [payload]")
		return
	}
	d, ok := c.resolve(args[0])
	if !ok {
		return
	}

	var payload any
	if len(args) > 1 {
		payload = strings.Join(args[1:], " ")
	}

	ev, err := c.sim.Controller.Submit(d.ID, payload)
	if err != nil {
		fmt.Fprintf(c.out, "Failed to raise: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Raised %s\n", ev)
	if c.sim.Controller.IsMasked(d.ID) {
		fmt.Fprintf(c.out, "%s interrupt held (masked).\n", d)
	}
}

// cmdMask masks or unmasks a device.
func (c *Console) cmdMask(args []string, masked bool) {
	verb := "mask"
	if !masked {
		verb = "unmask"
	}
	if len(args) < 1 {
		fmt.Fprintf(c.out, "Usage: %s <dev>\n", verb)
		return
	}
	d, ok := c.resolve(args[0])
	if !ok {
		return
	}

	if err := c.sim.Controller.SetMask(d.ID, masked); err != nil {
		fmt.Fprintf(c.out, "Failed to %s: %v\n", verb, err)
		return
	}
	fmt.Fprintf(c.out, "%s %sed.\n", d, verb)
}

func (c *Console) cmdStatus() {
	fmt.Fprint(c.out, c.formatter.FormatStatus(c.sim.Controller.Status()))

	auto := "off"
	if c.autoRunning() {
		auto = "on"
	}
	fmt.Fprintf(c.out, "Generator: %d cycles, auto %s\n", c.sim.Generator.Cycles(), auto)
}

func (c *Console) cmdPending() {
	fmt.Fprintln(c.out, "Pending interrupts:")
	fmt.Fprint(c.out, c.formatter.FormatPending(c.sim.Controller.Status().Pending))
}

func (c *Console) cmdStats() {
	st := c.sim.Controller.Status()
	fmt.Fprintln(c.out, "Dispatcher:")
	fmt.Fprint(c.out, c.formatter.FormatStats(st.Stats))

	if c.sim.Routine == nil {
		return
	}
	handled := c.sim.Routine.Handled()
	fmt.Fprintln(c.out, "Handled per device:")
	for _, row := range st.Devices {
		fmt.Fprint(c.out, c.formatter.Indent(1, fmt.Sprintf("%s: %d\n", row.Device, handled[row.Device.ID])))
	}
}

func (c *Console) cmdAuto(args []string) {
	on := !c.autoRunning()
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on", "start":
			on = true
		case "off", "stop":
			on = false
		default:
			fmt.Fprintln(c.out, "Usage: auto [on|off]")
			return
		}
	}

	if on {
		if c.StartAuto() {
			fmt.Fprintf(c.out, "Automatic generation started (every %s)\n", c.sim.Interval)
		} else {
			fmt.Fprintln(c.out, "Automatic generation already running")
		}
		return
	}
	if c.stopAuto() {
		fmt.Fprintln(c.out, "Automatic generation stopped")
	} else {
		fmt.Fprintln(c.out, "Automatic generation not running")
	}
}

// StartAuto starts background generation. It reports false if it was
// already running.
func (c *Console) StartAuto() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoCancel != nil {
		return false
	}

	interval := c.sim.Interval
	if interval <= 0 {
		interval = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.autoCancel = cancel
	c.autoDone = done

	go func() {
		defer close(done)
		_ = c.sim.Generator.Run(ctx, interval, func(cy generator.Cycle) {
			ReportCycle(c.out, cy, c.sim.Controller.IsMasked)
		})
	}()
	return true
}

// stopAuto stops background generation and waits for it to exit.
func (c *Console) stopAuto() bool {
	c.mu.Lock()
	cancel, done := c.autoCancel, c.autoDone
	c.autoCancel, c.autoDone = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

func (c *Console) autoRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoCancel != nil
}

func (c *Console) resolve(name string) (device.Device, bool) {
	d, err := c.sim.Controller.Resolve(name)
	if err != nil {
		fmt.Fprintf(c.out, "%v\n", err)
		return device.Device{}, false
	}
	return d, true
}

// ReportCycle prints the outcome of one generation cycle.
func ReportCycle(w io.Writer, cy generator.Cycle, masked func(device.ID) bool) {
	fmt.Fprintf(w, "=== CYCLE %d ===\n", cy.Number)
	if len(cy.Fired) == 0 && len(cy.Errors) == 0 {
		fmt.Fprintln(w, "No interrupts this cycle.")
		return
	}
	for _, ev := range cy.Fired {
		fmt.Fprintf(w, "%s raised interrupt #%d\n", ev.Device, ev.Sequence)
		if masked != nil && masked(ev.Device.ID) {
			fmt.Fprintf(w, "%s interrupt held (masked).\n", ev.Device)
		}
	}
	for _, err := range cy.Errors {
		fmt.Fprintf(w, "Generation failed: %v\n", err)
	}
}
