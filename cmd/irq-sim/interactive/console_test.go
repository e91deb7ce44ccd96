package interactive

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/irqsim/irqsim/pkg/controller"
	"github.com/irqsim/irqsim/pkg/device"
	"github.com/irqsim/irqsim/pkg/generator"
	"github.com/irqsim/irqsim/pkg/isr"
	"github.com/irqsim/irqsim/pkg/queue"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// newTestConsole builds a console over a controller that is not started,
// so submitted interrupts stay pending.
func newTestConsole(t *testing.T, rates ...float64) (*Console, *syncBuffer, *controller.Controller) {
	t.Helper()

	reg, err := device.NewRegistry(device.Defaults()...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	out := &syncBuffer{}
	routine := isr.New(out, isr.Config{})
	ctrl := controller.New(reg, routine, controller.DefaultConfig())

	if len(rates) == 0 {
		rates = []float64{0, 0, 0}
	}
	var sources []generator.Source
	for i, d := range reg.Devices() {
		sources = append(sources, generator.Source{Device: d.ID, Rate: rates[i]})
	}
	gen, err := generator.New(ctrl, generator.Config{Seed: 1, Sources: sources})
	if err != nil {
		t.Fatalf("generator.New() error = %v", err)
	}

	con := newConsole(out, Simulator{
		Controller: ctrl,
		Generator:  gen,
		Routine:    routine,
		Interval:   5 * time.Millisecond,
	})
	return con, out, ctrl
}

func TestExecuteQuit(t *testing.T) {
	con, _, _ := newTestConsole(t)
	for _, cmd := range []string{"quit", "exit", "q", "  QUIT  "} {
		if !con.Execute(cmd) {
			t.Errorf("Execute(%q) = false, want quit", cmd)
		}
	}
	if con.Execute("") {
		t.Error("empty line should not quit")
	}
}

func TestExecuteUnknown(t *testing.T) {
	con, out, _ := newTestConsole(t)
	con.Execute("frobnicate")
	if !strings.Contains(out.String(), "Unknown command: frobnicate") {
		t.Errorf("output = %q", out.String())
	}
}

func TestStepNoInterrupts(t *testing.T) {
	con, out, _ := newTestConsole(t)
	con.Execute("step 2")

	want := "=== CYCLE 1 ===\nNo interrupts this cycle.\n=== CYCLE 2 ===\nNo interrupts this cycle.\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestStepFiresAndReportsMasked(t *testing.T) {
	con, out, ctrl := newTestConsole(t, 1, 0, 1)
	con.Execute("mask pri")
	out.Reset()

	con.Execute("step")

	got := out.String()
	for _, want := range []string{
		"=== CYCLE 1 ===",
		"Keyboard raised interrupt #1",
		"Printer raised interrupt #2",
		"Printer interrupt held (masked).",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Keyboard interrupt held") {
		t.Errorf("unmasked keyboard reported as held:\n%s", got)
	}
	if n := len(ctrl.Status().Pending); n != 2 {
		t.Errorf("pending = %d, want 2", n)
	}
}

func TestStepInvalidCount(t *testing.T) {
	con, out, _ := newTestConsole(t)
	con.Execute("step zero")
	if !strings.Contains(out.String(), "Invalid cycle count: zero") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRaise(t *testing.T) {
	con, out, ctrl := newTestConsole(t)

	con.Execute("raise mouse hello world")
	if !strings.Contains(out.String(), "Raised Mouse#1") {
		t.Errorf("output = %q", out.String())
	}

	pending := ctrl.Status().Pending
	if len(pending) != 1 || pending[0].Payload != "hello world" {
		t.Errorf("pending = %+v", pending)
	}

	out.Reset()
	con.Execute("raise")
	if !strings.Contains(out.String(), "Usage: raise") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	con.Execute("raise joystick")
	if !strings.Contains(out.String(), `unknown device "joystick"`) {
		t.Errorf("output = %q", out.String())
	}
}

func TestMaskUnmaskReset(t *testing.T) {
	con, out, ctrl := newTestConsole(t)

	con.Execute("mask key")
	if !ctrl.IsMasked("keyboard") {
		t.Error("keyboard not masked")
	}
	if !strings.Contains(out.String(), "Keyboard masked.") {
		t.Errorf("output = %q", out.String())
	}

	con.Execute("mask MOU")
	con.Execute("unmask keyboard")
	if ctrl.IsMasked("keyboard") {
		t.Error("keyboard still masked")
	}
	if !strings.Contains(out.String(), "Keyboard unmasked.") {
		t.Errorf("output = %q", out.String())
	}

	con.Execute("reset")
	if ctrl.IsMasked("mouse") {
		t.Error("mouse still masked after reset")
	}
	if !strings.Contains(out.String(), "All devices unmasked.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestMaskAmbiguous(t *testing.T) {
	con, out, ctrl := newTestConsole(t)
	if err := ctrl.Registry().Register(device.Device{ID: "modem", Label: "Modem", Priority: 0}); err != nil {
		t.Fatal(err)
	}

	con.Execute("mask mo")
	if !strings.Contains(out.String(), "ambiguous") {
		t.Errorf("output = %q", out.String())
	}
	if ctrl.IsMasked("mouse") || ctrl.IsMasked("modem") {
		t.Error("ambiguous name changed a mask")
	}
}

func TestStatusPendingStats(t *testing.T) {
	con, out, _ := newTestConsole(t)
	con.Execute("mask printer")
	con.Execute("raise printer")
	out.Reset()

	con.Execute("status")
	got := out.String()
	if !strings.Contains(got, "Dispatcher: IDLE (1 pending)") {
		t.Errorf("status output = %q", got)
	}
	if !strings.Contains(got, "Generator: 0 cycles, auto off") {
		t.Errorf("status output = %q", got)
	}

	out.Reset()
	con.Execute("pending")
	if !strings.Contains(out.String(), "#1 Printer (prio 1)") {
		t.Errorf("pending output = %q", out.String())
	}

	out.Reset()
	con.Execute("stats")
	got = out.String()
	if !strings.Contains(got, "Dispatched: 0") || !strings.Contains(got, "Keyboard: 0") {
		t.Errorf("stats output = %q", got)
	}
}

func TestAutoToggle(t *testing.T) {
	con, out, _ := newTestConsole(t)

	con.Execute("auto on")
	deadline := time.Now().Add(2 * time.Second)
	for con.sim.Generator.Cycles() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	con.Execute("auto on")
	con.Execute("auto off")
	con.Execute("auto off")

	got := out.String()
	for _, want := range []string{
		"Automatic generation started",
		"Automatic generation already running",
		"Automatic generation stopped",
		"Automatic generation not running",
		"=== CYCLE 2 ===",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestExecuteEndToEnd(t *testing.T) {
	con, out, ctrl := newTestConsole(t)
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	con.Execute("mask keyboard")
	con.Execute("raise keyboard a")
	con.Execute("raise printer b")

	waitFor(t, func() bool { return strings.Contains(out.String(), "Printer handler finished.") })
	if strings.Contains(out.String(), "Keyboard Interrupt received") {
		t.Fatal("masked keyboard was dispatched")
	}

	con.Execute("unmask keyboard")
	waitFor(t, func() bool { return strings.Contains(out.String(), "Keyboard handler finished.") })

	ctrl.RequestStop()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestReportCycleErrors(t *testing.T) {
	var buf bytes.Buffer
	ReportCycle(&buf, generator.Cycle{
		Number: 3,
		Errors: []error{&device.UnknownDeviceError{ID: "ghost"}},
	}, nil)

	want := "=== CYCLE 3 ===\nGeneration failed: unknown device \"ghost\"\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	ReportCycle(&buf, generator.Cycle{
		Number: 4,
		Fired:  []queue.Event{{Device: device.Device{ID: "x", Label: "X"}, Sequence: 9}},
	}, nil)
	if buf.String() != "=== CYCLE 4 ===\nX raised interrupt #9\n" {
		t.Errorf("got %q", buf.String())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
