package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/irqsim/irqsim/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ilog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func durationPtr(d time.Duration) *time.Duration { return &d }

const testSession = "abc12345-6789-0123-4567-890abcdef012"

func TestFormatDispatchEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp: ts,
		SessionID: testSession,
		Component: log.ComponentDispatcher,
		Category:  log.CategoryDispatch,
		DeviceID:  "disk",
		Sequence:  7,
		Interrupt: &log.InterruptEvent{
			Priority: 5,
			Payload:  "block-42",
			Latency:  durationPtr(1500 * time.Microsecond),
			Duration: durationPtr(2 * time.Second),
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z",
		"[session:abc12345]",
		"DISPATCHER",
		"DISPATCH disk#7",
		"Priority: 5",
		`Payload: "block-42"`,
		"Latency: 1.500ms",
		"Duration: 2.000s",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestFormatMaskEvent(t *testing.T) {
	tests := []struct {
		name string
		mask log.MaskEvent
		want string
	}{
		{"masked", log.MaskEvent{Masked: true}, "  Masked\n"},
		{"unmasked", log.MaskEvent{}, "  Unmasked\n"},
		{"reset", log.MaskEvent{Reset: true}, "All devices unmasked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.mask
			var buf bytes.Buffer
			formatEvent(&buf, log.Event{Component: log.ComponentMask, Category: log.CategoryMask, Mask: &m})
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q, got:\n%s", tt.want, buf.String())
			}
		})
	}
}

func TestFormatWaitEvent(t *testing.T) {
	event := log.Event{
		Component: log.ComponentDispatcher,
		Category:  log.CategoryWait,
		Wait:      &log.WaitEvent{Deferred: 2, Waited: 250 * time.Microsecond, Wake: log.WakeMaskChange},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Held: 2") {
		t.Errorf("expected held count, got:\n%s", output)
	}
	if !strings.Contains(output, "Waited: 250.000us") {
		t.Errorf("expected waited duration, got:\n%s", output)
	}
	if !strings.Contains(output, "Wake: MASK_CHANGE") {
		t.Errorf("expected wake reason, got:\n%s", output)
	}
}

func TestFormatStateChangeAndError(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, log.Event{
		Category:    log.CategoryState,
		StateChange: &log.StateChangeEvent{OldState: "RUNNING", NewState: "DRAINING", Reason: "stop requested"},
	})
	formatEvent(&buf, log.Event{
		Category: log.CategoryError,
		DeviceID: "network",
		Error: &log.ErrorEventData{
			Component: log.ComponentDispatcher,
			Message:   "handler fault",
			Context:   "handle NETWORK#3",
		},
	})
	output := buf.String()

	for _, want := range []string{
		"RUNNING -> DRAINING",
		"Reason: stop requested",
		"Message: handler fault",
		"Context: handle NETWORK#3",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestParseFlags(t *testing.T) {
	c, err := ParseComponentFlag("Dispatcher")
	if err != nil || c != log.ComponentDispatcher {
		t.Errorf("ParseComponentFlag(Dispatcher) = %v, %v", c, err)
	}
	if _, err := ParseComponentFlag("wire"); err == nil {
		t.Error("expected error for unknown component")
	}

	for _, cat := range log.Categories {
		got, err := ParseCategoryFlag(strings.ToLower(cat.String()))
		if err != nil {
			t.Errorf("ParseCategoryFlag(%s): %v", cat, err)
		}
		if got != cat {
			t.Errorf("ParseCategoryFlag(%s) = %v", cat, got)
		}
	}
	if _, err := ParseCategoryFlag("message"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestRunViewFilters(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Component: log.ComponentQueue, Category: log.CategorySubmit, DeviceID: "disk", Sequence: 1,
			Interrupt: &log.InterruptEvent{Priority: 5}},
		{Timestamp: ts, Component: log.ComponentQueue, Category: log.CategorySubmit, DeviceID: "network", Sequence: 2,
			Interrupt: &log.InterruptEvent{Priority: 3}},
		{Timestamp: ts, Component: log.ComponentDispatcher, Category: log.CategoryDispatch, DeviceID: "network", Sequence: 2,
			Interrupt: &log.InterruptEvent{Priority: 3}},
	}
	path := createTestLogFile(t, events)

	comp := log.ComponentDispatcher
	cat := log.CategorySubmit

	tests := []struct {
		name   string
		filter ViewFilter
		want   []string
		absent []string
	}{
		{"all", ViewFilter{}, []string{"disk#1", "network#2", "DISPATCH network#2"}, nil},
		{"device", ViewFilter{DeviceID: "disk"}, []string{"disk#1"}, []string{"network#2"}},
		{"component", ViewFilter{Component: &comp}, []string{"DISPATCH network#2"}, []string{"SUBMIT"}},
		{"category", ViewFilter{Category: &cat}, []string{"SUBMIT disk#1", "SUBMIT network#2"}, []string{"DISPATCH"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := RunView(path, tt.filter, &buf); err != nil {
				t.Fatalf("RunView failed: %v", err)
			}
			output := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(output, s) {
					t.Errorf("expected %q in output, got:\n%s", s, output)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(output, s) {
					t.Errorf("did not expect %q in output, got:\n%s", s, output)
				}
			}
		})
	}
}

func TestRunViewMissingFile(t *testing.T) {
	err := RunView(filepath.Join(t.TempDir(), "missing.ilog"), ViewFilter{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
