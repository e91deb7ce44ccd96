package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/irqsim/irqsim/pkg/log"
)

func statsEvents() []log.Event {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	dispatch := func(dev string, seq uint64, prio int, latency time.Duration) log.Event {
		return log.Event{
			Timestamp: ts, SessionID: "s1", Component: log.ComponentDispatcher, Category: log.CategoryDispatch,
			DeviceID: dev, Sequence: seq,
			Interrupt: &log.InterruptEvent{Priority: prio, Latency: durationPtr(latency)},
		}
	}
	submit := func(dev string, seq uint64, prio int) log.Event {
		return log.Event{
			Timestamp: ts, SessionID: "s1", Component: log.ComponentQueue, Category: log.CategorySubmit,
			DeviceID: dev, Sequence: seq, Interrupt: &log.InterruptEvent{Priority: prio},
		}
	}
	return []log.Event{
		submit("network", 1, 3),
		submit("disk", 2, 5),
		{Timestamp: ts, SessionID: "s1", Component: log.ComponentDispatcher, Category: log.CategoryDefer,
			DeviceID: "disk", Sequence: 2, Interrupt: &log.InterruptEvent{Priority: 5}},
		dispatch("network", 1, 3, 2*time.Millisecond),
		{Timestamp: ts.Add(time.Second), SessionID: "s1", Component: log.ComponentDispatcher, Category: log.CategoryWait,
			Wait: &log.WaitEvent{Deferred: 1, Wake: log.WakeMaskChange}},
		dispatch("disk", 2, 5, 4*time.Millisecond),
		dispatch("disk", 3, 5, 8*time.Millisecond),
		{Timestamp: ts.Add(2 * time.Second), SessionID: "s1", Component: log.ComponentDispatcher, Category: log.CategoryError,
			DeviceID: "disk", Sequence: 3, Error: &log.ErrorEventData{Component: log.ComponentDispatcher, Message: "fault"}},
	}
}

func TestCollectStats(t *testing.T) {
	path := createTestLogFile(t, statsEvents())

	stats, err := collectStats(path)
	if err != nil {
		t.Fatalf("collectStats failed: %v", err)
	}

	if stats.TotalEvents != 8 {
		t.Errorf("TotalEvents = %d, want 8", stats.TotalEvents)
	}
	if stats.EventsByComponent[log.ComponentDispatcher] != 6 {
		t.Errorf("dispatcher events = %d, want 6", stats.EventsByComponent[log.ComponentDispatcher])
	}
	if stats.WaitsByWake[log.WakeMaskChange] != 1 {
		t.Errorf("mask-change waits = %d, want 1", stats.WaitsByWake[log.WakeMaskChange])
	}
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if len(stats.Sessions) != 1 {
		t.Errorf("Sessions = %d, want 1", len(stats.Sessions))
	}

	disk := stats.Devices["disk"]
	if disk == nil {
		t.Fatal("missing disk stats")
	}
	if disk.Submitted != 1 || disk.Dispatched != 2 || disk.Deferred != 1 || disk.Failed != 1 {
		t.Errorf("unexpected disk stats: %+v", disk)
	}
	if disk.LatencyMin != 4*time.Millisecond || disk.LatencyMax != 8*time.Millisecond {
		t.Errorf("latency range = %s..%s", disk.LatencyMin, disk.LatencyMax)
	}
	if disk.AvgLatency() != 6*time.Millisecond {
		t.Errorf("AvgLatency = %s, want 6ms", disk.AvgLatency())
	}
}

func TestStatsOutput(t *testing.T) {
	path := createTestLogFile(t, statsEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 8",
		"QUEUE:",
		"DISPATCHER:",
		"DEFER:",
		"MASK_CHANGE:",
		"Devices: 2",
		"[disk] prio 5: 1 submitted, 2 dispatched, 1 deferred",
		"Latency: min 4.000ms, avg 6.000ms, max 8.000ms",
		"Failed: 1",
		"Errors: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}

	// Devices are listed highest priority first.
	if strings.Index(output, "[disk]") > strings.Index(output, "[network]") {
		t.Errorf("expected disk before network, got:\n%s", output)
	}
}

func TestStatsEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("expected zero total, got:\n%s", buf.String())
	}
}
