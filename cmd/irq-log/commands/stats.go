package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/irqsim/irqsim/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByComponent map[log.Component]int
	EventsByCategory  map[log.Category]int
	WaitsByWake       map[log.WakeReason]int
	Devices           map[string]*DeviceStats
	Sessions          map[string]struct{}
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// DeviceStats holds statistics for a single device.
type DeviceStats struct {
	Priority     int
	Submitted    int
	Dispatched   int
	Deferred     int
	Failed       int
	LatencyTotal time.Duration
	LatencyMin   time.Duration
	LatencyMax   time.Duration
	latencies    int
}

// AvgLatency returns the mean dispatch latency, or zero with no samples.
func (d *DeviceStats) AvgLatency() time.Duration {
	if d.latencies == 0 {
		return 0
	}
	return d.LatencyTotal / time.Duration(d.latencies)
}

func (d *DeviceStats) addLatency(l time.Duration) {
	if d.latencies == 0 || l < d.LatencyMin {
		d.LatencyMin = l
	}
	if l > d.LatencyMax {
		d.LatencyMax = l
	}
	d.LatencyTotal += l
	d.latencies++
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := collectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func collectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByComponent: make(map[log.Component]int),
		EventsByCategory:  make(map[log.Category]int),
		WaitsByWake:       make(map[log.WakeReason]int),
		Devices:           make(map[string]*DeviceStats),
		Sessions:          make(map[string]struct{}),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByComponent[event.Component]++
		stats.EventsByCategory[event.Category]++
		if event.SessionID != "" {
			stats.Sessions[event.SessionID] = struct{}{}
		}

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		if event.Wait != nil {
			stats.WaitsByWake[event.Wait.Wake]++
		}
		if event.Error != nil {
			stats.Errors++
		}

		if event.DeviceID == "" {
			continue
		}
		dev, ok := stats.Devices[event.DeviceID]
		if !ok {
			dev = &DeviceStats{}
			stats.Devices[event.DeviceID] = dev
		}
		if event.Interrupt != nil {
			dev.Priority = event.Interrupt.Priority
		}
		switch event.Category {
		case log.CategorySubmit:
			dev.Submitted++
		case log.CategoryDefer:
			dev.Deferred++
		case log.CategoryError:
			dev.Failed++
		case log.CategoryDispatch:
			dev.Dispatched++
			if event.Interrupt != nil && event.Interrupt.Latency != nil {
				dev.addLatency(*event.Interrupt.Latency)
			}
		}
	}

	return stats, nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Interrupt Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintf(w, "Sessions:   %d\n", len(stats.Sessions))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Component:")
	for _, c := range []log.Component{log.ComponentQueue, log.ComponentMask, log.ComponentDispatcher} {
		if count := stats.EventsByComponent[c]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range log.Categories {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}

	if len(stats.WaitsByWake) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Waits by Wake Reason:")
		for _, wr := range []log.WakeReason{log.WakeMaskChange, log.WakeArrival, log.WakeTimeout, log.WakeStop} {
			if count := stats.WaitsByWake[wr]; count > 0 {
				fmt.Fprintf(w, "  %-12s %d\n", wr.String()+":", count)
			}
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Devices: %d\n", len(stats.Devices))
	if len(stats.Devices) > 0 {
		ids := make([]string, 0, len(stats.Devices))
		for id := range stats.Devices {
			ids = append(ids, id)
		}
		// Highest priority first, then by name.
		sort.Slice(ids, func(i, j int) bool {
			a, b := stats.Devices[ids[i]], stats.Devices[ids[j]]
			if a.Priority != b.Priority {
				return a.Priority > b.Priority
			}
			return ids[i] < ids[j]
		})

		fmt.Fprintln(w)
		for _, id := range ids {
			d := stats.Devices[id]
			fmt.Fprintf(w, "  [%s] prio %d: %d submitted, %d dispatched, %d deferred\n",
				id, d.Priority, d.Submitted, d.Dispatched, d.Deferred)
			if d.latencies > 0 {
				fmt.Fprintf(w, "           Latency: min %s, avg %s, max %s\n",
					formatDuration(d.LatencyMin), formatDuration(d.AvgLatency()), formatDuration(d.LatencyMax))
			}
			if d.Failed > 0 {
				fmt.Fprintf(w, "           Failed: %d\n", d.Failed)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
