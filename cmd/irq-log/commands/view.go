// Package commands implements the irq-log CLI commands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/irqsim/irqsim/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Component *log.Component
	Category  *log.Category
	DeviceID  string
}

func (f ViewFilter) matches(e log.Event) bool {
	if f.Component != nil && e.Component != *f.Component {
		return false
	}
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	if f.DeviceID != "" && e.DeviceID != f.DeviceID {
		return false
	}
	return true
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session:id] COMPONENT CATEGORY device#seq
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	header := fmt.Sprintf("%s [session:%s] %-10s %s", ts, shortenSessionID(event.SessionID),
		event.Component.String(), event.Category.String())
	if event.DeviceID != "" {
		header += " " + event.DeviceID
		if event.Sequence != 0 {
			header += fmt.Sprintf("#%d", event.Sequence)
		}
	}
	fmt.Fprintln(w, header)

	switch {
	case event.Interrupt != nil:
		formatInterruptDetails(w, event.Interrupt)
	case event.Mask != nil:
		formatMaskDetails(w, event.Mask)
	case event.Wait != nil:
		formatWaitDetails(w, event.Wait)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatInterruptDetails(w io.Writer, ie *log.InterruptEvent) {
	fmt.Fprintf(w, "  Priority: %d\n", ie.Priority)
	if ie.Payload != nil {
		payloadJSON, err := json.Marshal(ie.Payload)
		if err == nil {
			fmt.Fprintf(w, "  Payload: %s\n", string(payloadJSON))
		}
	}
	if ie.Latency != nil {
		fmt.Fprintf(w, "  Latency: %s\n", formatDuration(*ie.Latency))
	}
	if ie.Duration != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*ie.Duration))
	}
}

func formatMaskDetails(w io.Writer, me *log.MaskEvent) {
	switch {
	case me.Reset:
		fmt.Fprintln(w, "  All devices unmasked")
	case me.Masked:
		fmt.Fprintln(w, "  Masked")
	default:
		fmt.Fprintln(w, "  Unmasked")
	}
}

func formatWaitDetails(w io.Writer, we *log.WaitEvent) {
	fmt.Fprintf(w, "  Held: %d\n", we.Deferred)
	fmt.Fprintf(w, "  Waited: %s\n", formatDuration(we.Waited))
	fmt.Fprintf(w, "  Wake: %s\n", we.Wake.String())
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Component: %s\n", err.Component.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseComponentFlag parses a component string from command-line flag (case-insensitive).
func ParseComponentFlag(s string) (log.Component, error) {
	return parseComponent(s)
}

func parseComponent(s string) (log.Component, error) {
	switch strings.ToLower(s) {
	case "queue":
		return log.ComponentQueue, nil
	case "mask":
		return log.ComponentMask, nil
	case "dispatcher":
		return log.ComponentDispatcher, nil
	default:
		return 0, fmt.Errorf("invalid component: %s (must be queue, mask, or dispatcher)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	for _, c := range log.Categories {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	names := make([]string, len(log.Categories))
	for i, c := range log.Categories {
		names[i] = strings.ToLower(c.String())
	}
	return 0, fmt.Errorf("invalid category: %s (must be one of %s)", s, strings.Join(names, ", "))
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		if !filter.matches(event) {
			continue
		}

		formatEvent(output, event)
	}

	return nil
}
