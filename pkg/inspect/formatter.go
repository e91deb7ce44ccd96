// Package inspect renders controller state as text for consoles and logs.
package inspect

import (
	"fmt"
	"strings"
	"time"

	"github.com/irqsim/irqsim/pkg/controller"
	"github.com/irqsim/irqsim/pkg/device"
	"github.com/irqsim/irqsim/pkg/dispatch"
	"github.com/irqsim/irqsim/pkg/queue"
)

// Formatter formats inspection output.
type Formatter struct {
	// ShowIDs includes device IDs alongside labels
	ShowIDs bool

	// ShowAge includes the time an event has been pending
	ShowAge bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int

	// now is replaceable for tests.
	now func() time.Time
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowIDs:     false,
		ShowAge:     true,
		IndentWidth: 2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	return strings.Repeat(" ", depth*width) + content
}

// FormatValue formats a payload for display.
func (f *Formatter) FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case string:
		return fmt.Sprintf("%q", v)
	case []byte:
		return fmt.Sprintf("0x%x", v)
	case time.Duration:
		return FormatDuration(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FormatDuration rounds d for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(100 * time.Microsecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

// FormatMask returns MASKED or UNMASKED.
func FormatMask(masked bool) string {
	if masked {
		return "MASKED"
	}
	return "UNMASKED"
}

func (f *Formatter) deviceName(d device.Device) string {
	if f.ShowIDs && d.Label != "" && string(d.ID) != d.Label {
		return fmt.Sprintf("%s (%s)", d.Label, d.ID)
	}
	return d.String()
}

// FormatDeviceTable formats one line per device: name, priority, mask
// flag and pending count.
func (f *Formatter) FormatDeviceTable(rows []controller.DeviceStatus) string {
	if len(rows) == 0 {
		return f.Indent(1, "(no devices)") + "\n"
	}

	names := make([]string, len(rows))
	width := 0
	for i, row := range rows {
		names[i] = f.deviceName(row.Device)
		width = max(width, len(names[i]))
	}

	var sb strings.Builder
	for i, row := range rows {
		line := fmt.Sprintf("%-*s  prio %-3d %-8s  pending %d",
			width, names[i], row.Device.Priority, FormatMask(row.Masked), row.Pending)
		sb.WriteString(f.Indent(1, line))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatPending formats pending events in dispatch order.
func (f *Formatter) FormatPending(events []queue.Event) string {
	if len(events) == 0 {
		return f.Indent(1, "(no pending interrupts)") + "\n"
	}

	now := time.Now
	if f.now != nil {
		now = f.now
	}
	t := now()

	var sb strings.Builder
	for i, ev := range events {
		line := fmt.Sprintf("%d. #%d %s (prio %d) payload=%s",
			i+1, ev.Sequence, f.deviceName(ev.Device), ev.Device.Priority, f.FormatValue(ev.Payload))
		if f.ShowAge && !ev.SubmittedAt.IsZero() {
			line += " age=" + FormatDuration(t.Sub(ev.SubmittedAt))
		}
		sb.WriteString(f.Indent(1, line))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatStats formats dispatcher counters.
func (f *Formatter) FormatStats(s dispatch.Stats) string {
	var sb strings.Builder
	line := func(name string, v uint64) {
		sb.WriteString(f.Indent(1, fmt.Sprintf("%-11s %d", name+":", v)))
		sb.WriteString("\n")
	}
	line("Dispatched", s.Dispatched)
	line("Failed", s.Failed)
	line("Deferred", s.Deferred)
	line("Requeued", s.Requeued)
	line("Waits", s.Waits)
	if s.Waits > 0 {
		sb.WriteString(f.Indent(2, fmt.Sprintf("mask change %d, arrival %d, timeout %d, stop %d",
			s.WakeByMask, s.WakeByArrival, s.WakeByTimeout, s.WakeByStop)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatStatus formats a complete controller status.
func (f *Formatter) FormatStatus(st controller.Status) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dispatcher: %s (%d pending)\n", st.State, len(st.Pending))
	sb.WriteString(f.FormatDeviceTable(st.Devices))
	return sb.String()
}
