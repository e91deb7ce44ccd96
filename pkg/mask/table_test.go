package mask

import (
	"errors"
	"sync"
	"testing"

	"github.com/irqsim/irqsim/pkg/device"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	reg, err := device.NewRegistry(device.Defaults()...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewTable(reg)
}

func TestTableDefaultsUnmasked(t *testing.T) {
	tbl := newTestTable(t)

	for _, id := range []device.ID{"keyboard", "mouse", "printer"} {
		if tbl.IsMasked(id) {
			t.Errorf("IsMasked(%s) = true, want false", id)
		}
	}
}

func TestTableUnknownDeviceIsMasked(t *testing.T) {
	tbl := newTestTable(t)

	if !tbl.IsMasked("scanner") {
		t.Error("IsMasked(scanner) = false, want true for unknown device")
	}

	err := tbl.SetMask("scanner", false)
	if !errors.Is(err, device.ErrUnknownDevice) {
		t.Errorf("SetMask(scanner) error = %v, want ErrUnknownDevice", err)
	}
}

func TestTableSetMask(t *testing.T) {
	tbl := newTestTable(t)

	if err := tbl.SetMask("mouse", true); err != nil {
		t.Fatalf("SetMask failed: %v", err)
	}
	if !tbl.IsMasked("mouse") {
		t.Error("IsMasked(mouse) = false after masking")
	}

	// Idempotent.
	if err := tbl.SetMask("mouse", true); err != nil {
		t.Fatalf("SetMask again failed: %v", err)
	}
	if !tbl.IsMasked("mouse") {
		t.Error("IsMasked(mouse) = false after masking twice")
	}

	if err := tbl.SetMask("mouse", false); err != nil {
		t.Fatalf("SetMask(false) failed: %v", err)
	}
	if tbl.IsMasked("mouse") {
		t.Error("IsMasked(mouse) = true after unmasking")
	}
}

func TestTableAllMasked(t *testing.T) {
	tbl := newTestTable(t)
	_ = tbl.SetMask("keyboard", true)
	_ = tbl.SetMask("mouse", true)

	tests := []struct {
		name string
		ids  []device.ID
		want bool
	}{
		{"Empty", nil, true},
		{"AllMasked", []device.ID{"keyboard", "mouse"}, true},
		{"Duplicates", []device.ID{"mouse", "mouse"}, true},
		{"OneUnmasked", []device.ID{"keyboard", "printer"}, false},
		{"UnknownCountsAsMasked", []device.ID{"keyboard", "scanner"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tbl.AllMasked(tt.ids...); got != tt.want {
				t.Errorf("AllMasked(%v) = %v, want %v", tt.ids, got, tt.want)
			}
		})
	}
}

func TestTableReset(t *testing.T) {
	tbl := newTestTable(t)
	_ = tbl.SetMask("keyboard", true)
	_ = tbl.SetMask("printer", true)

	tbl.Reset()

	for id, masked := range tbl.Snapshot() {
		if masked {
			t.Errorf("%s still masked after Reset", id)
		}
	}
}

func TestTableSnapshot(t *testing.T) {
	tbl := newTestTable(t)
	_ = tbl.SetMask("printer", true)

	snap := tbl.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot() len = %d, want 3", len(snap))
	}
	if !snap["printer"] || snap["keyboard"] || snap["mouse"] {
		t.Errorf("Snapshot() = %v", snap)
	}
}

func TestTableChangesNotifies(t *testing.T) {
	tbl := newTestTable(t)

	ch := tbl.Changes()
	select {
	case <-ch:
		t.Fatal("Changes closed before any mutation")
	default:
	}

	_ = tbl.SetMask("keyboard", false) // no value change, still wakes

	select {
	case <-ch:
	default:
		t.Fatal("Changes not closed after SetMask")
	}

	ch = tbl.Changes()
	tbl.Reset()
	select {
	case <-ch:
	default:
		t.Fatal("Changes not closed after Reset")
	}
}

func TestTableFailedSetMaskDoesNotNotify(t *testing.T) {
	tbl := newTestTable(t)

	ch := tbl.Changes()
	_ = tbl.SetMask("scanner", true)

	select {
	case <-ch:
		t.Fatal("Changes closed after rejected SetMask")
	default:
	}
}

func TestTableConcurrentAccess(t *testing.T) {
	tbl := newTestTable(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = tbl.SetMask("mouse", (i+j)%2 == 0)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = tbl.IsMasked("mouse")
				_ = tbl.AllMasked("mouse", "keyboard")
				_ = tbl.Changes()
			}
		}()
	}
	wg.Wait()

	if err := tbl.SetMask("mouse", false); err != nil {
		t.Fatal(err)
	}
	if tbl.IsMasked("mouse") {
		t.Error("IsMasked(mouse) = true after final unmask")
	}
}
