package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/irqsim/irqsim/pkg/log"
	"github.com/irqsim/irqsim/pkg/queue"
)

// Dispatcher errors.
var (
	ErrAlreadyRunning = errors.New("dispatcher already running")
	ErrHandlerFailed  = errors.New("handler failed")
	ErrHandlerPanic   = errors.New("handler panicked")
)

// DefaultWaitTimeout bounds a wait on masked work.
const DefaultWaitTimeout = 200 * time.Millisecond

// State represents the dispatcher lifecycle state.
type State uint8

const (
	// StateIdle - created, Run not called yet.
	StateIdle State = iota

	// StateRunning - dispatching normally.
	StateRunning

	// StateDraining - stop requested, pending work remains.
	StateDraining

	// StateStopped - terminal; no further handler calls.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Handler services a dispatched event. It is called from the dispatcher
// goroutine with no internal locks held and may block for as long as it
// needs. The context is never cancelled by the dispatcher.
type Handler interface {
	Handle(ctx context.Context, ev queue.Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev queue.Event) error

// Handle calls f(ctx, ev).
func (f HandlerFunc) Handle(ctx context.Context, ev queue.Event) error {
	return f(ctx, ev)
}

// HandlerFailure reports a handler error for one event.
type HandlerFailure struct {
	Event queue.Event
	Err   error
}

func (f *HandlerFailure) Error() string {
	return fmt.Sprintf("handler failed for %s: %v", f.Event, f.Err)
}

// Unwrap returns the handler's error.
func (f *HandlerFailure) Unwrap() error {
	return f.Err
}

// Is makes errors.Is(err, ErrHandlerFailed) hold.
func (f *HandlerFailure) Is(target error) bool {
	return target == ErrHandlerFailed
}

// Config holds dispatcher configuration.
type Config struct {
	// WaitTimeout bounds a wait on masked work. Zero means DefaultWaitTimeout.
	WaitTimeout time.Duration

	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// TraceLogger receives structured trace events (optional).
	TraceLogger log.Logger

	// SessionID is stamped on trace events.
	SessionID string

	// OnFailure is called on the dispatcher goroutine for every handler
	// failure (optional).
	OnFailure func(*HandlerFailure)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		WaitTimeout: DefaultWaitTimeout,
	}
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	// Dispatched counts handler invocations, failed ones included.
	Dispatched uint64

	// Failed counts handler invocations that returned an error or panicked.
	Failed uint64

	// Deferred counts events held because their device was masked.
	Deferred uint64

	// Requeued counts deferred events returned to the queue.
	Requeued uint64

	// Waits counts bounded waits on masked work, by wake reason.
	Waits         uint64
	WakeByMask    uint64
	WakeByArrival uint64
	WakeByTimeout uint64
	WakeByStop    uint64
}
