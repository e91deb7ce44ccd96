package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ef-ds/deque"

	"github.com/irqsim/irqsim/pkg/device"
	"github.com/irqsim/irqsim/pkg/log"
	"github.com/irqsim/irqsim/pkg/mask"
	"github.com/irqsim/irqsim/pkg/queue"
)

// Dispatcher is the single worker that services pending interrupts.
type Dispatcher struct {
	queue   *queue.Queue
	masks   *mask.Table
	handler Handler
	config  Config

	// deferred holds queue.Event values popped during the current scan
	// whose device was masked. Only the Run goroutine touches it.
	deferred *deque.Deque

	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	mu    sync.RWMutex
	state State

	dispatched    atomic.Uint64
	failed        atomic.Uint64
	deferCount    atomic.Uint64
	requeued      atomic.Uint64
	waits         atomic.Uint64
	wakeByMask    atomic.Uint64
	wakeByArrival atomic.Uint64
	wakeByTimeout atomic.Uint64
	wakeByStop    atomic.Uint64

	now func() time.Time
}

// New creates a dispatcher consuming from q, consulting masks and invoking h.
func New(q *queue.Queue, masks *mask.Table, h Handler, cfg Config) *Dispatcher {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	return &Dispatcher{
		queue:    q,
		masks:    masks,
		handler:  h,
		config:   cfg,
		deferred: deque.New(),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		state:    StateIdle,
		now:      time.Now,
	}
}

// Run executes the dispatch loop until a stop is requested and all pending
// work has been handled. Cancelling ctx counts as a stop request; handlers
// still receive a context that is never cancelled.
// Run may be called once; later calls return ErrAlreadyRunning.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	// stopCtx is done once a stop was requested by either path.
	stopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-d.stopCh:
			cancel()
		case <-stopCtx.Done():
		}
	}()

	handlerCtx := context.WithoutCancel(ctx)
	d.setState(StateRunning, "run")

	for {
		if stopCtx.Err() != nil {
			if d.queue.Len() == 0 && d.deferred.Len() == 0 {
				d.setState(StateStopped, "drained")
				close(d.done)
				return nil
			}
			if d.State() == StateRunning {
				d.setState(StateDraining, "stop requested")
			}
		}

		var ev queue.Event
		if d.deferred.Len() == 0 {
			var err error
			ev, err = d.queue.TakeBest(stopCtx)
			if err != nil {
				if errors.Is(err, queue.ErrClosed) {
					d.RequestStop()
				}
				// Re-evaluate the stop condition.
				continue
			}
		} else {
			var ok bool
			ev, ok = d.queue.TryTakeBest()
			if !ok {
				d.settleDeferred(stopCtx)
				continue
			}
		}

		if d.masks.IsMasked(ev.Device.ID) {
			d.deferEvent(ev)
			continue
		}

		d.requeueDeferred()
		d.dispatch(handlerCtx, ev)
	}
}

// settleDeferred is called once the scan has exhausted the queue and every
// candidate was masked at the time it was popped. It returns the deferred
// events to the queue and, if all of them are still masked, sleeps until
// something could make one of them dispatchable.
func (d *Dispatcher) settleDeferred(stopCtx context.Context) {
	// Capture the notification channels before checking the masks so a
	// change racing with the check still wakes the wait below.
	changes := d.masks.Changes()
	arrivals := d.queue.Arrivals()

	ids := make([]device.ID, 0, d.deferred.Len())
	for i := 0; i < d.deferred.Len(); i++ {
		v, _ := d.deferred.PopFront()
		ev := v.(queue.Event)
		ids = append(ids, ev.Device.ID)
		d.deferred.PushBack(ev)
	}
	stillMasked := d.masks.AllMasked(ids...)
	// Something submitted after the scan emptied the queue.
	arrived := d.queue.Len() > 0

	// Held events go back before sleeping so Len and Snapshot stay accurate
	// while the dispatcher waits.
	held := d.requeueDeferred()
	if !stillMasked || arrived {
		return
	}

	// A stop only wakes the wait while RUNNING; draining keeps waiting on
	// mask changes and arrivals instead of spinning.
	var stop <-chan struct{}
	if stopCtx.Err() == nil {
		stop = stopCtx.Done()
	}

	timer := time.NewTimer(d.config.WaitTimeout)
	defer timer.Stop()

	start := d.now()
	var wake log.WakeReason
	select {
	case <-changes:
		wake = log.WakeMaskChange
		d.wakeByMask.Add(1)
	case <-arrivals:
		wake = log.WakeArrival
		d.wakeByArrival.Add(1)
	case <-stop:
		wake = log.WakeStop
		d.wakeByStop.Add(1)
	case <-timer.C:
		wake = log.WakeTimeout
		d.wakeByTimeout.Add(1)
	}
	waited := d.now().Sub(start)
	d.waits.Add(1)

	d.debugLog("wait finished", "held", held, "waited", waited, "wake", wake)
	d.trace(log.Event{
		Category: log.CategoryWait,
		Wait: &log.WaitEvent{
			Deferred: held,
			Waited:   waited,
			Wake:     wake,
		},
	})
}

func (d *Dispatcher) deferEvent(ev queue.Event) {
	d.deferred.PushBack(ev)
	d.deferCount.Add(1)
	d.trace(interruptEvent(log.CategoryDefer, ev))
}

// requeueDeferred returns every deferred event to the queue with its
// original sequence number and reports how many there were.
func (d *Dispatcher) requeueDeferred() int {
	n := 0
	for d.deferred.Len() > 0 {
		v, _ := d.deferred.PopFront()
		ev := v.(queue.Event)
		d.queue.Requeue(ev)
		d.requeued.Add(1)
		d.trace(interruptEvent(log.CategoryRequeue, ev))
		n++
	}
	return n
}

func (d *Dispatcher) dispatch(ctx context.Context, ev queue.Event) {
	start := d.now()
	latency := start.Sub(ev.SubmittedAt)

	err := d.invoke(ctx, ev)

	duration := d.now().Sub(start)
	d.dispatched.Add(1)

	te := interruptEvent(log.CategoryDispatch, ev)
	te.Interrupt.Latency = &latency
	te.Interrupt.Duration = &duration
	d.trace(te)

	if err == nil {
		d.debugLog("dispatched", "event", ev.String(), "latency", latency, "duration", duration)
		return
	}

	failure := &HandlerFailure{Event: ev, Err: err}
	d.failed.Add(1)
	if d.config.Logger != nil {
		d.config.Logger.Warn("handler failed", "event", ev.String(), "error", err)
	}
	d.trace(log.Event{
		Category: log.CategoryError,
		DeviceID: string(ev.Device.ID),
		Sequence: ev.Sequence,
		Error: &log.ErrorEventData{
			Component: log.ComponentDispatcher,
			Message:   err.Error(),
			Context:   "handle " + ev.String(),
		},
	})
	if d.config.OnFailure != nil {
		d.config.OnFailure(failure)
	}
}

// invoke calls the handler, converting a panic into an error.
func (d *Dispatcher) invoke(ctx context.Context, ev queue.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return d.handler.Handle(ctx, ev)
}

// RequestStop asks the dispatcher to drain pending work and stop.
// It is idempotent and may be called before Run.
func (d *Dispatcher) RequestStop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
	})
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// IsStopped reports whether the dispatcher reached STOPPED.
func (d *Dispatcher) IsStopped() bool {
	return d.State() == StateStopped
}

// Done returns a channel closed when the dispatcher reaches STOPPED.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Dispatched:    d.dispatched.Load(),
		Failed:        d.failed.Load(),
		Deferred:      d.deferCount.Load(),
		Requeued:      d.requeued.Load(),
		Waits:         d.waits.Load(),
		WakeByMask:    d.wakeByMask.Load(),
		WakeByArrival: d.wakeByArrival.Load(),
		WakeByTimeout: d.wakeByTimeout.Load(),
		WakeByStop:    d.wakeByStop.Load(),
	}
}

func (d *Dispatcher) setState(s State, reason string) {
	d.mu.Lock()
	old := d.state
	d.state = s
	d.mu.Unlock()

	d.debugLog("state change", "from", old, "to", s, "reason", reason)
	d.trace(log.Event{
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: old.String(),
			NewState: s.String(),
			Reason:   reason,
		},
	})
}

func (d *Dispatcher) trace(e log.Event) {
	if d.config.TraceLogger == nil {
		return
	}
	e.Timestamp = d.now()
	e.SessionID = d.config.SessionID
	e.Component = log.ComponentDispatcher
	d.config.TraceLogger.Log(e)
}

func (d *Dispatcher) debugLog(msg string, args ...any) {
	if d.config.Logger != nil {
		d.config.Logger.Debug(msg, args...)
	}
}

func interruptEvent(cat log.Category, ev queue.Event) log.Event {
	return log.Event{
		Category: cat,
		DeviceID: string(ev.Device.ID),
		Sequence: ev.Sequence,
		Interrupt: &log.InterruptEvent{
			Priority: ev.Device.Priority,
			Payload:  log.PayloadValue(ev.Payload),
		},
	}
}
