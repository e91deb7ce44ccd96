// Package dispatch implements the single-worker interrupt dispatcher.
//
// The dispatcher repeatedly takes the best pending event from the queue.
// Events whose device is masked are held in a dispatcher-local deferred set
// while the scan continues to lower-priority work; the first unmasked event
// found is handed to the Handler, after the deferred events have been put
// back into the queue with their original sequence numbers.
//
// # Waiting on Masked Work
//
// When every pending event is masked the dispatcher sleeps until a mask
// changes, a new event is submitted, a stop is requested, or WaitTimeout
// (default 200ms) expires. The notification channels are captured before
// the masks are checked, so a change racing with the check still wakes the
// dispatcher; the timeout only bounds the damage of a missed wake-up.
//
// # Lifecycle
//
//	IDLE -> RUNNING -> DRAINING -> STOPPED
//	           \___________________/
//
// RequestStop (or cancelling the context passed to Run) is cooperative:
// everything already queued or deferred is dispatched before STOPPED.
// A handler call in progress is never interrupted.
//
// # Failures
//
// Handler errors and panics are reported as *HandlerFailure through slog,
// the trace log and Config.OnFailure. They never stop the dispatcher.
package dispatch
