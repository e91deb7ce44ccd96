package log

import (
	"testing"
	"time"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NoopLogger{}

	event := Event{
		Timestamp: time.Now(),
		SessionID: "test-session",
		Component: ComponentDispatcher,
		Category:  CategoryDispatch,
	}

	logger.Log(event)

	event.Interrupt = &InterruptEvent{Priority: 3, Payload: "A"}
	logger.Log(event)

	event.Interrupt = nil
	event.Mask = &MaskEvent{Masked: true}
	logger.Log(event)

	event.Mask = nil
	event.Wait = &WaitEvent{Deferred: 2, Wake: WakeTimeout}
	logger.Log(event)

	event.Wait = nil
	event.StateChange = &StateChangeEvent{NewState: "RUNNING"}
	logger.Log(event)

	event.StateChange = nil
	event.Error = &ErrorEventData{Message: "test error"}
	logger.Log(event)
}

func TestNoopLoggerIsZeroValue(t *testing.T) {
	var logger NoopLogger
	logger.Log(Event{})
}
