// Package log provides structured trace logging for the interrupt
// controller.
//
// This package defines the Logger interface and Event types for capturing
// every step an interrupt takes through the controller: submission, mask
// changes, deferral while masked, requeueing, dispatcher waits and handler
// execution. It is separate from operational logging (slog); the trace is
// a complete machine-readable record for replaying and analyzing a run.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.TraceLogger = log.NewSlogAdapter(slog.Default())
//
//	// For analysis: write to a binary file
//	cfg.TraceLogger, _ = log.NewFileLogger("/tmp/irq-sim.ilog")
//
//	// Both: use MultiLogger
//	cfg.TraceLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Each Event names the component that produced it (queue, mask table,
// dispatcher), a category, and carries one typed payload:
//   - InterruptEvent for submit, defer, requeue and dispatch
//   - MaskEvent for mask changes
//   - WaitEvent for dispatcher waits on masked work
//   - StateChangeEvent for dispatcher lifecycle transitions
//   - ErrorEventData for handler failures
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events with the .ilog extension.
// The irq-log CLI provides viewing, filtering, statistics and export.
package log
