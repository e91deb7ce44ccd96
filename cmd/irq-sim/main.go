// Command irq-sim is an interactive software interrupt controller simulator.
//
// Devices raise interrupts at random (or on demand); a single dispatcher
// services the highest-priority unmasked interrupt next while masked ones
// wait until their device is unmasked.
//
// Usage:
//
//	irq-sim [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-trace-log string     Write a CBOR trace log to this file
//	-seed uint            Random seed for the generator (0 = random)
//	-interval duration    Cycle interval for automatic generation
//	-auto                 Start automatic generation immediately
//	-interactive          Run the interactive console (default true)
//
// Examples:
//
//	# Interactive console with the default keyboard/mouse/printer setup
//	irq-sim
//
//	# Unattended run with a trace log for irq-log
//	irq-sim -interactive=false -auto -interval 200ms -trace-log run.ilog
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/irqsim/irqsim/cmd/irq-sim/interactive"
	"github.com/irqsim/irqsim/pkg/config"
	"github.com/irqsim/irqsim/pkg/controller"
	"github.com/irqsim/irqsim/pkg/dispatch"
	"github.com/irqsim/irqsim/pkg/generator"
	"github.com/irqsim/irqsim/pkg/isr"
	tracelog "github.com/irqsim/irqsim/pkg/log"
)

// Flags holds the command-line settings.
type Flags struct {
	ConfigFile  string
	LogLevel    string
	TraceLog    string
	Seed        uint64
	Interval    time.Duration
	Auto        bool
	Interactive bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.TraceLog, "trace-log", "", "Write a CBOR trace log to this file")
	flag.Uint64Var(&flags.Seed, "seed", 0, "Random seed for the generator (0 = random)")
	flag.DurationVar(&flags.Interval, "interval", 0, "Cycle interval for automatic generation")
	flag.BoolVar(&flags.Auto, "auto", false, "Start automatic generation immediately")
	flag.BoolVar(&flags.Interactive, "interactive", true, "Run the interactive console")
}

func main() {
	flag.Parse()

	setupLogging(flags.LogLevel)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Println("Interrupt Controller Simulator")
	log.Println("==============================")
	for _, d := range cfg.Devices {
		log.Printf("Device %-10s priority %d, rate %.0f%%", d.ID, d.Priority, d.Rate*100)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
	log.Println("Goodbye!")
}

// loadConfig reads the configuration file (if any) and applies the flags
// that were set explicitly.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flags.ConfigFile != "" {
		loaded, err := config.Load(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "trace-log":
			cfg.TraceLog = flags.TraceLog
		case "seed":
			cfg.Generator.Seed = flags.Seed
		case "interval":
			cfg.Generator.Interval = flags.Interval
		case "auto":
			cfg.Generator.Auto = flags.Auto
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var console *interactive.Console
	out := &switchWriter{w: os.Stdout}
	if flags.Interactive {
		c, err := interactive.New()
		if err != nil {
			return fmt.Errorf("failed to create console: %w", err)
		}
		console = c
		// Redirect output through readline to avoid interfering with input
		out.Set(console.Stdout())
		log.SetOutput(out)
	}
	logger := newSlogger(flags.LogLevel, out)

	traceLogger, closeTrace, err := openTraceLog(cfg.TraceLog, logger)
	if err != nil {
		return err
	}
	defer closeTrace()

	reg, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("failed to build device registry: %w", err)
	}

	routine := isr.New(out, isr.Config{
		ServiceTime: cfg.Handler.ServiceTime,
		FailPayload: cfg.Handler.FailPayload,
	})

	ctrlCfg := controller.DefaultConfig()
	ctrlCfg.Logger = logger
	ctrlCfg.TraceLogger = traceLogger
	ctrlCfg.Dispatch.WaitTimeout = cfg.Dispatch.WaitTimeout
	ctrlCfg.Dispatch.OnFailure = func(f *dispatch.HandlerFailure) {
		fmt.Fprintf(out, "%v\n", f)
	}
	ctrl := controller.New(reg, routine, ctrlCfg)

	for _, id := range cfg.InitiallyMasked() {
		if err := ctrl.SetMask(id, true); err != nil {
			return err
		}
	}

	sources := make([]generator.Source, len(cfg.Devices))
	for i, d := range cfg.Devices {
		sources[i] = generator.Source{Device: d.Device().ID, Rate: d.Rate}
	}

	gen, err := generator.New(ctrl, generator.Config{
		Sources: sources,
		Seed:    cfg.Generator.Seed,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	// The dispatcher gets its own context: quitting must drain, not abort.
	if err := ctrl.Start(context.Background()); err != nil {
		return err
	}
	log.Printf("Controller started (session %s)", ctrl.SessionID())

	g, gctx := errgroup.WithContext(ctx)

	if console != nil {
		console.Bind(interactive.Simulator{
			Controller: ctrl,
			Generator:  gen,
			Routine:    routine,
			Interval:   cfg.Generator.Interval,
		})
		if cfg.Generator.Auto {
			console.StartAuto()
		}
		g.Go(func() error {
			console.Run(gctx, cancel)
			return nil
		})
		// Unblock Readline on signals.
		g.Go(func() error {
			<-gctx.Done()
			_ = console.Close()
			return nil
		})
	} else if cfg.Generator.Auto {
		g.Go(func() error {
			err := gen.Run(gctx, cfg.Generator.Interval, func(c generator.Cycle) {
				interactive.ReportCycle(out, c, ctrl.IsMasked)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("Error: %v", err)
	}
	// The terminal is released; handler output continues on stdout.
	out.Set(os.Stdout)

	log.Println("Shutting down...")
	return drain(ctrl, cfg.Dispatch.DrainTimeout)
}

// drain stops the controller and waits for pending interrupts.
func drain(ctrl *controller.Controller, timeout time.Duration) error {
	ctrl.RequestStop()

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := ctrl.Wait(ctx); err != nil {
		st := ctrl.Status()
		return fmt.Errorf("gave up draining after %s with %d pending interrupt(s): %w",
			timeout, len(st.Pending), err)
	}

	st := ctrl.Status().Stats
	log.Printf("Dispatched %d interrupt(s), %d failed", st.Dispatched, st.Failed)
	return nil
}

func openTraceLog(path string, logger *slog.Logger) (tracelog.Logger, func(), error) {
	var loggers []tracelog.Logger
	closeFn := func() {}

	if path != "" {
		fl, err := tracelog.NewFileLogger(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open trace log: %w", err)
		}
		log.Printf("Trace log: %s", path)
		loggers = append(loggers, fl)
		closeFn = func() {
			if err := fl.Close(); err != nil {
				log.Printf("Error closing trace log: %v", err)
			}
		}
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, tracelog.NewSlogAdapter(logger))
	}

	switch len(loggers) {
	case 0:
		return tracelog.NoopLogger{}, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return tracelog.NewMultiLogger(loggers...), closeFn, nil
	}
}

func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}
}

func newSlogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// switchWriter is an io.Writer whose destination can change while in use.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) Set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}
