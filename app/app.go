// Package app wires the domain services together and drives them. All
// session mutation and acquisition happens on one goroutine: input events
// and sensor ticks are applied strictly interleaved, never concurrently.
package app

import (
	"log/slog"
	"time"

	"github.com/maruel/interrupt"

	"github.com/tbeaulieu/mlxcam-go/config"
	"github.com/tbeaulieu/mlxcam-go/debug"
	"github.com/tbeaulieu/mlxcam-go/domain/acquire"
	"github.com/tbeaulieu/mlxcam-go/ui/web"
)

const (
	eventQueueSize = 16
	debugLogEvery  = 10 * time.Second
)

// App owns the container and the driver goroutine's event queue.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	c      *AppContainer
	events chan acquire.InputEvent
}

var _ web.EventPoster = (*App)(nil)

// NewApp builds the application container and its event queue.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: logger,
		events: make(chan acquire.InputEvent, eventQueueSize),
	}
	c, err := BuildContainer(cfg, logger, a)
	if err != nil {
		return nil, err
	}
	a.c = c
	return a, nil
}

// Post queues an input event for the driver without blocking. It reports
// false when the queue is full.
func (a *App) Post(ev acquire.InputEvent) bool {
	select {
	case a.events <- ev:
		return true
	default:
		return false
	}
}

// Container exposes the wired components, mainly for tests.
func (a *App) Container() *AppContainer { return a.c }

// Run starts the web server and processes events and ticks until shutdown
// or a fatal acquisition error. It blocks until done.
func (a *App) Run() error {
	if a.cfg.Debug {
		debug.StartGoroutineLogger(debugLogEvery, a.logger)
		debug.StartMemLogger(debugLogEvery, a.logger)
	}
	if err := a.c.Web.Start(); err != nil {
		_ = a.c.Recorder.Close()
		return err
	}
	defer a.shutdown()

	interval := time.Duration(float64(time.Second) / a.cfg.RefreshHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("driver started",
		slog.String("source", a.cfg.Source),
		slog.Duration("tick_interval", interval),
	)
	for {
		select {
		case <-interrupt.Channel:
			a.logger.Info("shutdown requested")
			return nil
		case ev := <-a.events:
			a.c.Session.Apply(ev)
		case now := <-ticker.C:
			if err := a.c.Loop.Tick(now); err != nil {
				a.logger.Error("acquisition stopped", slog.String("err", err.Error()))
				return err
			}
		}
	}
}

// shutdown releases everything the container opened. Close failures are
// logged, not returned, so every component gets its chance.
func (a *App) shutdown() {
	if err := a.c.Web.Close(); err != nil {
		a.logger.Warn("web close failed", slog.String("err", err.Error()))
	}
	a.c.Loop.Close()
	if err := a.c.Recorder.Close(); err != nil {
		a.logger.Warn("record log close failed", slog.String("err", err.Error()))
	}
	if closer, ok := a.c.Source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("frame source close failed", slog.String("err", err.Error()))
		}
	}
	a.logger.Info("shutdown complete")
}
