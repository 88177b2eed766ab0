package app

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/tbeaulieu/mlxcam-go/config"
	"github.com/tbeaulieu/mlxcam-go/domain/acquire"
	"github.com/tbeaulieu/mlxcam-go/domain/roi"
	"github.com/tbeaulieu/mlxcam-go/domain/sensor"
	"github.com/tbeaulieu/mlxcam-go/ui/web"
)

// AppContainer assembles the frame source, region session, acquisition
// loop, recorder and web server.
type AppContainer struct {
	Config   *config.Config
	Logger   *slog.Logger
	Source   sensor.Source
	Manager  *roi.Manager
	Session  *acquire.Session
	Recorder *acquire.Recorder
	Capacity acquire.Estimate
	Loop     *acquire.Loop
	Web      *web.Server
}

// BuildContainer constructs all components and wires the listeners. The
// poster carries web input events into the driver queue. Side effects are
// limited to opening the record log and querying free disk space.
func BuildContainer(cfg *config.Config, logger *slog.Logger, poster web.EventPoster) (*AppContainer, error) {
	c := &AppContainer{Config: cfg, Logger: logger}

	src, err := buildSource(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Source = src

	rec, err := acquire.NewRecorder(cfg.OutputDir, time.Now())
	if err != nil {
		return nil, errors.Wrap(err, "open record log")
	}
	c.Recorder = rec
	logger.Info("record log opened", slog.String("path", rec.Path()))

	free, err := acquire.FreeBytes(cfg.OutputDir)
	if err != nil {
		logger.Warn("free space query failed", slog.String("err", err.Error()))
	}
	c.Capacity = acquire.EstimateCapacity(free, acquire.RecordSizeEstimate(), cfg.RefreshHz)
	logger.Info("free disk space", slog.Uint64("bytes", c.Capacity.FreeBytes))
	logger.Info("estimated bytes per frame", slog.Int("bytes", c.Capacity.BytesPerFrame))
	logger.Info("estimated recording capacity",
		slog.Float64("seconds", c.Capacity.Seconds),
		slog.Float64("hours", c.Capacity.Hours),
	)

	c.Manager = roi.NewManager()
	c.Session = acquire.NewSession(logger, c.Manager)
	c.Loop = acquire.NewLoop(logger, c.Session, c.Source, c.Recorder, c.Capacity)

	c.Web = web.New(logger, c.Session, c.Loop, poster, web.Options{
		Addr:       cfg.ListenAddr,
		Scale:      cfg.Scale,
		RecordPath: rec.Path(),
	})
	c.Session.AddListener(c.Web.PublishChange)
	c.Loop.AddListener(c.Web.PublishSnapshot)
	return c, nil
}

// buildSource picks the frame source named by the config. The simulated
// sensor seeds from the clock unless a fixed seed is configured.
func buildSource(cfg *config.Config, logger *slog.Logger) (sensor.Source, error) {
	switch cfg.Source {
	case "sim":
		seed := cfg.SimSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return sensor.NewSimSource(seed, cfg.SimHotspots, cfg.SimFaultEvery), nil
	case "replay":
		src, err := sensor.NewReplaySource(cfg.ReplayFile, logger)
		if err != nil {
			return nil, errors.Wrap(err, "open replay source")
		}
		return src, nil
	default:
		return nil, errors.Errorf("unknown frame source %q", cfg.Source)
	}
}
