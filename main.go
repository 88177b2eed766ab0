package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/maruel/interrupt"

	"github.com/tbeaulieu/mlxcam-go/app"
	"github.com/tbeaulieu/mlxcam-go/config"
)

func mainImpl() error {
	configPath := flag.String("config", "", "JSON config file; flags override its values")
	writeConfig := flag.Bool("write-config", false, "write the current config to -config and exit")
	listen := flag.String("listen", "", "listen address for the web UI, overrides config")
	outputDir := flag.String("output-dir", "", "directory for record logs, overrides config")
	source := flag.String("source", "", "frame source, sim or replay, overrides config")
	replayFile := flag.String("replay", "", "record log to replay when -source=replay")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	watch := flag.Bool("watch", false, "shut down when the executable changes on disk")
	flag.Parse()
	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *writeConfig {
		if *configPath == "" {
			return fmt.Errorf("-write-config needs -config")
		}
		return cfg.Save(*configPath)
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *source != "" {
		cfg.Source = *source
	}
	if *replayFile != "" {
		cfg.ReplayFile = *replayFile
	}
	if *verbose {
		cfg.Debug = true
	}
	_ = cfg.Validate()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(os.Stdout, level)

	interrupt.HandleCtrlC()
	if *watch {
		go func() {
			err := watchSelf()
			if err != nil {
				logger.Warn("executable watch failed", slog.String("err", err.Error()))
			} else if !interrupt.IsSet() {
				logger.Info("executable changed, shutting down for restart")
			}
			interrupt.Set()
		}()
	}

	application, err := app.NewApp(cfg, logger)
	if err != nil {
		return err
	}
	return application.Run()
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nmlxcam: %s.\n", err)
		os.Exit(1)
	}
}
