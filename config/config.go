package config

import (
	"encoding/json"
	"os"
)

// Config holds runtime configuration for acquisition and the web UI.
// Fields may be loaded from a JSON file and overridden by command-line flags.
type Config struct {
	Debug bool `json:"debug"`

	// Web UI
	ListenAddr string `json:"listen_addr"`
	Scale      int    `json:"scale"`

	// Acquisition
	OutputDir string  `json:"output_dir"`
	RefreshHz float64 `json:"refresh_hz"`

	// Frame source: "sim" for the synthetic sensor, "replay" to serve
	// frames from a previous record log.
	Source        string `json:"source"`
	ReplayFile    string `json:"replay_file"`
	SimSeed       int64  `json:"sim_seed"`
	SimHotspots   int    `json:"sim_hotspots"`
	SimFaultEvery int    `json:"sim_fault_every"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:         false,
		ListenAddr:    ":8484",
		Scale:         20,
		OutputDir:     ".",
		RefreshHz:     4,
		Source:        "sim",
		ReplayFile:    "",
		SimSeed:       0,
		SimHotspots:   2,
		SimFaultEvery: 0,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8484"
	}
	if c.Scale < 1 {
		c.Scale = 20
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.RefreshHz <= 0 {
		c.RefreshHz = 4
	}
	if c.RefreshHz > 64 {
		c.RefreshHz = 64
	}
	if c.Source == "" {
		c.Source = "sim"
	}
	if c.SimHotspots < 0 {
		c.SimHotspots = 0
	}
	if c.SimFaultEvery < 0 {
		c.SimFaultEvery = 0
	}
	return nil
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return cfg, err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
