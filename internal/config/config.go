// Package config loads the tunable defaults from a YAML file and
// overlays the three contractual environment variables, the same
// file-plus-env-overlay shape the rest of the system's configuration
// surface uses.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is the complete set of tunables a role process needs: belt,
// worker, truck, and session sizing, dock capacity ranges, and the
// backoff/poll/transit timings.
type Config struct {
	Belt struct {
		Slots      int `yaml:"slots"`
		MaxWorkers int `yaml:"max_workers"`
	} `yaml:"belt"`

	Trucks struct {
		Count         int     `yaml:"count"`
		MinLoad       int32   `yaml:"min_load"`
		MaxLoad       int32   `yaml:"max_load"`
		MinWeightKg   float64 `yaml:"min_weight_kg"`
		MaxWeightKg   float64 `yaml:"max_weight_kg"`
		MinVolumeM3   float64 `yaml:"min_volume_m3"`
		MaxVolumeM3   float64 `yaml:"max_volume_m3"`
		ArrivalPollMs int     `yaml:"arrival_poll_ms"`
		TransitMinMs  int     `yaml:"transit_min_ms"`
		TransitMaxMs  int     `yaml:"transit_max_ms"`
	} `yaml:"trucks"`

	Workers struct {
		Count       int `yaml:"count"`
		ThinkTimeMs int `yaml:"think_time_ms"`
	} `yaml:"workers"`

	Session struct {
		Rows int `yaml:"rows"`
	} `yaml:"session"`

	Dispatcher struct {
		BackoffMs int `yaml:"backoff_ms"`
	} `yaml:"dispatcher"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`

	// Env holds the environment variables every role honors, overlaid
	// after the YAML file is parsed.
	Env struct {
		LogToConsole bool   `envconfig:"LOG_TO_CONSOLE" default:"true"`
		LogToFile    bool   `envconfig:"LOG_TO_FILE" default:"false"`
		LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	}
}

// Default returns the system's baseline tuning: belt size 10, worker
// count 3, truck count 3, session table size 5, dock max_load in
// [5,20], max_weight in [50,200]kg, max_volume in [100,400]m3,
// dispatcher backoff 200ms, truck arrival poll 1s, truck transit delay
// uniform [3s,8s]. The volume floor sits above the largest per-type
// package volume so every package can be hosted by an empty truck and
// the dispatcher's retry loop always terminates.
func Default() *Config {
	var c Config
	c.Belt.Slots = 10
	c.Belt.MaxWorkers = 3
	c.Trucks.Count = 3
	c.Trucks.MinLoad = 5
	c.Trucks.MaxLoad = 20
	c.Trucks.MinWeightKg = 50.0
	c.Trucks.MaxWeightKg = 200.0
	c.Trucks.MinVolumeM3 = 100.0
	c.Trucks.MaxVolumeM3 = 400.0
	c.Trucks.ArrivalPollMs = 1000
	c.Trucks.TransitMinMs = 3000
	c.Trucks.TransitMaxMs = 8000
	c.Workers.Count = 3
	c.Workers.ThinkTimeMs = 100
	c.Session.Rows = 5
	c.Dispatcher.BackoffMs = 200
	c.Metrics.Enabled = true
	c.Metrics.Port = 9090
	c.Env.LogToConsole = true
	c.Env.LogLevel = "info"
	return &c
}

// Load starts from Default, overlays path's YAML contents if path is
// non-empty and the file exists, then overlays the LOG_* environment
// variables (which always take precedence over the file).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", &cfg.Env); err != nil {
		return nil, fmt.Errorf("config: environment overlay: %w", err)
	}

	return cfg, nil
}
