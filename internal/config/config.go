package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultIntervalMs     = 5000
	defaultProbeTimeoutMs = 4000
	defaultHistory        = 2000
	defaultStreamURL      = "wss://atlas-stream.ripe.net/stream/?client=latencywatch"
	defaultAtlasAPI       = "https://atlas.ripe.net/api/v2/"
)

// Config represents configuration data for the latency service.
type Config struct {
	ListenAddr      string `yaml:"listen_addr"`
	IntervalMs      int    `yaml:"interval_ms"`
	ProbeTimeoutMs  int    `yaml:"probe_timeout_ms"`
	HistoryCapacity int    `yaml:"history_capacity"`
	ServersFile     string `yaml:"servers_file"`
	LogFile         string `yaml:"log_file"`
	Atlas           Atlas  `yaml:"atlas"`
}

// Atlas configures the optional RIPE Atlas feed. An empty APIKey disables it.
type Atlas struct {
	APIKey             string `yaml:"api_key"`
	StreamURL          string `yaml:"stream_url"`
	APIURL             string `yaml:"api_url"`
	CreateMeasurements bool   `yaml:"create_measurements"`
}

// Enabled reports whether the feed has a credential.
func (a Atlas) Enabled() bool { return a.APIKey != "" }

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		IntervalMs:      defaultIntervalMs,
		ProbeTimeoutMs:  defaultProbeTimeoutMs,
		HistoryCapacity: defaultHistory,
		ServersFile:     "servers.json",
		Atlas: Atlas{
			StreamURL: defaultStreamURL,
			APIURL:    defaultAtlasAPI,
		},
	}
}

// Interval returns the polling period.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// ProbeTimeout returns the per-probe deadline.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMs) * time.Millisecond
}

// Load reads configuration from yaml file. Missing files fall back to
// defaults. Environment variables override file values.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.normalise(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.ListenAddr = getenv("LATENCYWATCH_ADDR", cfg.ListenAddr)
	cfg.ServersFile = getenv("LATENCYWATCH_SERVERS", cfg.ServersFile)
	cfg.IntervalMs = getenvInt("LATENCYWATCH_INTERVAL_MS", cfg.IntervalMs)
	cfg.Atlas.APIKey = getenv("RIPE_ATLAS_KEY", cfg.Atlas.APIKey)
}

func (c *Config) normalise() error {
	defaults := DefaultConfig()
	if c.IntervalMs <= 0 {
		c.IntervalMs = defaults.IntervalMs
	}
	if c.ProbeTimeoutMs <= 0 {
		c.ProbeTimeoutMs = defaults.ProbeTimeoutMs
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = defaults.HistoryCapacity
	}
	if c.ListenAddr == "" {
		c.ListenAddr = defaults.ListenAddr
	}
	if c.Atlas.StreamURL == "" {
		c.Atlas.StreamURL = defaults.Atlas.StreamURL
	}
	if c.Atlas.APIURL == "" {
		c.Atlas.APIURL = defaults.Atlas.APIURL
	}
	if c.ServersFile == "" {
		return errors.New("configuration must define servers_file")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
