package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"latencywatch/internal/atlas"
	"latencywatch/internal/config"
	"latencywatch/internal/metrics"
	"latencywatch/internal/models"
	"latencywatch/internal/monitor"
	"latencywatch/internal/probe"
	"latencywatch/internal/server"
	"latencywatch/internal/storage"
)

// loadConfig reads the config file and applies command line overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if v := c.String("servers"); v != "" {
		cfg.ServersFile = v
	}
	if v := c.String("addr"); v != "" {
		cfg.ListenAddr = v
	}
	if d := c.Duration("interval"); d > 0 {
		cfg.IntervalMs = durationMs(d)
	}
	if d := c.Duration("timeout"); d > 0 {
		cfg.ProbeTimeoutMs = durationMs(d)
	}
	return cfg, nil
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logCloser, err := config.SetupLogging(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	servers, err := config.LoadServers(cfg.ServersFile)
	if err != nil {
		return fmt.Errorf("load servers: %w", err)
	}
	log.Printf("Loaded %d endpoint(s) from %s", len(servers), cfg.ServersFile)

	store := storage.NewStore(servers, cfg.HistoryCapacity)
	recorder := metrics.NewRecorder()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon := monitor.New(cfg.Interval(), servers, probe.New(), recorder.Committer("scheduler", store),
		monitor.WithProbeTimeout(cfg.ProbeTimeout()))
	mon.Start()
	defer mon.Stop()

	if cfg.Atlas.Enabled() {
		startAtlas(ctx, cfg.Atlas, servers, recorder.Committer("atlas", store))
	} else {
		log.Printf("RIPE Atlas feed disabled (no api key)")
	}

	serversFile := cfg.ServersFile
	srv := server.New(cfg.ListenAddr, store, server.Options{
		Interval: cfg.Interval(),
		Roster:   func() ([]models.Endpoint, error) { return config.LoadServers(serversFile) },
		Recorder: recorder,
		Rounds:   mon.Rounds,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("%s listening on %s (interval %s)", AppName, cfg.ListenAddr, cfg.Interval())
	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func startAtlas(ctx context.Context, cfg config.Atlas, servers []models.Endpoint, committer storage.Committer) {
	if cfg.CreateMeasurements {
		client := atlas.NewClient(cfg.APIURL, cfg.APIKey)
		for _, e := range servers {
			resp, err := client.CreatePingMeasurement(ctx, e.Host)
			if err != nil {
				log.Printf("atlas: create measurement for %s: %v", e.Host, err)
				continue
			}
			log.Printf("atlas: measurement %v created for %s", resp.Measurements, e.Host)
		}
	}

	stream := atlas.NewStream(atlas.StreamConfig{URL: cfg.StreamURL, APIKey: cfg.APIKey}, servers, committer)
	go stream.Run(ctx)
	log.Printf("RIPE Atlas feed enabled (%s)", cfg.StreamURL)
}

func runProbe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	servers, err := config.LoadServers(cfg.ServersFile)
	if err != nil {
		return fmt.Errorf("load servers: %w", err)
	}

	store := storage.NewStore(servers, cfg.HistoryCapacity)
	mon := monitor.New(cfg.Interval(), servers, probe.New(), store, monitor.WithProbeTimeout(cfg.ProbeTimeout()))
	samples := mon.RunOnce(c.Context)
	return printSamples(os.Stdout, servers, samples)
}
