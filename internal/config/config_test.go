package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("RIPE_ATLAS_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Interval() != 5*time.Second {
		t.Fatalf("expected 5s interval, got %v", cfg.Interval())
	}
	if cfg.ProbeTimeout() != 4*time.Second {
		t.Fatalf("expected 4s probe timeout, got %v", cfg.ProbeTimeout())
	}
	if cfg.HistoryCapacity != 2000 {
		t.Fatalf("expected history capacity 2000, got %d", cfg.HistoryCapacity)
	}
	if cfg.Atlas.Enabled() {
		t.Fatal("atlas feed must be disabled without a key")
	}
}

func TestLoadParsesYAMLAndNormalises(t *testing.T) {
	t.Setenv("RIPE_ATLAS_KEY", "")
	path := writeFile(t, "config.yaml", `
listen_addr: ":9090"
interval_ms: 1000
probe_timeout_ms: -1
servers_file: data/servers.json
atlas:
  api_key: secret
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.IntervalMs != 1000 {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if cfg.ProbeTimeoutMs != 4000 {
		t.Fatalf("invalid probe timeout should fall back to default, got %d", cfg.ProbeTimeoutMs)
	}
	if !cfg.Atlas.Enabled() || cfg.Atlas.StreamURL == "" {
		t.Fatalf("expected atlas enabled with default stream url, got %+v", cfg.Atlas)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("RIPE_ATLAS_KEY", "from-env")
	t.Setenv("LATENCYWATCH_ADDR", ":7000")
	t.Setenv("LATENCYWATCH_INTERVAL_MS", "250")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Atlas.APIKey != "from-env" || cfg.ListenAddr != ":7000" || cfg.IntervalMs != 250 {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "interval_ms: [")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseServersJSON(t *testing.T) {
	servers, err := ParseServers([]byte(`[
  {"id":"binance-tokyo","exchange":"Binance","provider":"AWS","regionCode":"ap-northeast-1","lat":35.68,"lng":139.69,"host":"api.binance.com","port":443},
  {"id":"okx-hk","exchange":"OKX","provider":"Alibaba","regionCode":"cn-hongkong","lat":22.3,"lng":114.2,"host":"www.okx.com"}
]`))
	if err != nil {
		t.Fatalf("ParseServers: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(servers))
	}
	if servers[0].RegionCode != "ap-northeast-1" || servers[0].Lat != 35.68 {
		t.Fatalf("fields not decoded: %+v", servers[0])
	}
	if servers[1].Port != 443 {
		t.Fatalf("missing port should default to 443, got %d", servers[1].Port)
	}
}

func TestParseServersValidation(t *testing.T) {
	cases := map[string]string{
		"empty":     `[]`,
		"no id":     `[{"host":"a.example"}]`,
		"no host":   `[{"id":"a"}]`,
		"duplicate": `[{"id":"a","host":"a.example"},{"id":"a","host":"b.example"}]`,
		"bad port":  `[{"id":"a","host":"a.example","port":70000}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseServers([]byte(doc)); err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
		})
	}
}

func TestSetupLoggingCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "latencywatch.log")
	closer, err := SetupLogging(path)
	if err != nil {
		t.Fatalf("SetupLogging: %v", err)
	}
	defer func() {
		_ = closer.Close()
		_, _ = SetupLogging("")
	}()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}
