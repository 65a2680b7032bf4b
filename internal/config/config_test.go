package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEnsureCreatesValidDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	cfg, created, err := Ensure(path)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("expected a new config file")
	}
	if cfg.Call.OutgoingTimeoutSec != 60 || cfg.Call.IncomingTimeoutSec != 30 || cfg.Call.CandidateBatchMs != 500 || cfg.Call.HistoryLimit != 100 {
		t.Fatalf("call defaults = %+v", cfg.Call)
	}

	_, created, err = Ensure(path)
	if err != nil || created {
		t.Fatalf("second Ensure: created=%v err=%v", created, err)
	}
}

func TestLoadOverlaysDefaultsAndStripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	body := "\xEF\xBB\xBF" + `{"profile":{"user_id":"@alice:x","display_name":"Alice"},"call":{"outgoing_timeout_seconds":5}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Profile.DisplayName != "Alice" || cfg.Call.OutgoingTimeout() != 5*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Call.IncomingTimeout() != 30*time.Second || !cfg.Call.CaptureAudio {
		t.Fatalf("defaults lost: %+v", cfg.Call)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad bootstrap", func(c *Config) { c.P2P.BootstrapPeers = []string{"not-a-multiaddr"} }, "bootstrap_peers"},
		{"bootstrap without peer id", func(c *Config) { c.P2P.BootstrapPeers = []string{"/ip4/127.0.0.1/tcp/4001"} }, "peer id"},
		{"heartbeat over ttl", func(c *Config) { c.P2P.HeartbeatSec = 40 }, "heartbeat"},
		{"user id", func(c *Config) { c.Profile.UserID = "alice" }, "user_id"},
		{"zero timeout", func(c *Config) { c.Call.OutgoingTimeoutSec = 0 }, "outgoing_timeout"},
		{"ice server", func(c *Config) { c.Call.ICEServers = []string{"http://x"} }, "ice_servers"},
		{"log level", func(c *Config) { c.Log.Level = "chatty" }, "log.level"},
		{"viewer addr", func(c *Config) { c.Viewer.HTTPAddr = "nope" }, "viewer.http_addr"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if _, _, err := Ensure(path); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Config, 4)
	if err := Watch(ctx, path, func(c Config) { got <- c }); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Profile.DisplayName = "Renamed"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-got:
		if c.Profile.DisplayName != "Renamed" {
			t.Fatalf("reloaded config = %+v", c.Profile)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}
}
