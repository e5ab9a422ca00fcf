package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != 8080 || cfg.RingTimeout != 60*time.Second || cfg.ReapInterval != 5*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.AuthEnabled() {
		t.Error("auth should be off without jwt_secret")
	}
	if len(cfg.ICEServers) != 1 || cfg.ICEServers[0].URLs[0] != "stun:stun.l.google.com:19302" {
		t.Errorf("ice servers = %+v", cfg.ICEServers)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	yaml := `
port: 9090
jwt_secret: s3cret
ring_timeout: 15s
allowed_origins: ["https://chat.example"]
ice_servers:
  - urls: ["turn:turn.example:3478"]
    username: u
    credential: p
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CALLROOM_PORT", "7070")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("env override lost: port = %d", cfg.Port)
	}
	if !cfg.AuthEnabled() || cfg.RingTimeout != 15*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://chat.example" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}

	servers := cfg.WebRTCICEServers()
	if len(servers) != 1 || servers[0].Credential != "p" || servers[0].CredentialType != webrtc.ICECredentialTypePassword {
		t.Errorf("webrtc servers = %+v", servers)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name string
		mut  func(*Config)
	}{
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"no buffer", func(c *Config) { c.SendBuffer = 0 }},
		{"no secret", func(c *Config) { c.Secret = "" }},
		{"no ping", func(c *Config) { c.PingPeriod = 0 }},
		{"negative ring timeout", func(c *Config) { c.RingTimeout = -time.Second }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Config{Port: 8080, SendBuffer: 1, Secret: "x", PingPeriod: time.Second}
			tc.mut(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
