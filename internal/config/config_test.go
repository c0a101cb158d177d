package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	c := FromEnv()

	if c.Server.Addr != ":5000" {
		t.Fatalf("addr = %q, want :5000", c.Server.Addr)
	}
	if c.Keys.Lifetime != "20m" || c.Keys.Length != 16 || c.Keys.MaxInMemory != 10000 {
		t.Fatalf("key defaults = (%q, %d, %d)", c.Keys.Lifetime, c.Keys.Length, c.Keys.MaxInMemory)
	}
	if c.Keys.CleanupInterval != "3m" {
		t.Fatalf("cleanup_interval = %q, want 3m", c.Keys.CleanupInterval)
	}
	if c.Fingerprint.CacheTTL != "60m" {
		t.Fatalf("cache_ttl = %q, want 60m", c.Fingerprint.CacheTTL)
	}
	if c.Rate.MaxPerMinute != 5 || c.Rate.Window != "1m" {
		t.Fatalf("rate defaults = (%d, %q)", c.Rate.MaxPerMinute, c.Rate.Window)
	}
	if c.Cache.Kind != "memory" {
		t.Fatalf("cache kind = %q, want memory", c.Cache.Kind)
	}
	if len(c.Filter.BlockedAgents) != 3 {
		t.Fatalf("blocked agents = %v", c.Filter.BlockedAgents)
	}
	// El gate arranca activo salvo opt-out explícito.
	if !c.Gate.Enabled {
		t.Fatal("gate must be enabled by default")
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestGateDisabledViaEnv(t *testing.T) {
	t.Setenv("GATE_ENABLED", "false")

	c := FromEnv()
	if c.Gate.Enabled {
		t.Fatal("GATE_ENABLED=false must disable the gate")
	}
}

func TestGateDisabledViaYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("gate:\n  enabled: false\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Gate.Enabled {
		t.Fatal("yaml enabled: false must disable the gate")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9000")
	t.Setenv("KEY_LIFETIME", "5m")
	t.Setenv("MAX_KEYS_IN_MEMORY", "50")
	t.Setenv("RATE_MAX_PER_MINUTE", "9")
	t.Setenv("GATE_ENABLED", "true")
	t.Setenv("FILTER_BLOCKED_AGENTS", "curl, badbot")

	c := FromEnv()
	if c.Server.Addr != ":9000" {
		t.Fatalf("addr = %q", c.Server.Addr)
	}
	if c.Keys.Lifetime != "5m" || c.Keys.MaxInMemory != 50 {
		t.Fatalf("keys = (%q, %d)", c.Keys.Lifetime, c.Keys.MaxInMemory)
	}
	if c.Rate.MaxPerMinute != 9 {
		t.Fatalf("rate = %d", c.Rate.MaxPerMinute)
	}
	if !c.Gate.Enabled {
		t.Fatal("gate should be enabled")
	}
	want := []string{"curl", "badbot"}
	if len(c.Filter.BlockedAgents) != len(want) {
		t.Fatalf("blocked agents = %v, want %v", c.Filter.BlockedAgents, want)
	}
	for i := range want {
		if c.Filter.BlockedAgents[i] != want[i] {
			t.Fatalf("blocked agents = %v, want %v", c.Filter.BlockedAgents, want)
		}
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
server:
  addr: ":8088"
keys:
  lifetime: 10m
  max_in_memory: 200
rate:
  max_per_minute: 3
gate:
  enabled: true
  api_key: secret
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Server.Addr != ":8088" || c.Keys.Lifetime != "10m" || c.Keys.MaxInMemory != 200 {
		t.Fatalf("yaml values not applied: %+v", c)
	}
	if !c.Gate.Enabled || c.Gate.APIKey != "secret" {
		t.Fatalf("gate block not applied: %+v", c.Gate)
	}
	// Los defaults rellenan lo que el YAML no trae.
	if c.Keys.CleanupInterval != "3m" {
		t.Fatalf("cleanup_interval = %q, want default 3m", c.Keys.CleanupInterval)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	c := FromEnv()
	c.Keys.Lifetime = "veinte minutos"
	if err := c.Validate(); err == nil {
		t.Fatal("unparseable duration must fail validation")
	}

	c = FromEnv()
	c.Keys.Length = 4
	if err := c.Validate(); err == nil {
		t.Fatal("key length below range must fail validation")
	}

	c = FromEnv()
	c.Cache.Kind = "memcached"
	if err := c.Validate(); err == nil {
		t.Fatal("unknown cache kind must fail validation")
	}
}

func TestDur(t *testing.T) {
	if got := Dur("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("Dur = %v", got)
	}
	if got := Dur("bogus", time.Minute); got != time.Minute {
		t.Fatalf("fallback = %v", got)
	}
}
