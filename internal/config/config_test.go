package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected default provider %q, got %q", ProviderAnthropic, cfg.Provider)
	}
	if cfg.DataDir != ".coursewright" {
		t.Errorf("expected default data_dir %q, got %q", ".coursewright", cfg.DataDir)
	}
	if cfg.MaxConcurrency != 3 {
		t.Errorf("expected default max_concurrency 3, got %d", cfg.MaxConcurrency)
	}
	if cfg.CacheTTLHours != 24 {
		t.Errorf("expected default cache_ttl_hours 24, got %d", cfg.CacheTTLHours)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.coursewright.yml")

	original := DefaultConfig()
	original.Provider = ProviderOpenAI
	original.Model = "gpt-4o"
	original.CorpusFile = "knowledge/sources.yml"
	original.Redis.Addr = "localhost:6379"
	original.Server.Port = 9090

	// Save.
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load back.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify round-trip.
	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.CorpusFile != original.CorpusFile {
		t.Errorf("corpus_file: got %q, want %q", loaded.CorpusFile, original.CorpusFile)
	}
	if loaded.Redis.Addr != original.Redis.Addr {
		t.Errorf("redis.addr: got %q, want %q", loaded.Redis.Addr, original.Redis.Addr)
	}
	if loaded.Server.Port != original.Server.Port {
		t.Errorf("server.port: got %d, want %d", loaded.Server.Port, original.Server.Port)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("provider = %q, want defaults", cfg.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("COURSEWRIGHT_PROVIDER", "ollama")
	t.Setenv("COURSEWRIGHT_MODEL", "llama3")
	t.Setenv("COURSEWRIGHT_SERVER__PORT", "9999")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderOllama {
		t.Errorf("provider = %q, want ollama", cfg.Provider)
	}
	if cfg.Model != "llama3" {
		t.Errorf("model = %q, want llama3", cfg.Model)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.Provider = "" }},
		{"unknown provider", func(c *Config) { c.Provider = "watson" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"anthropic embeddings", func(c *Config) { c.EmbeddingProvider = ProviderAnthropic }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"negative concurrency", func(c *Config) { c.MaxConcurrency = -1 }},
		{"confidence floor above one", func(c *Config) { c.ConfidenceFloor = 1.5 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
