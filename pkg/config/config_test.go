package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.DefaultLimit != 10 {
		t.Errorf("default limit = %d, want 10", cfg.Search.DefaultLimit)
	}
	if got := cfg.Search.VectorsDir(cfg.Index); got != cfg.Index.LemmaVectorsDir {
		t.Errorf("VectorsDir = %q, want lemma vectors dir", got)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := strings.Join([]string{
		"server:",
		"  port: 9000",
		"search:",
		"  vectorSource: tokens",
		"  defaultLimit: 5",
		"redis:",
		"  cacheTTL: 2m",
	}, "\n")
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LS_SERVER_PORT", "9100")
	t.Setenv("LS_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want env override 9100", cfg.Server.Port)
	}
	if cfg.Search.DefaultLimit != 5 {
		t.Errorf("default limit = %d, want 5", cfg.Search.DefaultLimit)
	}
	if cfg.Redis.CacheTTL != 2*time.Minute {
		t.Errorf("cache ttl = %v, want 2m", cfg.Redis.CacheTTL)
	}
	if got := cfg.Search.VectorsDir(cfg.Index); got != cfg.Index.TokenVectorsDir {
		t.Errorf("VectorsDir = %q, want token vectors dir", got)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("brokers = %v, want 2 entries", cfg.Kafka.Brokers)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("search:\n  lemmatizer: wordnet\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown lemmatizer")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
