package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/modelgate/modelgate/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = "127.0.0.1:9000"
timeout_secs = 60

[rag]
enable = true
policy = "system-message"
context_window = 3

[rag.vector_db]
url = "http://qdrant:6333"
collection_name = ["docs", "faq"]
limit = 10
score_threshold = 0.7
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q, want 127.0.0.1:9000", cfg.Server.Addr)
	}
	if cfg.Server.TimeoutSecs != 60 {
		t.Errorf("TimeoutSecs = %d, want 60", cfg.Server.TimeoutSecs)
	}
	// Unset values keep their defaults.
	if cfg.Server.VerifyTimeoutSecs != 10 {
		t.Errorf("VerifyTimeoutSecs = %d, want default 10", cfg.Server.VerifyTimeoutSecs)
	}
	if cfg.RAG.Policy != config.PolicySystemMessage {
		t.Errorf("Policy = %q, want system-message", cfg.RAG.Policy)
	}
	if cfg.RAG.ContextWindow != 3 {
		t.Errorf("ContextWindow = %d, want 3", cfg.RAG.ContextWindow)
	}
	if got := cfg.RAG.VectorDB.CollectionName; len(got) != 2 || got[0] != "docs" || got[1] != "faq" {
		t.Errorf("CollectionName = %v, want [docs faq]", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("Load() on a missing file expected error, got nil")
	}
}

func TestValidateBadAddr(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "not-an-addr"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted an unparseable addr")
	}
}

func TestValidateBadPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.RAG.Policy = "first-message"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted an unknown rag policy")
	}
}

func TestValidateFillsZeroValues(t *testing.T) {
	cfg := config.Default()
	cfg.RAG.Policy = ""
	cfg.RAG.ContextWindow = 0
	cfg.Server.TimeoutSecs = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.RAG.Policy != config.PolicyLastUserMessage {
		t.Errorf("Policy = %q, want last-user-message default", cfg.RAG.Policy)
	}
	if cfg.RAG.ContextWindow != 1 {
		t.Errorf("ContextWindow = %d, want 1", cfg.RAG.ContextWindow)
	}
	if cfg.Server.TimeoutSecs != 30 {
		t.Errorf("TimeoutSecs = %d, want 30", cfg.Server.TimeoutSecs)
	}
}
