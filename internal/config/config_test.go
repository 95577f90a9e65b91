package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("RAG_FUSION_RRF_K", "")
	t.Setenv("RAG_MIN_SCORE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RAGTopK != 10 {
		t.Fatalf("expected default top k 10, got %d", cfg.RAGTopK)
	}
	if cfg.RAGFusionRRFK != 60 {
		t.Fatalf("expected default rrf k 60, got %d", cfg.RAGFusionRRFK)
	}
	if cfg.RAGMinScore != 0.015 {
		t.Fatalf("expected default min score 0.015, got %v", cfg.RAGMinScore)
	}
	if cfg.GenMaxTokens != 1000 || cfg.GenTemperature != 0.3 {
		t.Fatalf("unexpected generation defaults: %+v", cfg)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RAG_TOP_K", "5")
	t.Setenv("RAG_RERANK_ENABLED", "true")
	t.Setenv("OLLAMA_EMBED_MODEL", "mxbai-embed-large")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RAGTopK != 5 {
		t.Fatalf("expected top k override 5, got %d", cfg.RAGTopK)
	}
	if !cfg.RAGRerankEnabled {
		t.Fatalf("expected rerank enabled")
	}
	if cfg.OllamaEmbedModel != "mxbai-embed-large" {
		t.Fatalf("expected embed model override, got %q", cfg.OllamaEmbedModel)
	}
}

func TestLoadYAMLFileOverlaysDefaultsButYieldsToEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "rag_top_k: 7\napi_port: \"9000\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "7777")
	t.Setenv("RAG_TOP_K", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RAGTopK != 7 {
		t.Fatalf("expected yaml top k 7, got %d", cfg.RAGTopK)
	}
	if cfg.APIPort != "7777" {
		t.Fatalf("env must win over yaml, got %q", cfg.APIPort)
	}
}

func TestLoadInvalidConfigFileFails(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
