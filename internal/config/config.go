// Package config provides configuration loading and structs for the Ronbun pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Paths     PathsConfig     `yaml:"paths"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Figures   FiguresConfig   `yaml:"figures"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// PathsConfig holds the on-disk layout: where input PDFs come from, where the
// vector store persists, and where extracted figures and the catalog live.
type PathsConfig struct {
	InputDir    string `yaml:"input_dir"`
	StoreDir    string `yaml:"store_dir"`
	FiguresDir  string `yaml:"figures_dir"`
	CatalogPath string `yaml:"catalog_path"`
}

// EmbeddingConfig holds embedding client settings.
// Provider is one of "ollama", "openai", or "mock" (tests only).
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// ChunkingConfig holds chunker settings.
type ChunkingConfig struct {
	MaxChars int `yaml:"max_chars"`
}

// RetrievalConfig holds query-time settings.
type RetrievalConfig struct {
	TopK            int     `yaml:"top_k"`
	MaxFigures      int     `yaml:"max_figures"`
	AdjacencyWindow int     `yaml:"adjacency_window"`
	MinSimilarity   float64 `yaml:"min_similarity"`
}

// FiguresConfig holds the junk filter thresholds for extracted images.
// Images below MinDimension pixels on either side, or with an aspect ratio
// outside [1/MaxAspectSkew, MaxAspectSkew], are never kept as figures.
type FiguresConfig struct {
	MinDimension  int     `yaml:"min_dimension"`
	MaxAspectSkew float64 `yaml:"max_aspect_skew"`
}

// IngestConfig holds batch ingestion settings.
type IngestConfig struct {
	Workers int `yaml:"workers"`
}

// WatchConfig holds input-directory watch settings.
type WatchConfig struct {
	DebounceMillis int `yaml:"debounce_ms"`
}

// Debounce returns the watch debounce as a millisecond count, guaranteed positive.
func (w *WatchConfig) Debounce() int {
	if w.DebounceMillis <= 0 {
		return 1500
	}
	return w.DebounceMillis
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Paths.InputDir = expandPath(cfg.Paths.InputDir, configDir)
	cfg.Paths.StoreDir = expandPath(cfg.Paths.StoreDir, configDir)
	cfg.Paths.FiguresDir = expandPath(cfg.Paths.FiguresDir, configDir)
	cfg.Paths.CatalogPath = expandPath(cfg.Paths.CatalogPath, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
