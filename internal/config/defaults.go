package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Paths.InputDir == "" {
		cfg.Paths.InputDir = "/usr/local/var/ronbun/data/papers"
	}
	if cfg.Paths.StoreDir == "" {
		cfg.Paths.StoreDir = "/usr/local/var/ronbun/data/store"
	}
	if cfg.Paths.FiguresDir == "" {
		cfg.Paths.FiguresDir = "/usr/local/var/ronbun/data/figures"
	}
	if cfg.Paths.CatalogPath == "" {
		cfg.Paths.CatalogPath = "/usr/local/var/ronbun/data/catalog.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Chunking.MaxChars == 0 {
		cfg.Chunking.MaxChars = 512
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MaxFigures == 0 {
		cfg.Retrieval.MaxFigures = 3
	}
	if cfg.Retrieval.AdjacencyWindow == 0 {
		cfg.Retrieval.AdjacencyWindow = 1
	}
	if cfg.Retrieval.MinSimilarity == 0 {
		cfg.Retrieval.MinSimilarity = 0.5
	}
	if cfg.Figures.MinDimension == 0 {
		cfg.Figures.MinDimension = 50
	}
	if cfg.Figures.MaxAspectSkew == 0 {
		cfg.Figures.MaxAspectSkew = 10.0
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 1500
	}
}
