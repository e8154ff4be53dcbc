package vectorstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// manifestFile sits next to the database directory and pins the embedding
// model a store was built with.
const manifestFile = "manifest.json"

// Manifest records which embedding model produced the stored vectors. A
// corpus is embedded by exactly one model; opening the store with a different
// model or dimension is refused rather than silently mixing vector spaces.
type Manifest struct {
	ModelID    string    `json:"model_id"`
	Dimensions int       `json:"dimensions"`
	CreatedAt  time.Time `json:"created_at"`
}

// loadManifest reads the manifest in dir. A missing file returns (nil, nil).
func loadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse store manifest: %w", err)
	}
	return &m, nil
}

// writeManifest writes the manifest in dir.
func writeManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0644); err != nil {
		return fmt.Errorf("write store manifest: %w", err)
	}
	return nil
}

// checkManifest verifies that dir's manifest (if any) matches the given
// model, writing a fresh manifest when none exists.
func checkManifest(dir, modelID string, dimensions int) error {
	m, err := loadManifest(dir)
	if err != nil {
		return err
	}
	if m == nil {
		return writeManifest(dir, &Manifest{
			ModelID:    modelID,
			Dimensions: dimensions,
			CreatedAt:  time.Now().UTC(),
		})
	}
	if m.ModelID != modelID || m.Dimensions != dimensions {
		return fmt.Errorf("store was built with model %s (%d dims), refusing to open with %s (%d dims); clear the store to switch models",
			m.ModelID, m.Dimensions, modelID, dimensions)
	}
	return nil
}
