package service

import (
	"fmt"
	"guild-battle-tracker/internal/domain"
	"os"

	"github.com/goccy/go-json"
)

// FallbackDataset holds one player batch per screenshot position.
type FallbackDataset [][]domain.CanonicalPlayer

// LoadFallbackDataset reads a JSON array of player arrays. An empty path
// yields an empty dataset.
func LoadFallbackDataset(path string) (FallbackDataset, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback dataset: %w", err)
	}

	var ds FallbackDataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to decode fallback dataset %s: %w", path, err)
	}
	return ds, nil
}

// Batch returns a copy of the players for screenshot i.
func (ds FallbackDataset) Batch(i int) ([]domain.CanonicalPlayer, bool) {
	if i < 0 || i >= len(ds) || len(ds[i]) == 0 {
		return nil, false
	}
	out := make([]domain.CanonicalPlayer, len(ds[i]))
	for j, p := range ds[i] {
		out[j] = p.Clone()
	}
	return out, true
}
