package book

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the per-book configuration file. Settings holds free-form
// overrides that shadow the workspace defaults when merged.
type Config struct {
	BookName    string         `json:"book_name"`
	DisplayName string         `json:"display_name"`
	Created     time.Time      `json:"created"`
	Settings    map[string]any `json:"settings"`
}

// LoadConfig reads a book's config file; a missing file yields an empty
// config with ok=false.
func (m *Manager) LoadConfig(name string) (Config, bool, error) {
	data, err := os.ReadFile(m.Paths(name).Config)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{Settings: map[string]any{}}, false, nil
		}
		return Config{}, false, fmt.Errorf("reading book config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("parsing book config: %w", err)
	}
	if cfg.Settings == nil {
		cfg.Settings = map[string]any{}
	}
	return cfg, true, nil
}

// SaveConfig writes a book's config file.
func (m *Manager) SaveConfig(name string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling book config: %w", err)
	}
	if err := os.WriteFile(m.Paths(name).Config, data, 0o644); err != nil {
		return fmt.Errorf("writing book config: %w", err)
	}
	return nil
}

// MergeSettings overlays a book's setting overrides onto the workspace
// defaults. Neither input map is mutated.
func MergeSettings(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
