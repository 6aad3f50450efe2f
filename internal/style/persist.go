package style

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Save writes the profile as JSON, creating parent directories.
func Save(p Profile, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating profile directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	return nil
}

// Load reads a profile back. A missing file returns ok=false and no error so
// callers can fall back to analyzing fresh samples.
func Load(path string) (Profile, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, fmt.Errorf("reading profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, false, fmt.Errorf("parsing profile: %w", err)
	}
	return p, true, nil
}
