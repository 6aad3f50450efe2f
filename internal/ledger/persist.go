package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// document is the on-disk shape of the full ledger.
type document struct {
	Characters     map[string]*CharacterState   `json:"characters"`
	CanonicalNames map[string]string            `json:"canonical_names"`
	Locations      map[string]map[string]string `json:"locations"`
	Objects        map[string][]int             `json:"objects"`
	Metadata       metadata                     `json:"metadata"`
}

type metadata struct {
	TotalCharacters int       `json:"total_characters"`
	TotalLocations  int       `json:"total_locations"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Save writes the ledger as one JSON document.
func (l *Ledger) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	doc := document{
		Characters:     l.characters,
		CanonicalNames: l.aliasIndex,
		Locations:      l.locations,
		Objects:        l.objects,
		Metadata: metadata{
			TotalCharacters: len(l.characters),
			TotalLocations:  len(l.locations),
			LastUpdated:     time.Now(),
		},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling ledger: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}

// Load reads a ledger from disk. A missing file yields an empty ledger, not
// an error, because the ledger is built up incrementally chapter by chapter.
// A present but unreadable file is an error.
func Load(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing ledger: %w", err)
	}

	l := New()
	// Re-register through Add so the alias index is rebuilt consistently even
	// if the persisted index drifted.
	for _, c := range doc.Characters {
		if c.PhysicalTraits == nil {
			c.PhysicalTraits = make(map[string]string)
		}
		if c.VoicePatterns == nil {
			c.VoicePatterns = make(map[string]string)
		}
		l.Add(c)
	}
	for alias, canonical := range doc.CanonicalNames {
		if _, ok := l.characters[canonical]; ok {
			l.registerAlias(alias, canonical)
		}
	}
	if doc.Locations != nil {
		l.locations = doc.Locations
	}
	if doc.Objects != nil {
		l.objects = doc.Objects
	}

	return l, nil
}
