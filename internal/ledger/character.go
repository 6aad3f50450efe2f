// Package ledger is the mutable registry of character, location, and object
// facts accumulated across chapters. It is the canonical source of truth for
// name resolution during rewriting and validation.
package ledger

import (
	"sort"
	"strings"
	"time"
)

// FirstAppearanceUnknown marks a character whose first chapter has not been
// recorded yet.
const FirstAppearanceUnknown = -1

// Relationship links a character to another by name.
type Relationship struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Appearance records one chapter a character showed up in.
type Appearance struct {
	ChapterIdx int               `json:"idx"`
	Timestamp  time.Time         `json:"timestamp"`
	Details    map[string]string `json:"details,omitempty"`
}

// CharacterState is everything known about one character. It is mutated only
// through additive merges; nothing is ever deleted from it.
type CharacterState struct {
	CanonicalName          string            `json:"canonical_name"`
	Aliases                []string          `json:"aliases"`
	PhysicalTraits         map[string]string `json:"physical_traits"`
	VoicePatterns          map[string]string `json:"voice_patterns"`
	Relationships          []Relationship    `json:"relationships"`
	ChapterAppearances     []Appearance      `json:"chapter_appearances"`
	CurrentStatus          string            `json:"current_status"`
	FirstAppearanceChapter int               `json:"first_appearance_chapter"`
}

// NewCharacterState creates a character with no recorded appearances.
func NewCharacterState(canonicalName string) *CharacterState {
	return &CharacterState{
		CanonicalName:          canonicalName,
		PhysicalTraits:         make(map[string]string),
		VoicePatterns:          make(map[string]string),
		FirstAppearanceChapter: FirstAppearanceUnknown,
	}
}

// AddAlias records an alias unless it already exists (case-insensitively) or
// matches the canonical name.
func (c *CharacterState) AddAlias(alias string) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return
	}
	lower := strings.ToLower(alias)
	if lower == strings.ToLower(c.CanonicalName) {
		return
	}
	for _, a := range c.Aliases {
		if strings.ToLower(a) == lower {
			return
		}
	}
	c.Aliases = append(c.Aliases, alias)
}

// AddPhysicalTrait sets or overwrites one trait.
func (c *CharacterState) AddPhysicalTrait(name, value string) {
	if c.PhysicalTraits == nil {
		c.PhysicalTraits = make(map[string]string)
	}
	c.PhysicalTraits[name] = value
}

// AddVoicePattern sets or overwrites one speech pattern.
func (c *CharacterState) AddVoicePattern(name, value string) {
	if c.VoicePatterns == nil {
		c.VoicePatterns = make(map[string]string)
	}
	c.VoicePatterns[name] = value
}

// AddRelationship records a relationship, unique by name with last-write-wins
// on the type.
func (c *CharacterState) AddRelationship(name, relType string) {
	if name == "" {
		return
	}
	for i := range c.Relationships {
		if c.Relationships[i].Name == name {
			c.Relationships[i].Type = relType
			return
		}
	}
	c.Relationships = append(c.Relationships, Relationship{Name: name, Type: relType})
}

// RecordAppearance appends an appearance record and pins the first-appearance
// chapter the first time it is called.
func (c *CharacterState) RecordAppearance(chapterIdx int, details map[string]string) {
	c.ChapterAppearances = append(c.ChapterAppearances, Appearance{
		ChapterIdx: chapterIdx,
		Timestamp:  time.Now(),
		Details:    details,
	})
	if c.FirstAppearanceChapter == FirstAppearanceUnknown {
		c.FirstAppearanceChapter = chapterIdx
	}
}

// UpdateStatus replaces the current status.
func (c *CharacterState) UpdateStatus(status string) {
	c.CurrentStatus = status
}

// AppearsIn reports whether the character was recorded in the given chapter.
func (c *CharacterState) AppearsIn(chapterIdx int) bool {
	for _, a := range c.ChapterAppearances {
		if a.ChapterIdx == chapterIdx {
			return true
		}
	}
	return false
}

// NameVariations returns the canonical name plus every alias.
func (c *CharacterState) NameVariations() []string {
	out := make([]string, 0, len(c.Aliases)+1)
	out = append(out, c.CanonicalName)
	out = append(out, c.Aliases...)
	return out
}

// AppearanceChapters returns the sorted, deduplicated chapter indices the
// character appears in.
func (c *CharacterState) AppearanceChapters() []int {
	seen := make(map[int]struct{})
	for _, a := range c.ChapterAppearances {
		seen[a.ChapterIdx] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
