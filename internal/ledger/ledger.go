package ledger

import (
	"log/slog"
	"sort"
	"strings"
)

// Ledger owns every CharacterState, keyed by canonical name, plus a
// case-insensitive alias index, a location table, and an object continuity
// table. It is passed explicitly through every call site; there is no ambient
// registry.
//
// Alias conflicts resolve last-writer-wins: re-registering an alias that
// already points at another character moves the pointer to the most recently
// merged character. Shared epithets ("the man") therefore track whichever
// character a chapter extraction attributed them to last. Every alias always
// resolves to exactly one canonical name.
type Ledger struct {
	characters map[string]*CharacterState
	aliasIndex map[string]string // lower-cased alias -> canonical name
	locations  map[string]map[string]string
	objects    map[string][]int

	logger *slog.Logger
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		characters: make(map[string]*CharacterState),
		aliasIndex: make(map[string]string),
		locations:  make(map[string]map[string]string),
		objects:    make(map[string][]int),
		logger:     slog.Default().With("component", "ledger"),
	}
}

// WithLogger replaces the ledger's logger.
func (l *Ledger) WithLogger(logger *slog.Logger) *Ledger {
	l.logger = logger
	return l
}

// Resolve maps any name variation to its canonical form. Exact canonical
// match wins; otherwise the case-insensitive alias index decides. The empty
// string means not found.
func (l *Ledger) Resolve(name string) string {
	if _, ok := l.characters[name]; ok {
		return name
	}
	return l.aliasIndex[strings.ToLower(name)]
}

// Get retrieves a character by any variation of its name.
func (l *Ledger) Get(name string) (*CharacterState, bool) {
	canonical := l.Resolve(name)
	if canonical == "" {
		return nil, false
	}
	c, ok := l.characters[canonical]
	return c, ok
}

// Add registers a character and indexes its canonical name and all aliases.
// Aliases already pointing at another character are re-pointed (see the type
// comment for the conflict policy).
func (l *Ledger) Add(c *CharacterState) {
	l.characters[c.CanonicalName] = c
	l.aliasIndex[strings.ToLower(c.CanonicalName)] = c.CanonicalName
	for _, alias := range c.Aliases {
		l.registerAlias(alias, c.CanonicalName)
	}
}

func (l *Ledger) registerAlias(alias, canonical string) {
	key := strings.ToLower(strings.TrimSpace(alias))
	if key == "" {
		return
	}
	if prev, ok := l.aliasIndex[key]; ok && prev != canonical {
		l.logger.Debug("alias reassigned", "alias", alias, "from", prev, "to", canonical)
	}
	l.aliasIndex[key] = canonical
}

// Len returns the number of characters.
func (l *Ledger) Len() int { return len(l.characters) }

// Characters returns all characters sorted by first appearance, characters
// with no recorded appearance last.
func (l *Ledger) Characters() []*CharacterState {
	out := make([]*CharacterState, 0, len(l.characters))
	for _, c := range l.characters {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].FirstAppearanceChapter, out[j].FirstAppearanceChapter
		if a == FirstAppearanceUnknown {
			a = int(^uint(0) >> 1)
		}
		if b == FirstAppearanceUnknown {
			b = int(^uint(0) >> 1)
		}
		if a != b {
			return a < b
		}
		return out[i].CanonicalName < out[j].CanonicalName
	})
	return out
}

// CharactersInChapter returns every character whose appearance list contains
// the chapter.
func (l *Ledger) CharactersInChapter(chapterIdx int) []*CharacterState {
	var out []*CharacterState
	for _, c := range l.Characters() {
		if c.AppearsIn(chapterIdx) {
			out = append(out, c)
		}
	}
	return out
}

// AddLocation records or updates a location.
func (l *Ledger) AddLocation(name string, details map[string]string) {
	if name == "" {
		return
	}
	if details != nil {
		l.locations[name] = details
		return
	}
	if _, ok := l.locations[name]; !ok {
		l.locations[name] = map[string]string{}
	}
}

// HasLocation reports whether a location is known.
func (l *Ledger) HasLocation(name string) bool {
	_, ok := l.locations[name]
	return ok
}

// Locations returns the location table.
func (l *Ledger) Locations() map[string]map[string]string { return l.locations }

// TrackObject records an object sighting in a chapter, deduplicated.
func (l *Ledger) TrackObject(name string, chapterIdx int) {
	if name == "" {
		return
	}
	for _, idx := range l.objects[name] {
		if idx == chapterIdx {
			return
		}
	}
	l.objects[name] = append(l.objects[name], chapterIdx)
}

// Objects returns the object continuity table.
func (l *Ledger) Objects() map[string][]int { return l.objects }

// ExtractedCharacter is one character record produced by the extraction pass.
type ExtractedCharacter struct {
	CanonicalName  string            `json:"canonical_name"`
	Aliases        []string          `json:"aliases"`
	PhysicalTraits map[string]string `json:"physical_traits"`
	VoicePatterns  map[string]string `json:"voice_patterns"`
	CurrentStatus  string            `json:"current_status"`
	Relationships  []Relationship    `json:"relationships"`
}

// Extraction is the validated structured payload for one chapter.
type Extraction struct {
	Characters []ExtractedCharacter         `json:"characters"`
	Locations  map[string]map[string]string `json:"locations"`
	PlotEvents []string                     `json:"plot_events"`
}

// Merge folds an extraction into the ledger for one chapter. Known characters
// are merged additively; unknown ones are created and registered. The status
// is overwritten only when the extraction carries a non-empty one. Returns the
// number of characters touched.
func (l *Ledger) Merge(ex Extraction, chapterIdx int) int {
	for name, details := range ex.Locations {
		l.AddLocation(name, details)
	}

	touched := 0
	for _, rec := range ex.Characters {
		if rec.CanonicalName == "" {
			continue
		}

		existing, ok := l.Get(rec.CanonicalName)
		if !ok {
			existing = NewCharacterState(rec.CanonicalName)
			for k, v := range rec.PhysicalTraits {
				existing.AddPhysicalTrait(k, v)
			}
			for k, v := range rec.VoicePatterns {
				existing.AddVoicePattern(k, v)
			}
			existing.CurrentStatus = rec.CurrentStatus
			for _, a := range rec.Aliases {
				existing.AddAlias(a)
			}
			for _, rel := range rec.Relationships {
				existing.AddRelationship(rel.Name, rel.Type)
			}
			existing.RecordAppearance(chapterIdx, nil)
			l.Add(existing)
			touched++
			continue
		}

		for _, a := range rec.Aliases {
			existing.AddAlias(a)
			l.registerAlias(a, existing.CanonicalName)
		}
		for k, v := range rec.PhysicalTraits {
			existing.AddPhysicalTrait(k, v)
		}
		for k, v := range rec.VoicePatterns {
			existing.AddVoicePattern(k, v)
		}
		if rec.CurrentStatus != "" {
			existing.UpdateStatus(rec.CurrentStatus)
		}
		for _, rel := range rec.Relationships {
			existing.AddRelationship(rel.Name, rel.Type)
		}
		existing.RecordAppearance(chapterIdx, nil)
		touched++
	}

	l.logger.Info("merged extraction", "chapter", chapterIdx, "characters", touched)
	return touched
}
