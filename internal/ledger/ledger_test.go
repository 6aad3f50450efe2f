package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleExtraction() Extraction {
	return Extraction{
		Characters: []ExtractedCharacter{
			{
				CanonicalName:  "Mira Castellan",
				Aliases:        []string{"Mira", "the detective"},
				PhysicalTraits: map[string]string{"hair": "black", "eyes": "grey"},
				VoicePatterns:  map[string]string{"cadence": "clipped"},
				CurrentStatus:  "investigating the cabin",
				Relationships:  []Relationship{{Name: "Jonas Reed", Type: "partner"}},
			},
			{
				CanonicalName: "Jonas Reed",
				Aliases:       []string{"Reed"},
				CurrentStatus: "missing",
			},
		},
		Locations: map[string]map[string]string{
			"the cabin": {"setting": "pine forest"},
		},
		PlotEvents: []string{"Mira finds the broken lock"},
	}
}

func TestMergeCreatesAndResolves(t *testing.T) {
	l := New()
	touched := l.Merge(sampleExtraction(), 3)
	assert.Equal(t, 2, touched)
	assert.Equal(t, 2, l.Len())

	// Every variation resolves, case-insensitively.
	for _, name := range []string{"Mira Castellan", "Mira", "mira", "THE DETECTIVE"} {
		assert.Equal(t, "Mira Castellan", l.Resolve(name), "variation %q", name)
	}
	assert.Equal(t, "Jonas Reed", l.Resolve("reed"))
	assert.Empty(t, l.Resolve("nobody"))
}

func TestMergeIsAdditive(t *testing.T) {
	l := New()
	l.Merge(sampleExtraction(), 1)

	l.Merge(Extraction{
		Characters: []ExtractedCharacter{{
			CanonicalName:  "Mira",
			Aliases:        []string{"Detective Castellan"},
			PhysicalTraits: map[string]string{"scar": "left cheek"},
			CurrentStatus:  "",
		}},
	}, 2)

	c, ok := l.Get("Mira Castellan")
	require.True(t, ok)

	// New facts land, old facts survive, empty status never clobbers.
	assert.Equal(t, "left cheek", c.PhysicalTraits["scar"])
	assert.Equal(t, "black", c.PhysicalTraits["hair"])
	assert.Equal(t, "investigating the cabin", c.CurrentStatus)
	assert.Contains(t, c.Aliases, "Detective Castellan")
	assert.Equal(t, []int{1, 2}, c.AppearanceChapters())
	assert.Equal(t, 1, c.FirstAppearanceChapter)
}

func TestAliasConflictLastWriterWins(t *testing.T) {
	l := New()
	l.Merge(Extraction{
		Characters: []ExtractedCharacter{{CanonicalName: "Jonas Reed", Aliases: []string{"the man"}}},
	}, 1)
	l.Merge(Extraction{
		Characters: []ExtractedCharacter{{CanonicalName: "Victor Hale", Aliases: []string{"the man"}}},
	}, 2)

	assert.Equal(t, "Victor Hale", l.Resolve("the man"))
	assert.Equal(t, "Jonas Reed", l.Resolve("Jonas Reed"))
}

func TestCharactersSortedByFirstAppearance(t *testing.T) {
	l := New()
	l.Merge(Extraction{Characters: []ExtractedCharacter{{CanonicalName: "Late"}}}, 7)
	l.Merge(Extraction{Characters: []ExtractedCharacter{{CanonicalName: "Early"}}}, 1)
	l.Add(NewCharacterState("Never Seen"))

	chars := l.Characters()
	require.Len(t, chars, 3)
	assert.Equal(t, "Early", chars[0].CanonicalName)
	assert.Equal(t, "Late", chars[1].CanonicalName)
	assert.Equal(t, "Never Seen", chars[2].CanonicalName)
}

func TestCharactersInChapter(t *testing.T) {
	l := New()
	l.Merge(sampleExtraction(), 4)
	l.Merge(Extraction{Characters: []ExtractedCharacter{{CanonicalName: "Victor Hale"}}}, 5)

	in4 := l.CharactersInChapter(4)
	require.Len(t, in4, 2)
	assert.Empty(t, l.CharactersInChapter(9))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	l := New()
	l.Merge(sampleExtraction(), 2)
	l.TrackObject("the broken lock", 2)
	require.NoError(t, l.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, l.Len(), loaded.Len())
	assert.Equal(t, "Mira Castellan", loaded.Resolve("the detective"))
	assert.Equal(t, []int{2}, loaded.Objects()["the broken lock"])
	assert.True(t, loaded.HasLocation("the cabin"))

	orig, _ := l.Get("Mira Castellan")
	got, ok := loaded.Get("Mira Castellan")
	require.True(t, ok)
	assert.Equal(t, orig.PhysicalTraits, got.PhysicalTraits)
	assert.Equal(t, orig.Relationships, got.Relationships)
	assert.Equal(t, orig.FirstAppearanceChapter, got.FirstAppearanceChapter)
}

func TestLoadMissingFileReturnsEmptyLedger(t *testing.T) {
	l, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestFormatForPrompt(t *testing.T) {
	l := New()
	assert.Equal(t, "No character information available yet.", l.FormatForPrompt())

	l.Merge(sampleExtraction(), 1)
	out := l.FormatForPrompt()

	assert.Contains(t, out, "## CHARACTER LEDGER (must preserve exactly)")
	assert.Contains(t, out, "### Mira Castellan")
	assert.Contains(t, out, "- Aliases: Mira, the detective")
	assert.Contains(t, out, "- Status: investigating the cabin")
	assert.Contains(t, out, "Jonas Reed (partner)")
	assert.Contains(t, out, "## CANONICAL NAME MAPPINGS")
	assert.Contains(t, out, "## KNOWN LOCATIONS")
	assert.Contains(t, out, "- the cabin: setting: pine forest")
}

func TestCharacterSummary(t *testing.T) {
	l := New()
	l.Merge(sampleExtraction(), 3)

	out := l.CharacterSummary("the detective")
	assert.Contains(t, out, "# Mira Castellan")
	assert.Contains(t, out, "**Also known as:** Mira, the detective")
	assert.Contains(t, out, "## Physical Appearance")
	assert.Contains(t, out, "Appears in: Chapter 3")

	assert.Contains(t, l.CharacterSummary("nobody"), "not found")
}

func TestCharacterStateHelpers(t *testing.T) {
	c := NewCharacterState("Mira Castellan")

	c.AddAlias("Mira")
	c.AddAlias("mira") // case-insensitive duplicate
	c.AddAlias("Mira Castellan")
	c.AddAlias("  ")
	assert.Equal(t, []string{"Mira"}, c.Aliases)

	c.AddRelationship("Jonas Reed", "partner")
	c.AddRelationship("Jonas Reed", "rival")
	require.Len(t, c.Relationships, 1)
	assert.Equal(t, "rival", c.Relationships[0].Type)

	c.RecordAppearance(5, nil)
	c.RecordAppearance(2, nil)
	c.RecordAppearance(5, nil)
	assert.Equal(t, 5, c.FirstAppearanceChapter)
	assert.Equal(t, []int{2, 5}, c.AppearanceChapters())
	assert.True(t, c.AppearsIn(2))
	assert.False(t, c.AppearsIn(3))
}
