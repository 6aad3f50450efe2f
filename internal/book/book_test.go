package book

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDocx(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04 docx bytes"), 0o644))
	return path
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "my_great_novel", SanitizeName("My Great Novel"))
	assert.Equal(t, "chapter_notes", SanitizeName(`Chapter* Notes?|`))
	long := SanitizeName("a very long title that keeps going and going and going forever more")
	assert.LessOrEqual(t, len([]rune(long)), 50)

	// Multibyte titles truncate on rune boundaries, never mid-character.
	wide := SanitizeName(strings.Repeat("café", 20))
	assert.True(t, utf8.ValidString(wide))
	assert.Len(t, []rune(wide), 50)
}

func TestNameFromDocx(t *testing.T) {
	assert.Equal(t, "the_silent_harbor", NameFromDocx("/tmp/The Silent Harbor.docx"))
}

func TestCreateFromDocx(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root)
	docx := writeDocx(t, t.TempDir(), "Winter Tide.docx")

	info, err := m.CreateFromDocx(docx)
	require.NoError(t, err)
	assert.Equal(t, "Winter Tide", info.DisplayName)
	assert.Equal(t, "Winter Tide.docx", info.SourceFile)

	paths := m.Paths("winter_tide")
	for _, dir := range []string{paths.Source, paths.Metadata, paths.Rewrites, paths.Validation, paths.Index} {
		st, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, st.IsDir())
	}
	_, err = os.Stat(filepath.Join(paths.Source, "Winter Tide.docx"))
	assert.NoError(t, err)

	cfg, ok, err := m.LoadConfig("winter_tide")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "winter_tide", cfg.BookName)
	assert.Equal(t, "Winter Tide", cfg.DisplayName)

	active, ok, err := m.Active()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "winter_tide", active, "first book becomes active")

	assert.Empty(t, m.ValidateStructure("winter_tide"))
}

func TestCreateFromDocxDuplicate(t *testing.T) {
	m := NewManager(t.TempDir())
	docx := writeDocx(t, t.TempDir(), "Book.docx")

	_, err := m.CreateFromDocx(docx)
	require.NoError(t, err)
	_, err = m.CreateFromDocx(docx)
	assert.ErrorIs(t, err, ErrBookExists)
}

func TestListAndSetActive(t *testing.T) {
	m := NewManager(t.TempDir())
	src := t.TempDir()
	_, err := m.CreateFromDocx(writeDocx(t, src, "Beta.docx"))
	require.NoError(t, err)
	_, err = m.CreateFromDocx(writeDocx(t, src, "Alpha.docx"))
	require.NoError(t, err)

	entries, err := m.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha", entries[0].Name)
	assert.Equal(t, "beta", entries[1].Name)
	assert.False(t, entries[0].Active)
	assert.True(t, entries[1].Active, "first created stays active")

	require.NoError(t, m.SetActive("alpha"))
	active, _, err := m.Active()
	require.NoError(t, err)
	assert.Equal(t, "alpha", active)

	assert.ErrorIs(t, m.SetActive("gamma"), ErrBookNotFound)
}

func TestDeleteReassignsActive(t *testing.T) {
	m := NewManager(t.TempDir())
	src := t.TempDir()
	_, err := m.CreateFromDocx(writeDocx(t, src, "Alpha.docx"))
	require.NoError(t, err)
	_, err = m.CreateFromDocx(writeDocx(t, src, "Beta.docx"))
	require.NoError(t, err)

	require.NoError(t, m.Delete("alpha"))

	_, err = os.Stat(m.Paths("alpha").Root)
	assert.True(t, os.IsNotExist(err))

	active, ok, err := m.Active()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "beta", active)

	require.NoError(t, m.Delete("beta"))
	_, ok, err = m.Active()
	require.NoError(t, err)
	assert.False(t, ok, "no active book once the registry empties")

	assert.ErrorIs(t, m.Delete("beta"), ErrBookNotFound)
}

func TestUpdateInfo(t *testing.T) {
	m := NewManager(t.TempDir())
	_, err := m.CreateFromDocx(writeDocx(t, t.TempDir(), "Alpha.docx"))
	require.NoError(t, err)

	require.NoError(t, m.UpdateInfo("alpha", func(i *Info) { i.TotalChapters = 12 }))

	entries, err := m.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 12, entries[0].Info.TotalChapters)
	assert.False(t, entries[0].Info.LastModified.Before(entries[0].Info.Created))

	assert.ErrorIs(t, m.UpdateInfo("missing", func(*Info) {}), ErrBookNotFound)
}

func TestValidateStructureReportsMissing(t *testing.T) {
	m := NewManager(t.TempDir())
	_, err := m.CreateFromDocx(writeDocx(t, t.TempDir(), "Alpha.docx"))
	require.NoError(t, err)

	paths := m.Paths("alpha")
	require.NoError(t, os.RemoveAll(paths.Index))
	require.NoError(t, os.Remove(paths.Config))

	issues := m.ValidateStructure("alpha")
	assert.Contains(t, issues, "missing directory: index/")
	assert.Contains(t, issues, "missing file: config.json")

	issues = m.ValidateStructure("nowhere")
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "book directory not found")
}

func TestStoreIsBookScoped(t *testing.T) {
	m := NewManager(t.TempDir())
	_, err := m.CreateFromDocx(writeDocx(t, t.TempDir(), "Alpha.docx"))
	require.NoError(t, err)

	store := m.Store("alpha")
	require.NoError(t, store.Save(context.Background(), "rewrites/chapter_01.md", []byte("text")))
	_, err = os.Stat(filepath.Join(m.Paths("alpha").Rewrites, "chapter_01.md"))
	assert.NoError(t, err)
}

func TestMergeSettings(t *testing.T) {
	defaults := map[string]any{"top_k": 10, "mode": "standard"}
	overrides := map[string]any{"mode": "extended"}

	merged := MergeSettings(defaults, overrides)
	assert.Equal(t, "extended", merged["mode"])
	assert.Equal(t, 10, merged["top_k"])
	assert.Equal(t, "standard", defaults["mode"], "inputs are not mutated")
}

func TestWithLayout(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root).WithLayout("library", "catalog.json")
	_, err := m.CreateFromDocx(writeDocx(t, t.TempDir(), "Alpha.docx"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "library", "alpha", "source"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "catalog.json"))
	assert.NoError(t, err)
}

func TestLoadConfigMissing(t *testing.T) {
	m := NewManager(t.TempDir())
	cfg, ok, err := m.LoadConfig("ghost")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotNil(t, cfg.Settings)
}
