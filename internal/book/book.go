// Package book manages the on-disk workspace: one directory per book with
// fixed subdirectories for source, metadata, rewrites, validation reports, and
// the vector index, plus a registry file tracking every book and which one is
// active.
package book

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/vampirenirmal/bookforge/internal/storage"
)

var (
	ErrBookExists   = errors.New("book already exists")
	ErrBookNotFound = errors.New("book not found")
)

const (
	booksDir     = "books"
	registryFile = "books_registry.json"
)

var invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeName turns an arbitrary title into a filesystem-safe book name:
// invalid characters removed, spaces underscored, lowercase, capped at 50
// runes so a multibyte title never truncates mid-character.
func SanitizeName(name string) string {
	name = invalidNameChars.ReplaceAllString(name, "")
	name = strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	if runes := []rune(name); len(runes) > 50 {
		name = string(runes[:50])
	}
	return name
}

// NameFromDocx derives the book name from a manuscript filename.
func NameFromDocx(docxPath string) string {
	stem := strings.TrimSuffix(filepath.Base(docxPath), filepath.Ext(docxPath))
	return SanitizeName(stem)
}

// Info is the registry record for one book.
type Info struct {
	DisplayName   string    `json:"name"`
	Created       time.Time `json:"created"`
	SourceFile    string    `json:"source_file"`
	TotalChapters int       `json:"total_chapters"`
	LastModified  time.Time `json:"last_modified"`
}

// Entry is one row of a book listing.
type Entry struct {
	Name   string
	Info   Info
	Active bool
}

type registryDoc struct {
	Active string          `json:"active_book"`
	Books  map[string]Info `json:"books"`
}

// Paths names every fixed location inside one book's directory.
type Paths struct {
	Root       string
	Source     string
	Metadata   string
	Rewrites   string
	Validation string
	Index      string
	Config     string
}

// Manager owns the workspace rooted at one directory.
type Manager struct {
	root     string
	booksDir string
	registry string
	logger   *slog.Logger
}

func NewManager(root string) *Manager {
	return &Manager{
		root:     root,
		booksDir: booksDir,
		registry: registryFile,
		logger:   slog.Default().With("component", "books"),
	}
}

// WithLayout overrides the books directory and registry filename, both
// relative to the workspace root.
func (m *Manager) WithLayout(dir, registry string) *Manager {
	if dir != "" {
		m.booksDir = dir
	}
	if registry != "" {
		m.registry = registry
	}
	return m
}

// Paths returns the directory layout for a book, whether or not it exists.
func (m *Manager) Paths(name string) Paths {
	root := filepath.Join(m.root, m.booksDir, name)
	return Paths{
		Root:       root,
		Source:     filepath.Join(root, "source"),
		Metadata:   filepath.Join(root, "metadata"),
		Rewrites:   filepath.Join(root, "rewrites"),
		Validation: filepath.Join(root, "validation"),
		Index:      filepath.Join(root, "index"),
		Config:     filepath.Join(root, "config.json"),
	}
}

// Store returns a path-sandboxed store rooted at the book's directory, so
// artifact paths like rewrites/chapter_01.md resolve inside it.
func (m *Manager) Store(name string) *storage.Store {
	return storage.NewStore(m.Paths(name).Root)
}

// CreateFromDocx creates the book structure for a manuscript, copies the
// source file in, writes the initial per-book config, and registers the book.
// The first book created becomes active.
func (m *Manager) CreateFromDocx(docxPath string) (Info, error) {
	name := NameFromDocx(docxPath)
	if name == "" {
		return Info{}, fmt.Errorf("cannot derive a book name from %q", docxPath)
	}

	paths := m.Paths(name)
	if _, err := os.Stat(paths.Root); err == nil {
		return Info{}, fmt.Errorf("%q at %s: %w", name, paths.Root, ErrBookExists)
	}

	for _, dir := range []string{paths.Source, paths.Metadata, paths.Rewrites, paths.Validation, paths.Index} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Info{}, fmt.Errorf("creating book structure: %w", err)
		}
	}

	if err := copyFile(docxPath, filepath.Join(paths.Source, filepath.Base(docxPath))); err != nil {
		return Info{}, fmt.Errorf("copying manuscript: %w", err)
	}

	display := strings.TrimSuffix(filepath.Base(docxPath), filepath.Ext(docxPath))
	now := time.Now()
	info := Info{
		DisplayName:  display,
		Created:      now,
		SourceFile:   filepath.Base(docxPath),
		LastModified: now,
	}

	cfg := Config{BookName: name, DisplayName: display, Created: now, Settings: map[string]any{}}
	if err := m.SaveConfig(name, cfg); err != nil {
		return Info{}, err
	}

	reg, err := m.loadRegistry()
	if err != nil {
		return Info{}, err
	}
	reg.Books[name] = info
	if reg.Active == "" {
		reg.Active = name
	}
	if err := m.saveRegistry(reg); err != nil {
		return Info{}, err
	}

	m.logger.Info("book created", "book", name, "source", info.SourceFile)
	return info, nil
}

// List returns every registered book sorted by name.
func (m *Manager) List() ([]Entry, error) {
	reg, err := m.loadRegistry()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(reg.Books))
	for name, info := range reg.Books {
		entries = append(entries, Entry{Name: name, Info: info, Active: name == reg.Active})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Active returns the active book name, or ok=false when none is set.
func (m *Manager) Active() (string, bool, error) {
	reg, err := m.loadRegistry()
	if err != nil {
		return "", false, err
	}
	return reg.Active, reg.Active != "", nil
}

// SetActive switches the active book.
func (m *Manager) SetActive(name string) error {
	reg, err := m.loadRegistry()
	if err != nil {
		return err
	}
	if _, ok := reg.Books[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrBookNotFound)
	}
	reg.Active = name
	return m.saveRegistry(reg)
}

// Delete removes a book's directory and registry entry. When the active book
// is deleted, the first remaining book (by name) becomes active.
func (m *Manager) Delete(name string) error {
	paths := m.Paths(name)
	if _, err := os.Stat(paths.Root); err != nil {
		return fmt.Errorf("%q: %w", name, ErrBookNotFound)
	}
	if err := os.RemoveAll(paths.Root); err != nil {
		return fmt.Errorf("removing book %q: %w", name, err)
	}

	reg, err := m.loadRegistry()
	if err != nil {
		return err
	}
	if _, ok := reg.Books[name]; ok {
		delete(reg.Books, name)
		if reg.Active == name {
			reg.Active = ""
			names := make([]string, 0, len(reg.Books))
			for n := range reg.Books {
				names = append(names, n)
			}
			sort.Strings(names)
			if len(names) > 0 {
				reg.Active = names[0]
			}
		}
		if err := m.saveRegistry(reg); err != nil {
			return err
		}
	}

	m.logger.Info("book deleted", "book", name)
	return nil
}

// UpdateInfo applies a mutation to a book's registry record and bumps its
// last-modified timestamp.
func (m *Manager) UpdateInfo(name string, mutate func(*Info)) error {
	reg, err := m.loadRegistry()
	if err != nil {
		return err
	}
	info, ok := reg.Books[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrBookNotFound)
	}
	mutate(&info)
	info.LastModified = time.Now()
	reg.Books[name] = info
	return m.saveRegistry(reg)
}

// ValidateStructure checks that a book's directory layout is intact and
// returns a description of everything missing. An empty slice means valid.
func (m *Manager) ValidateStructure(name string) []string {
	paths := m.Paths(name)
	if _, err := os.Stat(paths.Root); err != nil {
		return []string{fmt.Sprintf("book directory not found: %s", paths.Root)}
	}

	var issues []string
	dirs := []struct{ label, path string }{
		{"source", paths.Source},
		{"metadata", paths.Metadata},
		{"rewrites", paths.Rewrites},
		{"validation", paths.Validation},
		{"index", paths.Index},
	}
	for _, d := range dirs {
		if _, err := os.Stat(d.path); err != nil {
			issues = append(issues, fmt.Sprintf("missing directory: %s/", d.label))
		}
	}
	if _, err := os.Stat(paths.Config); err != nil {
		issues = append(issues, "missing file: config.json")
	}
	return issues
}

func (m *Manager) registryPath() string {
	return filepath.Join(m.root, m.registry)
}

func (m *Manager) loadRegistry() (registryDoc, error) {
	reg := registryDoc{Books: make(map[string]Info)}
	data, err := os.ReadFile(m.registryPath())
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return reg, fmt.Errorf("reading registry: %w", err)
	}
	if err := json.Unmarshal(data, &reg); err != nil {
		return reg, fmt.Errorf("parsing registry: %w", err)
	}
	if reg.Books == nil {
		reg.Books = make(map[string]Info)
	}
	return reg, nil
}

func (m *Manager) saveRegistry(reg registryDoc) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}
	if err := os.WriteFile(m.registryPath(), data, 0o644); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
