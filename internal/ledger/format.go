package ledger

import (
	"fmt"
	"sort"
	"strings"
)

// FormatForPrompt renders the whole ledger as the block of ground truth the
// rewrite prompts embed. Characters appear in first-appearance order so the
// model sees them in narrative order.
func (l *Ledger) FormatForPrompt() string {
	if len(l.characters) == 0 {
		return "No character information available yet."
	}

	var b strings.Builder
	b.WriteString("## CHARACTER LEDGER (must preserve exactly)\n\n")

	for _, c := range l.Characters() {
		fmt.Fprintf(&b, "### %s\n", c.CanonicalName)
		if len(c.Aliases) > 0 {
			fmt.Fprintf(&b, "- Aliases: %s\n", strings.Join(c.Aliases, ", "))
		}
		if len(c.PhysicalTraits) > 0 {
			fmt.Fprintf(&b, "- Physical: %s\n", joinMap(c.PhysicalTraits))
		}
		if c.CurrentStatus != "" {
			fmt.Fprintf(&b, "- Status: %s\n", c.CurrentStatus)
		}
		if len(c.VoicePatterns) > 0 {
			fmt.Fprintf(&b, "- Voice: %s\n", joinMap(c.VoicePatterns))
		}
		if len(c.Relationships) > 0 {
			rels := make([]string, len(c.Relationships))
			for i, r := range c.Relationships {
				rels[i] = fmt.Sprintf("%s (%s)", r.Name, r.Type)
			}
			fmt.Fprintf(&b, "- Relationships: %s\n", strings.Join(rels, ", "))
		}
		b.WriteString("\n")
	}

	if mappings := l.spellingMappings(); len(mappings) > 0 {
		b.WriteString("## CANONICAL NAME MAPPINGS\n")
		b.WriteString("Use these exact spellings:\n")
		for _, m := range mappings {
			fmt.Fprintf(&b, "- %s\n", m)
		}
		b.WriteString("\n")
	}

	if len(l.locations) > 0 {
		b.WriteString("## KNOWN LOCATIONS\n")
		names := make([]string, 0, len(l.locations))
		for name := range l.locations {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if details := l.locations[name]; len(details) > 0 {
				fmt.Fprintf(&b, "- %s: %s\n", name, joinMap(details))
			} else {
				fmt.Fprintf(&b, "- %s\n", name)
			}
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// spellingMappings lists alias-to-canonical pairs where the spelling actually
// differs, one canonical name each.
func (l *Ledger) spellingMappings() []string {
	aliases := make([]string, 0, len(l.aliasIndex))
	for alias := range l.aliasIndex {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	seen := make(map[string]bool)
	var out []string
	for _, alias := range aliases {
		canonical := l.aliasIndex[alias]
		if strings.EqualFold(alias, canonical) || seen[canonical] {
			continue
		}
		out = append(out, fmt.Sprintf("%s -> %s", titleCase(alias), canonical))
		seen[canonical] = true
	}
	return out
}

// CharacterSummary renders one character as a standalone markdown report.
func (l *Ledger) CharacterSummary(name string) string {
	c, ok := l.Get(name)
	if !ok {
		return fmt.Sprintf("Character %q not found in ledger.", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.CanonicalName)

	if len(c.Aliases) > 0 {
		fmt.Fprintf(&b, "**Also known as:** %s\n\n", strings.Join(c.Aliases, ", "))
	}
	if len(c.PhysicalTraits) > 0 {
		b.WriteString("## Physical Appearance\n")
		for _, k := range sortedKeys(c.PhysicalTraits) {
			fmt.Fprintf(&b, "- **%s:** %s\n", titleCase(k), c.PhysicalTraits[k])
		}
		b.WriteString("\n")
	}
	if len(c.VoicePatterns) > 0 {
		b.WriteString("## Voice & Speech\n")
		for _, k := range sortedKeys(c.VoicePatterns) {
			fmt.Fprintf(&b, "- **%s:** %s\n", titleCase(k), c.VoicePatterns[k])
		}
		b.WriteString("\n")
	}
	if c.CurrentStatus != "" {
		fmt.Fprintf(&b, "## Current Status\n%s\n\n", c.CurrentStatus)
	}
	if len(c.Relationships) > 0 {
		b.WriteString("## Relationships\n")
		for _, r := range c.Relationships {
			fmt.Fprintf(&b, "- **%s:** %s\n", r.Name, r.Type)
		}
		b.WriteString("\n")
	}
	if chapters := c.AppearanceChapters(); len(chapters) > 0 {
		b.WriteString("## Appearances\n")
		parts := make([]string, len(chapters))
		for i, idx := range chapters {
			parts[i] = fmt.Sprintf("Chapter %d", idx)
		}
		fmt.Fprintf(&b, "Appears in: %s\n", strings.Join(parts, ", "))
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func joinMap(m map[string]string) string {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf("%s: %s", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
