package bible

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vampirenirmal/bookforge/internal/ledger"
)

// EnhancedPath is the enhanced bible's location inside a book's store.
const EnhancedPath = "metadata/book_bible_enhanced.md"

// Enhance appends the character registry, canonical name mappings, location
// inventory, object continuity, and standing continuity rules to the base
// bible. The output is what rewrite stages actually consume once a ledger
// exists.
func Enhance(base string, led *ledger.Ledger) string {
	var b strings.Builder

	if strings.TrimSpace(base) != "" {
		b.WriteString(base)
		b.WriteString("\n\n")
		b.WriteString(strings.Repeat("=", 60))
		b.WriteString("\n\n")
	}

	writeCharacterRegistry(&b, led)
	writeNameMappings(&b, led)
	writeLocationInventory(&b, led)
	writeObjectContinuity(&b, led)

	b.WriteString("\n## CONTINUITY RULES\n")
	b.WriteString("- POV: First-person present (\"I\") throughout\n")
	b.WriteString("- Restrictions: NO em dashes, NO contractions\n")
	b.WriteString("- Character names: Use canonical names exactly as listed above\n")

	return b.String()
}

func writeCharacterRegistry(b *strings.Builder, led *ledger.Ledger) {
	b.WriteString("## CHARACTER REGISTRY\n")
	b.WriteString("*Canonical names and traits for consistency*\n")

	chars := led.Characters()
	if len(chars) == 0 {
		b.WriteString("*No character information available yet.*\n")
		return
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i].CanonicalName < chars[j].CanonicalName })

	for _, c := range chars {
		fmt.Fprintf(b, "\n### %s\n", c.CanonicalName)

		if len(c.Aliases) > 0 {
			fmt.Fprintf(b, "**Aliases:** %s\n", strings.Join(c.Aliases, ", "))
		}
		writeTraitMap(b, "Physical Traits", c.PhysicalTraits)
		writeTraitMap(b, "Voice Patterns", c.VoicePatterns)
		if c.CurrentStatus != "" {
			fmt.Fprintf(b, "**Current Status:** %s\n", c.CurrentStatus)
		}
		if len(c.Relationships) > 0 {
			b.WriteString("**Relationships:**\n")
			for _, rel := range c.Relationships {
				fmt.Fprintf(b, "- %s: %s\n", rel.Name, rel.Type)
			}
		}
		if chapters := c.AppearanceChapters(); len(chapters) > 0 {
			parts := make([]string, len(chapters))
			for i, ch := range chapters {
				parts[i] = fmt.Sprint(ch)
			}
			fmt.Fprintf(b, "**Appears in Chapters:** %s\n", strings.Join(parts, ", "))
		}
	}
}

func writeTraitMap(b *strings.Builder, label string, traits map[string]string) {
	if len(traits) == 0 {
		return
	}
	keys := make([]string, 0, len(traits))
	for k := range traits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(b, "**%s:**\n", label)
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %s\n", capitalize(k), traits[k])
	}
}

func writeNameMappings(b *strings.Builder, led *ledger.Ledger) {
	chars := led.Characters()
	sort.Slice(chars, func(i, j int) bool { return chars[i].CanonicalName < chars[j].CanonicalName })

	var lines []string
	for _, c := range chars {
		var aliases []string
		for _, a := range c.Aliases {
			if !strings.EqualFold(a, c.CanonicalName) {
				aliases = append(aliases, a)
			}
		}
		if len(aliases) > 0 {
			lines = append(lines, fmt.Sprintf("- **%s** (not: %s)", c.CanonicalName, strings.Join(aliases, ", ")))
		}
	}
	if len(lines) == 0 {
		return
	}

	b.WriteString("\n## CANONICAL NAME MAPPINGS\n")
	b.WriteString("*Use these exact spellings in the text*\n")
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func writeLocationInventory(b *strings.Builder, led *ledger.Ledger) {
	b.WriteString("\n## LOCATION INVENTORY\n")

	locations := led.Locations()
	if len(locations) == 0 {
		b.WriteString("*No location information available yet.*\n")
		return
	}

	names := make([]string, 0, len(locations))
	for name := range locations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(b, "\n### %s\n", name)
		details := locations[name]
		if d, ok := details["details"]; ok && d != "" {
			fmt.Fprintf(b, "%s\n", d)
		}
		if p, ok := details["purpose"]; ok && p != "" {
			fmt.Fprintf(b, "*Purpose: %s*\n", p)
		}
	}
}

func writeObjectContinuity(b *strings.Builder, led *ledger.Ledger) {
	b.WriteString("\n## OBJECT CONTINUITY\n")

	objects := led.Objects()
	if len(objects) == 0 {
		b.WriteString("*No object information available yet.*\n")
		return
	}

	names := make([]string, 0, len(objects))
	for name := range objects {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		chapters := objects[name]
		parts := make([]string, len(chapters))
		for i, ch := range chapters {
			parts[i] = fmt.Sprint(ch)
		}
		fmt.Fprintf(b, "- **%s**: Chapters %s\n", name, strings.Join(parts, ", "))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
