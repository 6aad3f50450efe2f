// Package extract turns raw chapter text into structured character, location,
// and plot facts by prompting a model and parsing its JSON reply.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vampirenirmal/bookforge/internal/agent"
	"github.com/vampirenirmal/bookforge/internal/core"
	"github.com/vampirenirmal/bookforge/internal/ledger"
)

const systemPrompt = "You are a narrative analyst."

const extractionPrompt = `You are a narrative analyst. Extract the following from this chapter:

1. CHARACTERS - For each character:
   - Full name (most commonly used)
   - Aliases or variations (pronouns, titles, descriptive references)
   - Physical traits (hair, eyes, height, build, age, distinguishing features)
   - Voice/speech patterns (style, tone, word choice)
   - Current status or situation
   - Relationships mentioned (with other characters)

2. LOCATIONS - Each place with physical details

3. PLOT EVENTS - Key events in sequence

Return ONLY valid JSON in this exact format:
{
  "characters": [
    {
      "canonical_name": "Simon",
      "aliases": ["the man", "him"],
      "physical_traits": {"hair": "dark", "eyes": "brown", "height": "6'0"},
      "voice_patterns": {"style": "direct", "tone": "calm"},
      "current_status": "sheltering at cabin",
      "relationships": [{"name": "Gene", "type": "protecting"}]
    }
  ],
  "locations": {
    "Simon's Cabin": {"details": "remote, snowbound, one road, fireplace"}
  },
  "plot_events": ["Gene arrives injured", "Simon treats her wounds"]
}

Do not include any text outside the JSON.`

// extractionTemperature is deliberately low: extraction wants facts, not prose.
const extractionTemperature = 0.1

// Extractor runs the extraction prompt for one chapter at a time.
type Extractor struct {
	gen    agent.Generator
	logger *slog.Logger
}

func New(gen agent.Generator) *Extractor {
	return &Extractor{
		gen:    gen,
		logger: slog.Default().With("component", "extractor"),
	}
}

// WithLogger replaces the extractor's logger.
func (e *Extractor) WithLogger(logger *slog.Logger) *Extractor {
	e.logger = logger
	return e
}

// Chapter extracts structured facts from one chapter. A malformed model reply
// returns a core.ExtractionError carrying the raw text; the caller's ledger is
// never touched on failure because merging is the caller's job.
func (e *Extractor) Chapter(ctx context.Context, chapterIdx int, chapterText string) (ledger.Extraction, error) {
	if strings.TrimSpace(chapterText) == "" {
		return ledger.Extraction{}, fmt.Errorf("chapter %d: %w", chapterIdx, core.ErrInvalidInput)
	}

	req := agent.GenerateRequest{
		SystemPrompt: systemPrompt,
		UserText:     fmt.Sprintf("%s\n\nChapter text:\n%s", extractionPrompt, chapterText),
		Temperature:  extractionTemperature,
	}

	raw, err := e.gen.Generate(ctx, req)
	if err != nil {
		return ledger.Extraction{}, fmt.Errorf("extracting chapter %d: %w", chapterIdx, err)
	}

	ex, err := parseExtraction(raw)
	if err != nil {
		return ledger.Extraction{}, &core.ExtractionError{
			Chapter: chapterIdx,
			Detail:  err.Error(),
			Raw:     raw,
		}
	}

	e.logger.Info("chapter extracted",
		"chapter", chapterIdx,
		"characters", len(ex.Characters),
		"locations", len(ex.Locations),
		"events", len(ex.PlotEvents))
	return ex, nil
}

// parseExtraction decodes the model reply, tolerating markdown fences and
// leading or trailing chatter around the JSON object.
func parseExtraction(raw string) (ledger.Extraction, error) {
	cleaned := cleanJSONResponse(raw)
	if cleaned == "" {
		return ledger.Extraction{}, fmt.Errorf("no JSON object in reply")
	}

	var ex ledger.Extraction
	if err := json.Unmarshal([]byte(cleaned), &ex); err != nil {
		return ledger.Extraction{}, fmt.Errorf("decoding reply: %w", err)
	}

	// Drop records the merge could not key on.
	kept := ex.Characters[:0]
	for _, c := range ex.Characters {
		if strings.TrimSpace(c.CanonicalName) != "" {
			kept = append(kept, c)
		}
	}
	ex.Characters = kept
	return ex, nil
}

// cleanJSONResponse strips markdown code fences and trims the reply down to
// the outermost JSON object.
func cleanJSONResponse(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(response[start : end+1])
}
