package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings holds everything the rewrite engine needs: backend endpoints,
// chunking and retrieval parameters, pacing targets, and context window sizes.
type Settings struct {
	Chat      ChatConfig      `yaml:"chat" validate:"required"`
	Embedding EmbeddingConfig `yaml:"embedding" validate:"required"`
	Chunking  ChunkingConfig  `yaml:"chunking" validate:"required"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Pacing    PacingConfig    `yaml:"pacing"`
	Context   ContextConfig   `yaml:"context"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Paths     PathsConfig     `yaml:"paths"`
}

// ChatConfig configures the generation backends. The primary endpoint serves
// the drafting stages; the baseline endpoint serves the grammar-normalize
// stage. Both speak the OpenAI-compatible chat completion protocol.
type ChatConfig struct {
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url" validate:"required,url"`
	Model         string `yaml:"model" validate:"required"`
	ThinkingModel string `yaml:"thinking_model"`

	BaselineAPIKey  string `yaml:"baseline_api_key"`
	BaselineBaseURL string `yaml:"baseline_base_url" validate:"omitempty,url"`
	BaselineModel   string `yaml:"baseline_model"`

	TimeoutSeconds int `yaml:"timeout_seconds" validate:"min=10,max=3600"`
	MaxRetries     int `yaml:"max_retries" validate:"min=0,max=10"`
}

type EmbeddingConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	Model     string `yaml:"model" validate:"required"`
	BatchSize int    `yaml:"batch_size" validate:"min=4,max=256"`
}

type ChunkingConfig struct {
	TargetChars  int `yaml:"target_chars" validate:"required,min=200"`
	OverlapChars int `yaml:"overlap_chars" validate:"min=0"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k" validate:"min=1,max=100"`
}

type PacingConfig struct {
	TargetWordsMin int `yaml:"target_words_min" validate:"min=100"`
	TargetWordsMax int `yaml:"target_words_max" validate:"min=100"`
}

// ContextConfig bounds what the assembler may pull into a stage prompt.
type ContextConfig struct {
	PreviousChapters int `yaml:"previous_chapters" validate:"min=0,max=10"`
	FutureChapters   int `yaml:"future_chapters" validate:"min=0,max=10"`
	ChunkCharBudget  int `yaml:"chunk_char_budget" validate:"min=200"`
	FutureCharBudget int `yaml:"future_char_budget" validate:"min=200"`
}

type PipelineConfig struct {
	// Mode selects the stage sequence: "standard" (3 stages) or
	// "extended" (5 stages).
	Mode              string `yaml:"mode" validate:"oneof=standard extended"`
	SaveIntermediates bool   `yaml:"save_intermediates"`
	StyleSampleSize   int    `yaml:"style_sample_size" validate:"min=1,max=10"`
}

type PathsConfig struct {
	BooksDir     string `yaml:"books_dir"`
	RegistryFile string `yaml:"registry_file"`
}

// Default returns the settings a fresh install starts from. API keys are left
// empty and must come from the config file or environment.
func Default() Settings {
	return Settings{
		Chat: ChatConfig{
			BaseURL:         "https://api.tokenfactory.nebius.com/v1",
			Model:           "moonshotai/Kimi-K2-Instruct",
			ThinkingModel:   "moonshotai/Kimi-K2-Thinking",
			BaselineBaseURL: "https://api.sambanova.ai/v1",
			BaselineModel:   "gpt-oss-120b",
			TimeoutSeconds:  300,
			MaxRetries:      5,
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://api.mistral.ai/v1",
			Model:     "mistral-embed",
			BatchSize: 32,
		},
		Chunking: ChunkingConfig{
			TargetChars:  1200,
			OverlapChars: 180,
		},
		Retrieval: RetrievalConfig{TopK: 10},
		Pacing: PacingConfig{
			TargetWordsMin: 2000,
			TargetWordsMax: 3500,
		},
		Context: ContextConfig{
			PreviousChapters: 3,
			FutureChapters:   2,
			ChunkCharBudget:  1500,
			FutureCharBudget: 3000,
		},
		Pipeline: PipelineConfig{
			Mode:              "standard",
			SaveIntermediates: false,
			StyleSampleSize:   3,
		},
		Paths: PathsConfig{
			BooksDir:     "books",
			RegistryFile: "books_registry.json",
		},
	}
}

// Load reads settings from an optional YAML file, then applies environment
// overrides (a .env file is honored if present) and validates the result.
func Load(path string) (*Settings, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func applyEnv(cfg *Settings) {
	setStr := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setStr(&cfg.Chat.APIKey, "NEBIUS_API_KEY")
	setStr(&cfg.Chat.BaseURL, "NEBIUS_BASE_URL")
	setStr(&cfg.Chat.Model, "KIMI_MODEL")
	setStr(&cfg.Chat.ThinkingModel, "KIMI_THINKING_MODEL")
	setStr(&cfg.Chat.BaselineAPIKey, "SAMBANOVA_API_KEY")
	setStr(&cfg.Chat.BaselineBaseURL, "SAMBANOVA_BASE_URL")
	setStr(&cfg.Chat.BaselineModel, "SAMBANOVA_MODEL")
	setStr(&cfg.Embedding.APIKey, "MISTRAL_API_KEY")
	setStr(&cfg.Embedding.Model, "MISTRAL_EMBED_MODEL")
	setInt(&cfg.Chunking.TargetChars, "CHUNK_CHAR_TARGET")
	setInt(&cfg.Chunking.OverlapChars, "CHUNK_CHAR_OVERLAP")
	setInt(&cfg.Retrieval.TopK, "TOP_K")
	setInt(&cfg.Pacing.TargetWordsMin, "TARGET_WORD_COUNT_MIN")
	setInt(&cfg.Pacing.TargetWordsMax, "TARGET_WORD_COUNT_MAX")
	setInt(&cfg.Context.PreviousChapters, "PREVIOUS_CHAPTERS_COUNT")
	setInt(&cfg.Context.FutureChapters, "FUTURE_CHAPTERS_COUNT")
	setStr(&cfg.Paths.BooksDir, "BOOKS_DIR")
}

// ApplyOverrides layers a book's per-setting overrides onto the loaded
// settings. Keys match the YAML field names; numeric values decoded from a
// book's JSON config arrive as float64. Unknown keys are ignored.
func (s *Settings) ApplyOverrides(overrides map[string]any) {
	setStr := func(dst *string, key string) {
		if v, ok := overrides[key].(string); ok && strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		switch v := overrides[key].(type) {
		case int:
			*dst = v
		case float64:
			*dst = int(v)
		}
	}
	setBool := func(dst *bool, key string) {
		if v, ok := overrides[key].(bool); ok {
			*dst = v
		}
	}

	setStr(&s.Pipeline.Mode, "mode")
	setBool(&s.Pipeline.SaveIntermediates, "save_intermediates")
	setInt(&s.Pipeline.StyleSampleSize, "style_sample_size")
	setInt(&s.Retrieval.TopK, "top_k")
	setInt(&s.Pacing.TargetWordsMin, "target_words_min")
	setInt(&s.Pacing.TargetWordsMax, "target_words_max")
	setInt(&s.Context.PreviousChapters, "previous_chapters")
	setInt(&s.Context.FutureChapters, "future_chapters")
	setInt(&s.Context.ChunkCharBudget, "chunk_char_budget")
	setInt(&s.Context.FutureCharBudget, "future_char_budget")
	setInt(&s.Chunking.TargetChars, "chunk_target_chars")
	setInt(&s.Chunking.OverlapChars, "chunk_overlap_chars")
}

// Validate checks struct tags plus the cross-field rules tags cannot express.
func (s *Settings) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("field %s failed %q validation", first.Namespace(), first.Tag())
		}
		return err
	}

	if s.Chunking.OverlapChars >= s.Chunking.TargetChars {
		return fmt.Errorf("chunking overlap (%d) must be smaller than target (%d)",
			s.Chunking.OverlapChars, s.Chunking.TargetChars)
	}
	if s.Pacing.TargetWordsMin > s.Pacing.TargetWordsMax {
		return fmt.Errorf("pacing minimum (%d) exceeds maximum (%d)",
			s.Pacing.TargetWordsMin, s.Pacing.TargetWordsMax)
	}

	return nil
}
