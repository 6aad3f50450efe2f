// Package pipeline runs chapters through a fixed sequence of generation
// stages, each bound to one backend, one sampling configuration, and one
// context-assembly policy.
package pipeline

import (
	"github.com/vampirenirmal/bookforge/internal/assemble"
)

// Backend names the generation endpoint a stage calls. The orchestrator maps
// these to concrete clients; stages never hold credentials.
type Backend string

const (
	// BackendPrimary is the main instruct model.
	BackendPrimary Backend = "primary"
	// BackendThinking is the slower reasoning variant of the primary model.
	BackendThinking Backend = "thinking"
	// BackendBaseline is the cheaper secondary provider used for mechanical
	// passes.
	BackendBaseline Backend = "baseline"
)

// Mode selects which stage descriptors a run includes.
type Mode string

const (
	// ModeStandard runs the three core stages.
	ModeStandard Mode = "standard"
	// ModeExtended adds style calibration and a final validation pass.
	ModeExtended Mode = "extended"
)

// Stage describes one transform in the sequence. The driver loop is generic;
// all per-stage behavior lives here.
type Stage struct {
	Name        string
	Backend     Backend
	Temperature float64
	TopP        float64
	Sources     assemble.Sources
	System      string
	Task        string // instruction block placed between context and text
	StyleAware  bool   // receives the book's style profile when one is loaded
}

// Stages returns the ordered descriptors for a mode. Unknown modes fall back
// to standard.
func Stages(mode Mode) []Stage {
	standard := []Stage{
		{
			Name:        "grammar",
			Backend:     BackendBaseline,
			Temperature: 0.2,
			TopP:        0.9,
			Sources:     assemble.Sources{},
			System:      grammarSystem,
			Task:        grammarTask,
		},
		{
			Name:        "dialogue",
			Backend:     BackendPrimary,
			Temperature: 0.6,
			TopP:        0.95,
			Sources:     assemble.Sources{Retrieval: true},
			System:      dialogueSystem,
			Task:        dialogueTask,
		},
		{
			Name:        "draft",
			Backend:     BackendPrimary,
			Temperature: 0.5,
			TopP:        0.95,
			Sources:     assemble.Sources{Bible: true, PrevRewrites: true, FutureRaw: true, Retrieval: true},
			System:      draftSystem,
			Task:        draftTask,
		},
	}

	if mode != ModeExtended {
		return standard
	}

	return append(standard,
		Stage{
			Name:        "style",
			Backend:     BackendThinking,
			Temperature: 0.4,
			TopP:        0.9,
			Sources:     assemble.Sources{Bible: true, PrevRewrites: true},
			System:      styleSystem,
			Task:        styleTask,
			StyleAware:  true,
		},
		Stage{
			Name:        "polish",
			Backend:     BackendBaseline,
			Temperature: 0.1,
			TopP:        0.9,
			Sources:     assemble.Sources{Bible: true},
			System:      polishSystem,
			Task:        polishTask,
		},
	)
}
