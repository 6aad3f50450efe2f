package bible

// bibleSystem frames the model as a developmental editor producing structured
// guidance. UNKNOWN is the required stand-in for facts the excerpts do not
// support; the model must never invent story facts.
const bibleSystem = `You are a professional developmental editor and line editor.
You produce structured, publishable guidance in markdown format.
Do not invent missing facts; use UNKNOWN if not present.
Keep it clear, concrete, and consistent.

Core mandate:
- Align the bible to the current working title and central concept if provided.
- Make the story reflect the title's promise through theme, motifs, setting rules, character arcs, and plot framing.
- When details are missing, mark UNKNOWN and propose what to seed (as recommendations), without inventing story facts.
`

const bibleUserTemplate = `Create a "Book Bible" from the draft excerpts.

Output EXACTLY these sections with markdown formatting and in this exact order:

# Title

## Working Title
- **Title**: [Use the current preferred title if present in the excerpts or instructions, otherwise UNKNOWN]
- **Tagline options (3)**: [Short options aligned to the title promise, or UNKNOWN if title is UNKNOWN]
- **Title promise**: [One paragraph: what the reader expects from this title]

## 1. Premise & Genre

> **One-paragraph premise + genre shelf guess**

[Your premise here. Make it match the title promise.]

## 2. Story Engine

> **What keeps pages turning**

- **Central tension**: [One sentence]
- **Primary engine**: [2 to 4 bullets: forces in collision]
- **Escalation pattern**: [How danger grows across the book in 3 beats]

## 3. Plot Summary

> **Beginning, Middle, End, with key reveals. Make sure the framing supports the title.**

### Beginning
[Beginning summary]

### Middle
[Middle summary]

### End
[End summary]

## 4. Settings & Locations

| Location | Description | Significance |
|----------|-------------|--------------|
| [Name] | [Physical description] | [Thematic or emotional role tied to title promise] |

### Location Rules
- **Location Type** = Symbolic meaning (tie to title and theme)
- Add rules for each major setting type

## 5. Chapter-by-Chapter Synopsis

| Chapter | POV | Synopsis |
|---------|-----|----------|
| [Ch #] | [POV character] | [Brief summary, 1 to 2 lines] |

### Seeding checkpoints (mini list)
- Bullet 5 to 8 places where you must seed: motifs, signature objects, continuity-critical facts

## 6. Character Dossier

### [Character Name]
- **Role**: [Protagonist/Antagonist/etc.]
- **Goal**: [What they want]
- **Flaw**: [Their weakness]
- **Secret**: [Hidden truth]
- **Arc**: [How they change]
- **How the title pressures them**: [1 to 2 sentences tying them to the title concept]

## 7. Timeline & Continuity

| Event | Timing | Location |
|-------|--------|----------|
| [Event] | [When] | [Where] |

### Continuity Locks
- [Critical facts that must stay consistent]
- Include: objects, injuries, time jumps, aliases, protocols

## 8. Themes, Tone & POV

### Themes
- **Theme Name**: Brief explanation (must align with title promise)

### Tone
- [Restrained, atmospheric, etc.]

### POV & Tense
- [First-person present, etc.]

### Motif list (repeatable)
- 5 to 10 motifs that can recur in scenes (sound, weather, objects, gestures, language patterns)

## 9. Problems to Fix (Ranked)

1. **[Problem]**: [Description and fix]
- Rank in the order that most improves clarity, credibility, pacing, and title alignment

## 10. Rewrite Strategy (3 Passes)

### Pass 1 (Structure)
- [Structural changes needed]

### Pass 2 (Character & POV)
- [Character arc adjustments]

### Pass 3 (Line & Tone)
- [Style refinements]

Constraints:
- If info is missing, write UNKNOWN instead of guessing.
- Keep this cohesive; resolve contradictions by pointing them out (do not fabricate).

DRAFT EXCERPTS:
%s
`
