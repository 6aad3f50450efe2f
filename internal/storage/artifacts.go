package storage

import (
	"context"
	"fmt"
)

// Artifact layout under the book directory. Final chapter filenames encode
// the 1-based chapter order; chapterIdx everywhere else stays 0-based.
const (
	rewritesDir     = "rewrites"
	intermediateDir = "rewrites/intermediate"
	validationDir   = "validation"
)

// FinalChapterPath returns the relative path of a finished chapter.
func FinalChapterPath(chapterIdx int) string {
	return fmt.Sprintf("%s/chapter_%02d.md", rewritesDir, chapterIdx+1)
}

// StageArtifactPath names an intermediate stage output deterministically by
// chapter and stage number.
func StageArtifactPath(chapterIdx, stageNum int, stageName string) string {
	return fmt.Sprintf("%s/chapter_%02d_stage_%d_%s.md", intermediateDir, chapterIdx+1, stageNum, stageName)
}

// ReportPath names a chapter's continuity report.
func ReportPath(chapterIdx int) string {
	return fmt.Sprintf("%s/chapter_%02d.json", validationDir, chapterIdx+1)
}

// SaveFinalChapter persists a finished chapter.
func (s *Store) SaveFinalChapter(ctx context.Context, chapterIdx int, text string) error {
	return s.Save(ctx, FinalChapterPath(chapterIdx), []byte(text))
}

// FinalChapter reads a finished chapter back; ok is false when the chapter
// has not been rewritten yet.
func (s *Store) FinalChapter(chapterIdx int) (string, bool) {
	data, err := s.Load(context.Background(), FinalChapterPath(chapterIdx))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// SaveStageArtifact persists one intermediate stage output. This is a side
// channel for inspection; later stages never read it back.
func (s *Store) SaveStageArtifact(ctx context.Context, chapterIdx, stageNum int, stageName, text string) error {
	return s.Save(ctx, StageArtifactPath(chapterIdx, stageNum, stageName), []byte(text))
}
