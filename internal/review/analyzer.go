package review

import (
	"context"
	"fmt"

	"prwarden/internal/logging"
)

// ChunkNote records a chunk that did not produce a genuine model
// verdict and why.
type ChunkNote struct {
	Chunk  int // 1-based position within the commit
	Reason FailureReason
}

// Analysis is the commit-level outcome of a review run: the aggregated
// result plus enough detail to tell a clean verdict from a degraded
// one.
type Analysis struct {
	Result ReviewResult
	Chunks int // chunks produced for the commit
	Scored int // chunks that reached aggregation
	Notes  []ChunkNote
}

// Usable reports whether at least one chunk reached aggregation. When
// false the Result is the all-zero fallback and must not be treated as
// a real score.
func (a Analysis) Usable() bool { return a.Scored > 0 }

// Degraded reports whether any chunk was skipped or fell back.
func (a Analysis) Degraded() bool { return len(a.Notes) > 0 }

// Analyzer runs the chunk-by-chunk model review for a single commit.
type Analyzer struct {
	llm     TextGenerator
	chunker *Chunker
	logger  *logging.Logger
}

func NewAnalyzer(llm TextGenerator, chunker *Chunker, logger *logging.Logger) *Analyzer {
	return &Analyzer{
		llm:     llm,
		chunker: chunker,
		logger:  logger,
	}
}

// AnalyzeCode splits the commit into chunks, reviews each one, and
// aggregates the per-chunk results. A chunk with empty input is
// skipped; a chunk whose response cannot be parsed contributes the
// fallback result. Only two things fail the call: a commit with no
// reviewable content (ErrNoReviewableContent) and a model transport
// error, which aborts the commit because remaining chunks would fail
// the same way.
func (a *Analyzer) AnalyzeCode(ctx context.Context, cc CodeContext) (Analysis, error) {
	chunks := a.chunker.Split(cc)
	if len(chunks) == 0 {
		return Analysis{}, ErrNoReviewableContent
	}

	commit := shortID(cc.CommitID())
	results := make([]ReviewResult, 0, len(chunks))
	var notes []ChunkNote
	for i, chunk := range chunks {
		prompt, err := BuildPrompt(chunk)
		if err != nil {
			a.logger.Warn("skipping chunk with empty input",
				"commit", commit, "chunk", i+1, "error", err)
			notes = append(notes, ChunkNote{Chunk: i + 1, Reason: ReasonEmptyInput})
			continue
		}

		a.logger.Info("reviewing chunk",
			"commit", commit, "chunk", i+1, "chunks", len(chunks),
			"diff_bytes", len(chunk.Diff))
		raw, err := a.llm.GenerateText(ctx, prompt)
		if err != nil {
			return Analysis{}, fmt.Errorf("review chunk %d/%d: %w", i+1, len(chunks), err)
		}

		result, reason := ParseReviewResult(raw)
		if reason != "" {
			a.logger.Warn("model response unusable, scoring chunk zero",
				"commit", commit, "chunk", i+1, "reason", reason)
			notes = append(notes, ChunkNote{Chunk: i + 1, Reason: reason})
		}
		results = append(results, result)
	}

	return Analysis{
		Result: Aggregate(results),
		Chunks: len(chunks),
		Scored: len(results),
		Notes:  notes,
	}, nil
}
