package review

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"prwarden/internal/config"
	"prwarden/internal/gitea"
	"prwarden/internal/logging"
	"prwarden/internal/ulid"
)

// Outcome summarizes one review run over a pull request.
type Outcome struct {
	RunID    string
	Commits  int     // commits in the pull request
	Reviewed int     // commits that produced a score
	Skipped  int     // commits without a score
	Score    float64 // minimum across reviewed commits, valid when Reviewed > 0
	Approved bool
	Merged   bool
}

// Service reviews pull requests commit by commit and approves and
// merges the ones whose worst commit still clears the quality
// threshold.
type Service struct {
	scm       SCMClient
	builder   *ContextBuilder
	analyzer  *Analyzer
	threshold float64
	weights   map[string]float64
	logger    *logging.Logger
}

func NewService(scm SCMClient, builder *ContextBuilder, analyzer *Analyzer, cfg config.ReviewConfig, logger *logging.Logger) *Service {
	return &Service{
		scm:       scm,
		builder:   builder,
		analyzer:  analyzer,
		threshold: cfg.QualityThreshold,
		weights:   cfg.ScoringRules,
		logger:    logger,
	}
}

// ReviewPR runs the full pipeline for one pull request. Commits are
// independent: a commit that fails or has nothing to review is skipped
// and the rest proceed. The PR verdict is the minimum score across the
// commits that were actually reviewed; if none were, the PR is left
// alone. Only forge-level failures surface as errors.
func (s *Service) ReviewPR(ctx context.Context, owner, repo string, number int64) (Outcome, error) {
	runID := ulid.GenerateWithPrefix(ulid.PrefixReview)
	logger := s.logger.With("run", runID, "repo", owner+"/"+repo, "pr", number)
	outcome := Outcome{RunID: runID}

	logger.Info("starting review")

	// 1. Fetch the per-commit diffs
	diffs, err := s.scm.GetDiff(ctx, owner, repo, number)
	if err != nil {
		return outcome, fmt.Errorf("get pull request diff: %w", err)
	}
	outcome.Commits = len(diffs)

	// 2. Review each commit on its own
	scores := make([]float64, 0, len(diffs))
	for _, diff := range diffs {
		commitLogger := logger.With("commit", shortID(diff.CommitID))
		analysis, err := s.reviewCommit(ctx, owner, repo, number, runID, diff, commitLogger)
		switch {
		case errors.Is(err, ErrNoReviewableContent):
			commitLogger.Info("no reviewable content, skipping commit")
			outcome.Skipped++
			continue
		case err != nil:
			commitLogger.Warn("commit review failed, skipping commit", "error", err)
			outcome.Skipped++
			continue
		case !analysis.Usable():
			commitLogger.Warn("no chunk produced a verdict, skipping commit")
			outcome.Skipped++
			continue
		}
		scores = append(scores, analysis.Result.Score)
		outcome.Reviewed++
	}

	// 3. Decide on the PR
	if outcome.Reviewed == 0 {
		logger.Warn("no commit produced a score, leaving pull request alone")
		return outcome, nil
	}
	outcome.Score = slices.Min(scores)
	logger.Info("review complete",
		"score", outcome.Score, "threshold", s.threshold,
		"reviewed", outcome.Reviewed, "skipped", outcome.Skipped)

	if outcome.Score < s.threshold {
		logger.Info("score below threshold, leaving pull request for human review")
		return outcome, nil
	}

	// 4. Approve, then merge. A merge failure (conflicts, branch
	// protection) leaves the approval in place.
	if err := s.scm.ApprovePR(ctx, owner, repo, number); err != nil {
		return outcome, fmt.Errorf("approve pull request: %w", err)
	}
	outcome.Approved = true
	logger.Info("pull request approved")

	if err := s.scm.MergePR(ctx, owner, repo, number); err != nil {
		return outcome, fmt.Errorf("merge pull request: %w", err)
	}
	outcome.Merged = true
	logger.Info("pull request merged")

	return outcome, nil
}

// reviewCommit builds the commit's context, analyzes it, and posts the
// report comment. An unusable analysis posts nothing; the caller skips
// the commit.
func (s *Service) reviewCommit(ctx context.Context, owner, repo string, number int64, runID string, diff gitea.CommitDiff, logger *logging.Logger) (Analysis, error) {
	cc, err := s.builder.Build(ctx, owner, repo, diff)
	if err != nil {
		return Analysis{}, err
	}

	analysis, err := s.analyzer.AnalyzeCode(ctx, cc)
	if err != nil {
		return Analysis{}, err
	}
	if !analysis.Usable() {
		return analysis, nil
	}

	logger.Info("commit reviewed",
		"score", analysis.Result.Score, "chunks", analysis.Chunks,
		"issues", len(analysis.Result.Issues),
		"security_issues", len(analysis.Result.SecurityIssues))

	comment := gitea.ReviewComment{
		Path:     cc.PrimaryPath(),
		Line:     1,
		Body:     RenderReport(runID, diff.CommitID, analysis, s.weights),
		CommitID: diff.CommitID,
	}
	if err := s.scm.PostComment(ctx, owner, repo, number, []gitea.ReviewComment{comment}); err != nil {
		return Analysis{}, fmt.Errorf("post review comment: %w", err)
	}
	return analysis, nil
}
