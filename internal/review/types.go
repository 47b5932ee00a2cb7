// Package review implements the PR review pipeline: assembling commit
// context, chunking diffs to a token budget, requesting structured
// reviews from the model, aggregating per-chunk results and driving the
// comment/approve/merge decision.
package review

import (
	"context"
	"errors"

	"prwarden/internal/gitea"
)

// ErrNoReviewableContent reports that a commit has nothing left to
// review after filtering and context collection. Callers skip the
// commit; it is not a failure.
var ErrNoReviewableContent = errors.New("no reviewable content")

// SCMClient is the forge capability set the pipeline depends on.
type SCMClient interface {
	GetDiff(ctx context.Context, owner, repo string, number int64) ([]gitea.CommitDiff, error)
	GetFileContext(ctx context.Context, owner, repo, filePath, commitID string, lineStart, lineCount int) (string, error)
	PostComment(ctx context.Context, owner, repo string, number int64, comments []gitea.ReviewComment) error
	ApprovePR(ctx context.Context, owner, repo string, number int64) error
	MergePR(ctx context.Context, owner, repo string, number int64) error
}

// TextGenerator is the language-model capability the pipeline depends
// on: one prompt in, one completion out.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// FileContext is a bounded window of source text around the top of a
// changed file at a specific revision.
type FileContext struct {
	FilePath string
	FileType string // extension without the dot, or "unknown"
	Language string // detected language name, may be empty
	Context  string
}

// CodeContext carries a diff (whole commit or one chunk), the file
// contexts relevant to that diff, and commit metadata. Chunks derived
// from a commit context hold independent FileContext slices.
type CodeContext struct {
	Diff         string
	FilesContext []FileContext
	Metadata     map[string]string // carries commit_id and commit_message
}

// CommitID returns the commit hash from the metadata.
func (c CodeContext) CommitID() string {
	return c.Metadata["commit_id"]
}

// CommitMessage returns the commit message from the metadata.
func (c CodeContext) CommitMessage() string {
	return c.Metadata["commit_message"]
}

// PrimaryPath returns the first reviewed file's path. The posted
// review comment anchors there.
func (c CodeContext) PrimaryPath() string {
	return c.Metadata["primary_path"]
}

// CodeIssue is a non-security finding.
type CodeIssue struct {
	FilePath    string `json:"file_path"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line,omitempty"` // 0 when the issue is single-line
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// SecurityIssue is a finding with a severity tag ("high" renders as
// critical in the report).
type SecurityIssue struct {
	Severity    string `json:"severity"`
	FilePath    string `json:"file_path"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line,omitempty"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// QualityMetrics holds the four dimension scores, each nominally 0-10.
type QualityMetrics struct {
	SecurityScore     float64 `json:"security_score"`
	PerformanceScore  float64 `json:"performance_score"`
	ReadabilityScore  float64 `json:"readability_score"`
	BestPracticeScore float64 `json:"best_practice_score"`
}

// ReviewResult is one review verdict, per chunk or aggregated per
// commit. It is either built from a validated model response or is the
// all-zero fallback, never partially populated.
type ReviewResult struct {
	Score          float64         `json:"score"`
	Issues         []CodeIssue     `json:"issues"`
	SecurityIssues []SecurityIssue `json:"security_issues"`
	QualityMetrics QualityMetrics  `json:"quality_metrics"`
}

// FallbackResult returns the all-zero ReviewResult substituted when
// analysis cannot produce a trustworthy score.
func FallbackResult() ReviewResult {
	return ReviewResult{
		Issues:         []CodeIssue{},
		SecurityIssues: []SecurityIssue{},
	}
}
