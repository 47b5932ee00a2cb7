package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prwarden/internal/config"
	"prwarden/internal/gitea"
	"prwarden/internal/logging"
)

func newTestService(scm *fakeSCM, llm TextGenerator, threshold float64) *Service {
	builder := NewContextBuilder(scm, []string{"*.md"}, 10, logging.NewNop())
	analyzer := NewAnalyzer(llm, newTestChunker(100_000), logging.NewNop())
	cfg := config.ReviewConfig{QualityThreshold: threshold, ScoringRules: testWeights()}
	return NewService(scm, builder, analyzer, cfg, logging.NewNop())
}

func commitWithFile(sha, path string) gitea.CommitDiff {
	return gitea.CommitDiff{
		CommitID:      sha,
		CommitMessage: "update " + path,
		Files:         []gitea.ChangedFile{{Filename: path, Status: "modified"}},
		DiffContent:   diffSection(path, "+updated := true\n"),
	}
}

func TestReviewPRApprovesAndMerges(t *testing.T) {
	scm := &fakeSCM{
		diffs:    []gitea.CommitDiff{commitWithFile("aaa111bbb222", "internal/app/app.go")},
		contents: map[string]string{"internal/app/app.go": "package app\n"},
	}
	llm := &scriptedLLM{responses: []string{scoredResponse(9)}}
	svc := newTestService(scm, llm, 8.5)

	outcome, err := svc.ReviewPR(context.Background(), "alice", "widget", 7)

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Commits)
	assert.Equal(t, 1, outcome.Reviewed)
	assert.Zero(t, outcome.Skipped)
	assert.Equal(t, 9.0, outcome.Score)
	assert.True(t, outcome.Approved)
	assert.True(t, outcome.Merged)
	assert.True(t, strings.HasPrefix(outcome.RunID, "rev-"))

	assert.Equal(t, 1, scm.approved)
	assert.Equal(t, 1, scm.merged)
	require.Len(t, scm.comments, 1)
	require.Len(t, scm.comments[0], 1)
	comment := scm.comments[0][0]
	assert.Equal(t, "internal/app/app.go", comment.Path)
	assert.Equal(t, 1, comment.Line)
	assert.Equal(t, "aaa111bbb222", comment.CommitID)
	assert.Contains(t, comment.Body, "<!-- prwarden-review:"+outcome.RunID+" -->")
	assert.Contains(t, comment.Body, "Overall Score: 9.0/10")
}

func TestReviewPRBelowThresholdLeavesPR(t *testing.T) {
	scm := &fakeSCM{
		diffs:    []gitea.CommitDiff{commitWithFile("aaa111bbb222", "main.go")},
		contents: map[string]string{"main.go": "package main\n"},
	}
	llm := &scriptedLLM{responses: []string{scoredResponse(7)}}
	svc := newTestService(scm, llm, 8.5)

	outcome, err := svc.ReviewPR(context.Background(), "alice", "widget", 7)

	require.NoError(t, err)
	assert.Equal(t, 7.0, outcome.Score)
	assert.False(t, outcome.Approved)
	assert.False(t, outcome.Merged)
	// the report is still posted
	require.Len(t, scm.comments, 1)
	assert.Zero(t, scm.approved)
	assert.Zero(t, scm.merged)
}

func TestReviewPRThresholdIsInclusive(t *testing.T) {
	scm := &fakeSCM{
		diffs:    []gitea.CommitDiff{commitWithFile("aaa111bbb222", "main.go")},
		contents: map[string]string{"main.go": "package main\n"},
	}
	llm := &scriptedLLM{responses: []string{scoredResponse(8.5)}}
	svc := newTestService(scm, llm, 8.5)

	outcome, err := svc.ReviewPR(context.Background(), "alice", "widget", 7)

	require.NoError(t, err)
	assert.True(t, outcome.Approved)
	assert.True(t, outcome.Merged)
}

func TestReviewPRTakesMinimumAcrossCommits(t *testing.T) {
	scm := &fakeSCM{
		diffs: []gitea.CommitDiff{
			commitWithFile("aaa111bbb222", "a.go"),
			commitWithFile("ccc333ddd444", "b.go"),
		},
		contents: map[string]string{"a.go": "package a\n", "b.go": "package b\n"},
	}
	llm := &scriptedLLM{responses: []string{scoredResponse(9), scoredResponse(7)}}
	svc := newTestService(scm, llm, 8.5)

	outcome, err := svc.ReviewPR(context.Background(), "alice", "widget", 7)

	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Reviewed)
	assert.Equal(t, 7.0, outcome.Score)
	assert.False(t, outcome.Approved)
	// one report per commit
	assert.Len(t, scm.comments, 2)
}

func TestReviewPRSkipsCommitWithOnlyIgnoredFiles(t *testing.T) {
	scm := &fakeSCM{
		diffs: []gitea.CommitDiff{
			commitWithFile("aaa111bbb222", "README.md"), // filtered by *.md
			commitWithFile("ccc333ddd444", "main.go"),
		},
		contents: map[string]string{"main.go": "package main\n"},
	}
	llm := &scriptedLLM{responses: []string{scoredResponse(9)}}
	svc := newTestService(scm, llm, 8.5)

	outcome, err := svc.ReviewPR(context.Background(), "alice", "widget", 7)

	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Commits)
	assert.Equal(t, 1, outcome.Reviewed)
	assert.Equal(t, 1, outcome.Skipped)
	assert.Equal(t, 9.0, outcome.Score)
	assert.True(t, outcome.Approved)
	require.Len(t, scm.comments, 1)
	assert.Equal(t, "main.go", scm.comments[0][0].Path)
}

func TestReviewPRSkipsCommitWhoseModelCallFails(t *testing.T) {
	scm := &fakeSCM{
		diffs: []gitea.CommitDiff{
			commitWithFile("aaa111bbb222", "a.go"),
			commitWithFile("ccc333ddd444", "b.go"),
		},
		contents: map[string]string{"a.go": "package a\n", "b.go": "package b\n"},
	}
	llm := &scriptedLLM{err: errors.New("bad gateway"), errAt: 1, responses: []string{scoredResponse(9)}}
	svc := newTestService(scm, llm, 8.5)

	outcome, err := svc.ReviewPR(context.Background(), "alice", "widget", 7)

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Reviewed)
	assert.Equal(t, 1, outcome.Skipped)
	assert.Equal(t, 9.0, outcome.Score)
	assert.True(t, outcome.Approved)
}

func TestReviewPRNoScoresLeavesPRAlone(t *testing.T) {
	scm := &fakeSCM{
		diffs: []gitea.CommitDiff{commitWithFile("aaa111bbb222", "README.md")},
	}
	llm := &scriptedLLM{}
	svc := newTestService(scm, llm, 8.5)

	outcome, err := svc.ReviewPR(context.Background(), "alice", "widget", 7)

	require.NoError(t, err)
	assert.Zero(t, outcome.Reviewed)
	assert.Equal(t, 1, outcome.Skipped)
	assert.False(t, outcome.Approved)
	assert.Empty(t, scm.comments)
	assert.Zero(t, scm.approved)
	assert.Zero(t, llm.calls)
}

func TestReviewPREmptyPullRequest(t *testing.T) {
	scm := &fakeSCM{}
	svc := newTestService(scm, &scriptedLLM{}, 8.5)

	outcome, err := svc.ReviewPR(context.Background(), "alice", "widget", 7)

	require.NoError(t, err)
	assert.Zero(t, outcome.Commits)
	assert.False(t, outcome.Approved)
}

func TestReviewPRDiffErrorFails(t *testing.T) {
	scm := &fakeSCM{diffErr: errors.New("gitea down")}
	svc := newTestService(scm, &scriptedLLM{}, 8.5)

	_, err := svc.ReviewPR(context.Background(), "alice", "widget", 7)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "get pull request diff")
}

func TestReviewPRCommentFailureSkipsCommit(t *testing.T) {
	scm := &fakeSCM{
		diffs:      []gitea.CommitDiff{commitWithFile("aaa111bbb222", "main.go")},
		contents:   map[string]string{"main.go": "package main\n"},
		commentErr: errors.New("forbidden"),
	}
	llm := &scriptedLLM{responses: []string{scoredResponse(9)}}
	svc := newTestService(scm, llm, 8.5)

	outcome, err := svc.ReviewPR(context.Background(), "alice", "widget", 7)

	require.NoError(t, err)
	assert.Zero(t, outcome.Reviewed)
	assert.Equal(t, 1, outcome.Skipped)
	assert.Zero(t, scm.approved)
}

func TestReviewPRMergeFailureKeepsApproval(t *testing.T) {
	scm := &fakeSCM{
		diffs:    []gitea.CommitDiff{commitWithFile("aaa111bbb222", "main.go")},
		contents: map[string]string{"main.go": "package main\n"},
		mergeErr: errors.New("merge conflict"),
	}
	llm := &scriptedLLM{responses: []string{scoredResponse(9)}}
	svc := newTestService(scm, llm, 8.5)

	outcome, err := svc.ReviewPR(context.Background(), "alice", "widget", 7)

	require.Error(t, err)
	assert.True(t, outcome.Approved)
	assert.False(t, outcome.Merged)
	assert.Equal(t, 1, scm.approved)
	assert.Equal(t, 1, scm.merged) // attempted once
}
