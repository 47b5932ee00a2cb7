package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prwarden/internal/logging"
)

// charCounter counts one token per byte, making budget math exact.
type charCounter struct{}

func (charCounter) Count(text string) int { return len(text) }

func diffSection(path, body string) string {
	return "diff --git a/" + path + " b/" + path + "\n" + body
}

func commitContext(diff string, contexts ...FileContext) CodeContext {
	return CodeContext{
		Diff:         diff,
		FilesContext: contexts,
		Metadata: map[string]string{
			"commit_id":      "abc123def456",
			"commit_message": "change things",
		},
	}
}

// newTestChunker converts a payload budget into the constructor's
// max-tokens figure, which includes the prompt reserve.
func newTestChunker(payloadBudget int) *Chunker {
	return NewChunker(charCounter{}, payloadBudget+promptReserve, logging.NewNop())
}

func TestSplitEmptyDiff(t *testing.T) {
	chunker := newTestChunker(100)
	assert.Empty(t, chunker.Split(commitContext("")))
	assert.Empty(t, chunker.Split(commitContext("   \n\t\n")))
}

func TestSplitSingleSection(t *testing.T) {
	sec := diffSection("main.go", "+fmt.Println(\"hi\")\n")
	ctx := commitContext(sec,
		FileContext{FilePath: "main.go", FileType: "go", Context: "package main"},
		FileContext{FilePath: "other.go", FileType: "go", Context: "package other"},
	)

	chunks := newTestChunker(10_000).Split(ctx)
	require.Len(t, chunks, 1)
	assert.Equal(t, sec, chunks[0].Diff)
	require.Len(t, chunks[0].FilesContext, 1)
	assert.Equal(t, "main.go", chunks[0].FilesContext[0].FilePath)
	assert.Equal(t, "abc123def456", chunks[0].CommitID())
}

func TestSplitPacksSectionsUnderBudget(t *testing.T) {
	secA := diffSection("a.go", "+alpha\n")
	secB := diffSection("b.go", "+beta\n")
	ctx := commitContext(secA+secB,
		FileContext{FilePath: "a.go", FileType: "go", Context: "ctx a"},
		FileContext{FilePath: "b.go", FileType: "go", Context: "ctx b"},
	)

	chunks := newTestChunker(len(secA) + len(secB)).Split(ctx)
	require.Len(t, chunks, 1)
	assert.Equal(t, secA+secB, chunks[0].Diff)
	assert.Len(t, chunks[0].FilesContext, 2)
}

func TestSplitClosesChunkAtBudget(t *testing.T) {
	secA := diffSection("a.go", "+alpha\n")
	secB := diffSection("b.go", "+beta\n")
	ctx := commitContext(secA+secB,
		FileContext{FilePath: "a.go", FileType: "go", Context: "ctx a"},
		FileContext{FilePath: "b.go", FileType: "go", Context: "ctx b"},
	)

	// budget admits the first section but not both
	chunks := newTestChunker(len(secA) + len(secB) - 1).Split(ctx)
	require.Len(t, chunks, 2)
	assert.Equal(t, secA, chunks[0].Diff)
	assert.Equal(t, secB, chunks[1].Diff)

	require.Len(t, chunks[0].FilesContext, 1)
	assert.Equal(t, "a.go", chunks[0].FilesContext[0].FilePath)
	require.Len(t, chunks[1].FilesContext, 1)
	assert.Equal(t, "b.go", chunks[1].FilesContext[0].FilePath)
}

func TestSplitOversizeSectionOwnChunk(t *testing.T) {
	big := diffSection("big.gen.go", "+"+strings.Repeat("x", 500)+"\n")
	small := diffSection("small.go", "+tweak\n")
	ctx := commitContext(big+small,
		FileContext{FilePath: "big.gen.go", FileType: "go", Context: "big ctx"},
		FileContext{FilePath: "small.go", FileType: "go", Context: "small ctx"},
	)

	budget := len(small) + 10 // big section exceeds the budget alone
	chunks := newTestChunker(budget).Split(ctx)
	require.Len(t, chunks, 2)

	assert.Equal(t, big, chunks[0].Diff, "oversize section occupies its own chunk, unsplit")
	assert.Equal(t, small, chunks[1].Diff)

	// every chunk except the oversized one respects the budget
	for i, chunk := range chunks {
		if chunk.Diff == big {
			continue
		}
		assert.LessOrEqual(t, len(chunk.Diff), budget, "chunk %d over budget", i)
	}
}

func TestSplitDropsHeaderlessSections(t *testing.T) {
	good := diffSection("ok.go", "+fine\n")
	bad := "diff --git mangled-header-without-paths\n+lost\n"
	ctx := commitContext(good + bad)

	chunks := newTestChunker(10_000).Split(ctx)
	require.Len(t, chunks, 1)
	assert.Equal(t, good, chunks[0].Diff)
	assert.NotContains(t, chunks[0].Diff, "lost")
}

func TestSplitCoverage(t *testing.T) {
	// concatenating all chunks reproduces the original diff minus
	// dropped sections
	secs := []string{
		diffSection("one.go", "+1\n"),
		diffSection("two.go", "+2\n"),
		diffSection("three.go", "+"+strings.Repeat("3", 200)+"\n"),
		diffSection("four.go", "+4\n"),
	}
	full := strings.Join(secs, "")
	ctx := commitContext(full)

	chunks := newTestChunker(60).Split(ctx)
	require.NotEmpty(t, chunks)

	var rejoined strings.Builder
	for _, chunk := range chunks {
		rejoined.WriteString(chunk.Diff)
	}
	assert.Equal(t, full, rejoined.String())
}

func TestSplitChunksDoNotShareState(t *testing.T) {
	secA := diffSection("a.go", "+alpha\n")
	secB := diffSection("b.go", "+beta\n")
	ctx := commitContext(secA+secB,
		FileContext{FilePath: "a.go", FileType: "go", Context: "ctx a"},
		FileContext{FilePath: "b.go", FileType: "go", Context: "ctx b"},
	)

	chunks := newTestChunker(len(secA)).Split(ctx)
	require.Len(t, chunks, 2)

	chunks[0].Metadata["commit_message"] = "mutated"
	assert.Equal(t, "change things", chunks[1].CommitMessage())
	assert.Equal(t, "change things", ctx.CommitMessage())
}

func TestSplitSections(t *testing.T) {
	tests := []struct {
		name string
		diff string
		want int
	}{
		{name: "empty", diff: "", want: 0},
		{name: "single", diff: diffSection("a.go", "+x\n"), want: 1},
		{name: "two", diff: diffSection("a.go", "+x\n") + diffSection("b.go", "+y\n"), want: 2},
		{
			name: "embedded marker mid-line is not a boundary",
			diff: diffSection("a.go", "+text mentioning diff --git a/z b/z inline\n"),
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, splitSections(tt.diff), tt.want)
		})
	}
}

func TestSectionPath(t *testing.T) {
	path, ok := sectionPath("diff --git a/internal/x.go b/internal/x.go\n+1\n")
	require.True(t, ok)
	assert.Equal(t, "internal/x.go", path)

	_, ok = sectionPath("diff --git broken\n")
	assert.False(t, ok)
}
