package review

import (
	"maps"
	"regexp"
	"strings"

	"prwarden/internal/logging"
	"prwarden/internal/tokenizer"
)

// promptReserve is the token headroom kept free for the prompt template
// and the model's response.
const promptReserve = 1000

// sectionPathRe extracts the changed file's path from a per-file diff
// section header ("diff --git a/path b/path").
var sectionPathRe = regexp.MustCompile(`a/(.*?) b/`)

// Chunker splits a commit-level CodeContext into token-bounded chunks
// aligned on whole-file diff sections.
type Chunker struct {
	counter   tokenizer.Counter
	maxTokens int
	logger    *logging.Logger
}

// NewChunker builds a Chunker with the given per-request token budget.
func NewChunker(counter tokenizer.Counter, maxTokens int, logger *logging.Logger) *Chunker {
	return &Chunker{counter: counter, maxTokens: maxTokens, logger: logger}
}

// Split cuts the context's diff at "diff --git" boundaries and packs
// whole sections into chunks that stay under the budget minus reserve.
// A section too large for the budget on its own gets a chunk of its
// own rather than being split mid-file. Sections whose header cannot
// be parsed are dropped. An empty diff yields zero chunks; callers
// treat that as no reviewable content. Each chunk's FilesContext is
// the subset of entries whose path appears in that chunk.
func (c *Chunker) Split(cc CodeContext) []CodeContext {
	budget := c.maxTokens - promptReserve

	var chunks []CodeContext
	var currentDiff strings.Builder
	var currentFiles []string
	currentTokens := 0

	flush := func() {
		if currentDiff.Len() == 0 {
			return
		}
		chunks = append(chunks, CodeContext{
			Diff:         currentDiff.String(),
			FilesContext: subsetContexts(cc.FilesContext, currentFiles),
			Metadata:     maps.Clone(cc.Metadata),
		})
		currentDiff.Reset()
		currentFiles = nil
		currentTokens = 0
	}

	for _, section := range splitSections(cc.Diff) {
		path, ok := sectionPath(section)
		if !ok {
			c.logger.Warn("dropping diff section with unparseable header",
				"commit", shortID(cc.CommitID()), "section_bytes", len(section))
			continue
		}

		tokens := c.counter.Count(section)
		if currentTokens+tokens > budget {
			flush()
		}
		currentDiff.WriteString(section)
		currentFiles = append(currentFiles, path)
		currentTokens += tokens
	}
	flush()

	return chunks
}

// splitSections cuts a unified diff into per-file sections at lines
// beginning with "diff --git ". Text before the first section header
// stays attached to nothing and surfaces as a headerless section.
func splitSections(diff string) []string {
	if strings.TrimSpace(diff) == "" {
		return nil
	}

	var sections []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		if strings.HasPrefix(line, "diff --git ") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}

func sectionPath(section string) (string, bool) {
	m := sectionPathRe.FindStringSubmatch(section)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func subsetContexts(all []FileContext, paths []string) []FileContext {
	subset := make([]FileContext, 0, len(paths))
	if len(paths) == 0 {
		return subset
	}
	want := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		want[p] = struct{}{}
	}
	for _, fc := range all {
		if _, ok := want[fc.FilePath]; ok {
			subset = append(subset, fc)
		}
	}
	return subset
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
