package review

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-enry/go-enry/v2"

	"prwarden/internal/gitea"
	"prwarden/internal/logging"
)

// ContextBuilder turns one commit's diff listing into the CodeContext
// the analyzer consumes: ignore-filtered files plus a window of source
// text around the top of each survivor.
type ContextBuilder struct {
	scm     SCMClient
	ignores []string
	window  int
	logger  *logging.Logger
}

func NewContextBuilder(scm SCMClient, ignorePatterns []string, contextWindow int, logger *logging.Logger) *ContextBuilder {
	return &ContextBuilder{
		scm:     scm,
		ignores: ignorePatterns,
		window:  contextWindow,
		logger:  logger,
	}
}

// Build assembles the review input for one commit. Files matching an
// ignore pattern or carrying an empty path are filtered out. Context
// fetches are best effort: a file whose content cannot be read, is
// empty, or is binary simply contributes no context entry. When
// nothing survives filtering, or no file yields any context, the
// commit has no reviewable content.
func (b *ContextBuilder) Build(ctx context.Context, owner, repo string, diff gitea.CommitDiff) (CodeContext, error) {
	files := b.filterFiles(diff.Files)
	if len(files) == 0 {
		return CodeContext{}, ErrNoReviewableContent
	}

	contexts := make([]FileContext, 0, len(files))
	for _, file := range files {
		content, err := b.scm.GetFileContext(ctx, owner, repo, file.Filename, diff.CommitID, 1, 2*b.window)
		if err != nil {
			b.logger.Warn("file context unavailable",
				"path", file.Filename, "commit", shortID(diff.CommitID), "error", err)
			continue
		}
		if content == "" {
			continue
		}
		if enry.IsBinary([]byte(content)) {
			b.logger.Debug("skipping binary file context", "path", file.Filename)
			continue
		}
		contexts = append(contexts, FileContext{
			FilePath: file.Filename,
			FileType: fileType(file.Filename),
			Language: enry.GetLanguage(filepath.Base(file.Filename), []byte(content)),
			Context:  content,
		})
	}
	if len(contexts) == 0 {
		return CodeContext{}, ErrNoReviewableContent
	}

	return CodeContext{
		Diff:         diff.DiffContent,
		FilesContext: contexts,
		Metadata: map[string]string{
			"commit_id":      diff.CommitID,
			"commit_message": diff.CommitMessage,
			"primary_path":   files[0].Filename,
		},
	}, nil
}

func (b *ContextBuilder) filterFiles(files []gitea.ChangedFile) []gitea.ChangedFile {
	kept := make([]gitea.ChangedFile, 0, len(files))
	for _, file := range files {
		if file.Filename == "" {
			b.logger.Warn("skipping malformed change entry with empty path")
			continue
		}
		if b.ignored(file.Filename) {
			b.logger.Debug("ignoring file", "path", file.Filename)
			continue
		}
		kept = append(kept, file)
	}
	return kept
}

// ignored applies the configured glob patterns. A trailing slash marks
// a directory pattern and matches everything under it; a pattern
// without a slash matches the basename at any depth, like gitignore.
func (b *ContextBuilder) ignored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range b.ignores {
		if strings.HasSuffix(pattern, "/") {
			pattern += "**"
		}
		target := path
		if !strings.Contains(pattern, "/") {
			target = base
		}
		if ok, err := doublestar.Match(pattern, target); err == nil && ok {
			return true
		}
	}
	return false
}

func fileType(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "unknown"
	}
	return ext
}
