package review

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// Validation failures raised before any model call is made.
var (
	ErrEmptyCommitMessage = errors.New("commit message is empty")
	ErrEmptyDiff          = errors.New("diff content is empty")
)

// noContextPlaceholder stands in for the file-context block when no
// context could be collected for a chunk.
const noContextPlaceholder = "No file context available."

const reviewPromptTemplate = `You are an expert code reviewer. Review the following code changes, paying attention to these dimensions:

1. Security (30% weight):
   - SQL injection, XSS and similar vulnerabilities
   - Leaked secrets or sensitive information
   - Missing permission and access control checks

2. Performance (20% weight):
   - Algorithmic complexity
   - Resource usage and leaks
   - Concurrency handling

3. Readability (20% weight):
   - Formatting and consistency
   - Naming clarity
   - Sufficient comments

4. Best practices (30% weight):
   - Appropriate design patterns
   - Unit test coverage
   - Type annotations
   - SOLID principles

Scoring rules:
- Security issue: high severity -3 points each, medium -1 point each
- Performance issue: -2 points each
- Readability issue: -0.5 points each
- Best practices: missing unit tests -2 points, missing type annotations -1 point

Commit message:
{{.CommitMessage}}

Code changes:
{{.Diff}}

Related file context:
{{.FilesContext}}

Provide a detailed review including:
1. An overall score out of 10
2. A list of specific issues with file paths and line numbers
3. A list of security issues with file paths and line numbers
4. A score for each dimension

Return the result as JSON in exactly this format:
{
    "score": float,
    "issues": [
        {
            "file_path": string,
            "start_line": int,
            "end_line": int | null,
            "description": string,
            "suggestion": string
        }
    ],
    "security_issues": [
        {
            "severity": string,
            "file_path": string,
            "start_line": int,
            "end_line": int | null,
            "description": string,
            "suggestion": string
        }
    ],
    "quality_metrics": {
        "security_score": float,
        "performance_score": float,
        "readability_score": float,
        "best_practice_score": float
    }
}

Notes:
1. Every issue must name the exact file path and line number
2. Use start_line and end_line when an issue spans multiple lines
3. Set end_line to null for single-line issues
4. Line numbers must refer to actual code lines
`

var reviewPrompt = template.Must(template.New("review").Parse(reviewPromptTemplate))

// BuildPrompt renders the review instructions for one chunk. It fails
// without calling the model when the commit message or the chunk's
// diff text is empty.
func BuildPrompt(chunk CodeContext) (string, error) {
	if chunk.CommitMessage() == "" {
		return "", ErrEmptyCommitMessage
	}
	if chunk.Diff == "" {
		return "", ErrEmptyDiff
	}

	var buf bytes.Buffer
	err := reviewPrompt.Execute(&buf, map[string]string{
		"CommitMessage": chunk.CommitMessage(),
		"Diff":          chunk.Diff,
		"FilesContext":  formatFilesContext(chunk.FilesContext),
	})
	if err != nil {
		return "", fmt.Errorf("render review prompt: %w", err)
	}
	return buf.String(), nil
}

func formatFilesContext(contexts []FileContext) string {
	if len(contexts) == 0 {
		return noContextPlaceholder
	}
	blocks := make([]string, 0, len(contexts))
	for _, fc := range contexts {
		blocks = append(blocks, fmt.Sprintf("File: %s (%s)\n%s", fc.FilePath, contextLabel(fc), fc.Context))
	}
	return strings.Join(blocks, "\n\n")
}

// contextLabel prefers the detected language over the bare extension.
func contextLabel(fc FileContext) string {
	if fc.Language != "" {
		return fc.Language
	}
	return fc.FileType
}
