package review

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FailureReason classifies why a chunk's analysis was degraded to the
// fallback result or skipped outright.
type FailureReason string

const (
	// ReasonEmptyInput marks a chunk skipped before the model call
	// because its commit message or diff text was empty.
	ReasonEmptyInput FailureReason = "empty-input"

	// ReasonNoJSON marks a response with no JSON object to extract.
	ReasonNoJSON FailureReason = "no-json-object"

	// ReasonBadJSON marks a response whose extracted object did not
	// parse as JSON.
	ReasonBadJSON FailureReason = "unparseable-json"
)

// ParseReviewResult turns raw model output into a ReviewResult. It is
// deliberately lenient: formatting noise around the JSON object is
// discarded, missing or wrong-typed fields are replaced with zero
// values, and when no usable object exists at all the all-zero
// fallback is returned together with the reason. It never fails.
func ParseReviewResult(raw string) (ReviewResult, FailureReason) {
	text := strings.TrimSpace(raw)

	text, ok := extractJSONObject(text)
	if !ok {
		return FallbackResult(), ReasonNoJSON
	}

	text = stripCodeFences(text)

	// Flatten raw newlines: insignificant outside strings, and inside
	// strings they were invalid JSON to begin with.
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", "")

	var fields struct {
		Score          json.RawMessage `json:"score"`
		Issues         json.RawMessage `json:"issues"`
		SecurityIssues json.RawMessage `json:"security_issues"`
		QualityMetrics json.RawMessage `json:"quality_metrics"`
	}
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return FallbackResult(), ReasonBadJSON
	}

	return ReviewResult{
		Score:          decodeScore(fields.Score),
		Issues:         decodeIssues(fields.Issues),
		SecurityIssues: decodeSecurityIssues(fields.SecurityIssues),
		QualityMetrics: decodeMetrics(fields.QualityMetrics),
	}, ""
}

// extractJSONObject returns the substring from the first "{" to the
// last "}".
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// stripCodeFences removes markdown code-fence wrappers that survived
// the brace extraction.
func stripCodeFences(s string) string {
	if strings.Contains(s, "```json") {
		parts := strings.Split(s, "```json")
		s = parts[len(parts)-1]
		if i := strings.Index(s, "```"); i >= 0 {
			s = s[:i]
		}
		return s
	}
	if parts := strings.Split(s, "```"); len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return s
}

func decodeScore(raw json.RawMessage) float64 {
	if raw == nil {
		return 0
	}
	var score float64
	if err := json.Unmarshal(raw, &score); err != nil {
		return 0
	}
	return score
}

// rawIssue accepts the model's loose typing: line numbers arrive as
// numbers, numeric strings, or null.
type rawIssue struct {
	Severity    string `json:"severity"`
	FilePath    string `json:"file_path"`
	StartLine   any    `json:"start_line"`
	EndLine     any    `json:"end_line"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

func decodeIssues(raw json.RawMessage) []CodeIssue {
	issues := []CodeIssue{}
	for _, entry := range decodeRawIssues(raw) {
		issues = append(issues, CodeIssue{
			FilePath:    entry.FilePath,
			StartLine:   parseLineNumber(entry.StartLine),
			EndLine:     parseLineNumber(entry.EndLine),
			Description: entry.Description,
			Suggestion:  entry.Suggestion,
		})
	}
	return issues
}

func decodeSecurityIssues(raw json.RawMessage) []SecurityIssue {
	issues := []SecurityIssue{}
	for _, entry := range decodeRawIssues(raw) {
		issues = append(issues, SecurityIssue{
			Severity:    entry.Severity,
			FilePath:    entry.FilePath,
			StartLine:   parseLineNumber(entry.StartLine),
			EndLine:     parseLineNumber(entry.EndLine),
			Description: entry.Description,
			Suggestion:  entry.Suggestion,
		})
	}
	return issues
}

func decodeRawIssues(raw json.RawMessage) []rawIssue {
	if raw == nil {
		return nil
	}
	var entries []rawIssue
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	return entries
}

func decodeMetrics(raw json.RawMessage) QualityMetrics {
	var metrics QualityMetrics
	if raw == nil {
		return metrics
	}
	var fields struct {
		SecurityScore     json.RawMessage `json:"security_score"`
		PerformanceScore  json.RawMessage `json:"performance_score"`
		ReadabilityScore  json.RawMessage `json:"readability_score"`
		BestPracticeScore json.RawMessage `json:"best_practice_score"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return metrics
	}
	metrics.SecurityScore = decodeScore(fields.SecurityScore)
	metrics.PerformanceScore = decodeScore(fields.PerformanceScore)
	metrics.ReadabilityScore = decodeScore(fields.ReadabilityScore)
	metrics.BestPracticeScore = decodeScore(fields.BestPracticeScore)
	return metrics
}

// parseLineNumber tolerates the common shapes models emit for line
// numbers.
func parseLineNumber(value any) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}
