package review

import (
	"fmt"
	"strings"
)

const (
	reportMarkerPrefix = "<!-- prwarden-review:"
	reportMarkerSuffix = " -->"
)

// metricRows fixes the rendering order of the quality dimensions.
var metricRows = []struct {
	label string
	key   string
}{
	{"Security", "security"},
	{"Performance", "performance"},
	{"Readability", "readability"},
	{"Best Practice", "best_practice"},
}

// RenderReport builds the markdown body posted as the review comment
// for one commit. The leading marker carries the run ID so later runs
// can recognize their own comments. Weights come from configuration
// and are shown for context only, the verdict uses the overall score.
func RenderReport(runID, commitID string, analysis Analysis, weights map[string]float64) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s%s%s\n", reportMarkerPrefix, runID, reportMarkerSuffix))
	sb.WriteString("## 🤖 Automated Code Review\n\n")
	sb.WriteString(fmt.Sprintf("**Overall Score: %.1f/10** (commit `%s`)\n\n", analysis.Result.Score, shortID(commitID)))

	sb.WriteString("| Dimension | Score | Weight |\n|-----------|-------|--------|\n")
	for _, row := range metricRows {
		sb.WriteString(fmt.Sprintf("| %s | %.1f/10 | %.0f%% |\n",
			row.label, metricValue(analysis.Result.QualityMetrics, row.key), weights[row.key]*100))
	}

	if len(analysis.Result.Issues) == 0 && len(analysis.Result.SecurityIssues) == 0 {
		sb.WriteString("\n✅ No issues found.\n")
	}

	if len(analysis.Result.Issues) > 0 {
		sb.WriteString("\n### 📝 Improvement Suggestions\n\n")
		for i, issue := range analysis.Result.Issues {
			sb.WriteString(fmt.Sprintf("%d. %s%s\n", i+1, issueLocation(issue.FilePath, issue.StartLine, issue.EndLine), issue.Description))
			if issue.Suggestion != "" {
				sb.WriteString(fmt.Sprintf("   > %s\n", issue.Suggestion))
			}
		}
	}

	if len(analysis.Result.SecurityIssues) > 0 {
		sb.WriteString("\n### 🔒 Security Issues\n\n")
		for i, issue := range analysis.Result.SecurityIssues {
			sb.WriteString(fmt.Sprintf("%d. %s %s%s\n", i+1, severityIcon(issue.Severity), issueLocation(issue.FilePath, issue.StartLine, issue.EndLine), issue.Description))
			if issue.Suggestion != "" {
				sb.WriteString(fmt.Sprintf("   > %s\n", issue.Suggestion))
			}
		}
	}

	if analysis.Degraded() {
		sb.WriteString(fmt.Sprintf("\n_%d of %d diff chunks could not be fully analyzed and were scored 0._\n",
			len(analysis.Notes), analysis.Chunks))
	}

	return sb.String()
}

// issueLocation renders "`path` (line 12): " or "`path` (lines 12-18): ".
// A zero start line means the model gave no usable location.
func issueLocation(path string, start, end int) string {
	if path == "" {
		return ""
	}
	switch {
	case start > 0 && end > start:
		return fmt.Sprintf("`%s` (lines %d-%d): ", path, start, end)
	case start > 0:
		return fmt.Sprintf("`%s` (line %d): ", path, start)
	default:
		return fmt.Sprintf("`%s`: ", path)
	}
}

func severityIcon(severity string) string {
	if strings.EqualFold(severity, "high") {
		return "🔴"
	}
	return "🟡"
}

func metricValue(m QualityMetrics, key string) float64 {
	switch key {
	case "security":
		return m.SecurityScore
	case "performance":
		return m.PerformanceScore
	case "readability":
		return m.ReadabilityScore
	case "best_practice":
		return m.BestPracticeScore
	}
	return 0
}
