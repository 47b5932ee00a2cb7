package review

// Aggregate folds per-chunk results into one commit verdict. Scores
// take the minimum, component-wise for the quality metrics, so a
// commit is only as good as its worst chunk. Issue lists concatenate
// in chunk order. An empty input yields the all-zero fallback.
func Aggregate(results []ReviewResult) ReviewResult {
	if len(results) == 0 {
		return FallbackResult()
	}

	out := FallbackResult()
	out.Score = results[0].Score
	out.QualityMetrics = results[0].QualityMetrics
	for _, r := range results {
		out.Score = min(out.Score, r.Score)
		out.QualityMetrics.SecurityScore = min(out.QualityMetrics.SecurityScore, r.QualityMetrics.SecurityScore)
		out.QualityMetrics.PerformanceScore = min(out.QualityMetrics.PerformanceScore, r.QualityMetrics.PerformanceScore)
		out.QualityMetrics.ReadabilityScore = min(out.QualityMetrics.ReadabilityScore, r.QualityMetrics.ReadabilityScore)
		out.QualityMetrics.BestPracticeScore = min(out.QualityMetrics.BestPracticeScore, r.QualityMetrics.BestPracticeScore)
		out.Issues = append(out.Issues, r.Issues...)
		out.SecurityIssues = append(out.SecurityIssues, r.SecurityIssues...)
	}
	return out
}
