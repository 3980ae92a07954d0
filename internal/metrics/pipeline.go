package metrics

import "time"

// RunSummary describes one finished pipeline run.
type RunSummary struct {
	RunID          string
	Outcome        string
	TextProvider   string
	SentenceCount  int
	ImagesKept     int
	SkippedIndices []int
	Duration       time.Duration
}

// RecordRun emits the per-run pipeline metrics.
func RecordRun(s RunSummary) {
	provider := s.TextProvider
	if provider == "" {
		provider = "none"
	}
	skipped := s.SkippedIndices
	if skipped == nil {
		skipped = []int{}
	}
	New(Namespace).
		Dimension("Outcome", s.Outcome).
		Dimension("TextProvider", provider).
		Metric("PipelineDurationMs", float64(s.Duration.Milliseconds()), UnitMilliseconds).
		Metric("SentenceCount", float64(s.SentenceCount), UnitCount).
		Metric("ImagesKept", float64(s.ImagesKept), UnitCount).
		Metric("ImagesSkipped", float64(len(s.SkippedIndices)), UnitCount).
		Property("runId", s.RunID).
		Property("skippedIndices", skipped).
		Flush()
}

// RecordProviderAttempt emits one provider call outcome. result is
// "success" or an error kind such as "quota" or "parse".
func RecordProviderAttempt(stage, provider, result string, elapsed time.Duration) {
	New(Namespace).
		Dimension("Stage", stage).
		Dimension("Provider", provider).
		Dimension("Result", result).
		Metric("ProviderLatencyMs", float64(elapsed.Milliseconds()), UnitMilliseconds).
		Count("ProviderAttempt").
		Flush()
}

// RecordRequest emits per-request HTTP metrics.
func RecordRequest(endpoint, method string, status int, elapsed time.Duration) {
	New(Namespace).
		Dimension("Endpoint", endpoint).
		Metric("RequestLatencyMs", float64(elapsed.Milliseconds()), UnitMilliseconds).
		Count("RequestCount").
		Property("method", method).
		Property("statusCode", status).
		Flush()
}
