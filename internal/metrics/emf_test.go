package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func captureFlush(t *testing.T, fn func()) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	fn()

	out := strings.TrimSpace(buf.String())
	if out == "" {
		return nil
	}
	if strings.Count(out, "\n") != 0 {
		t.Fatalf("EMF output must be a single line, got:\n%s", out)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, out)
	}
	return doc
}

func TestNew_AutoDimension(t *testing.T) {
	initOnce.Do(func() {})
	functionName = "TestFunction"
	defer func() { functionName = "" }()

	r := New("TestNamespace")
	if r.namespace != "TestNamespace" {
		t.Errorf("expected namespace TestNamespace, got %s", r.namespace)
	}
	if r.dimensions["FunctionName"] != "TestFunction" {
		t.Errorf("expected FunctionName dimension TestFunction, got %s", r.dimensions["FunctionName"])
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	functionName = ""

	doc := captureFlush(t, func() {
		New(Namespace).
			Dimension("Stage", "text").
			Metric("LatencyMs", 1234.5, UnitMilliseconds).
			Metric("CallCount", 1, UnitCount).
			Property("runId", "abc-123").
			Flush()
	})
	if doc == nil {
		t.Fatal("expected EMF output")
	}

	awsMap, ok := doc["_aws"].(map[string]any)
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	if _, ok := awsMap["Timestamp"]; !ok {
		t.Error("missing Timestamp in _aws directive")
	}
	cwArr, ok := awsMap["CloudWatchMetrics"].([]any)
	if !ok || len(cwArr) == 0 {
		t.Fatal("CloudWatchMetrics should be a non-empty array")
	}
	cw := cwArr[0].(map[string]any)
	if cw["Namespace"] != Namespace {
		t.Errorf("expected namespace %s, got %v", Namespace, cw["Namespace"])
	}
	metricsArr := cw["Metrics"].([]any)
	if first := metricsArr[0].(map[string]any)["Name"]; first != "CallCount" {
		t.Errorf("expected metric definitions sorted by name, first = %v", first)
	}

	if doc["Stage"] != "text" {
		t.Errorf("expected Stage=text, got %v", doc["Stage"])
	}
	if doc["LatencyMs"] != 1234.5 {
		t.Errorf("expected LatencyMs=1234.5, got %v", doc["LatencyMs"])
	}
	if doc["CallCount"] != float64(1) {
		t.Errorf("expected CallCount=1, got %v", doc["CallCount"])
	}
	if doc["runId"] != "abc-123" {
		t.Errorf("expected runId=abc-123, got %v", doc["runId"])
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	doc := captureFlush(t, func() {
		New("Test").Flush()
	})
	if doc != nil {
		t.Errorf("expected no output for empty recorder, got: %v", doc)
	}
}

func TestRecorder_Chaining(t *testing.T) {
	functionName = ""
	rec := New("Test").
		Dimension("Op", "test").
		Metric("Duration", 100, UnitMilliseconds).
		Count("Calls").
		Property("id", "xyz")

	if rec.dimensions["Op"] != "test" {
		t.Error("chaining Dimension failed")
	}
	if rec.values["Duration"] != float64(100) {
		t.Error("chaining Metric failed")
	}
	if rec.values["Calls"] != float64(1) {
		t.Error("chaining Count failed")
	}
	if rec.properties["id"] != "xyz" {
		t.Error("chaining Property failed")
	}
}

func TestRecordRun(t *testing.T) {
	functionName = ""
	doc := captureFlush(t, func() {
		RecordRun(RunSummary{
			RunID:          "run-1",
			Outcome:        "done",
			TextProvider:   "gemini",
			SentenceCount:  5,
			ImagesKept:     4,
			SkippedIndices: []int{2},
			Duration:       1500 * time.Millisecond,
		})
	})
	if doc["ImagesSkipped"] != float64(1) {
		t.Errorf("expected ImagesSkipped=1, got %v", doc["ImagesSkipped"])
	}
	if doc["ImagesKept"] != float64(4) {
		t.Errorf("expected ImagesKept=4, got %v", doc["ImagesKept"])
	}
	skipped, ok := doc["skippedIndices"].([]any)
	if !ok || len(skipped) != 1 || skipped[0] != float64(2) {
		t.Errorf("expected skippedIndices=[2], got %v", doc["skippedIndices"])
	}
}

func TestRecordRun_NoTextProvider(t *testing.T) {
	functionName = ""
	doc := captureFlush(t, func() {
		RecordRun(RunSummary{Outcome: "failed"})
	})
	if doc["TextProvider"] != "none" {
		t.Errorf("expected TextProvider=none, got %v", doc["TextProvider"])
	}
}
