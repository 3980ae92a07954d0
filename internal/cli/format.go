package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fpang/storyfairy/internal/pipeline"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// PrintResult writes a human-readable summary of a finished run.
func PrintResult(w io.Writer, res *pipeline.Result, elapsed time.Duration) {
	fmt.Fprintf(w, "\n%s\n\n", res.StoryText)
	fmt.Fprintf(w, "Story:          %s\n", res.StoryURL)
	fmt.Fprintf(w, "Detailed story: %s\n", res.DetailedStoryURL)
	for _, img := range res.Images {
		fmt.Fprintf(w, "Image %d:        %s\n", img.SentenceIndex+1, img.URL)
	}
	if skipped := res.Telemetry.SkippedIndices; len(skipped) > 0 {
		fmt.Fprintf(w, "Skipped sentences: %v\n", skipped)
	}
	fmt.Fprintf(w, "Done in %s\n", FormatDurationShort(elapsed))
}
