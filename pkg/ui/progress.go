package ui

import (
	"fmt"
	"time"
)

// RunTracker times a single archive run and renders its outcome.
type RunTracker struct {
	StartTime time.Time
}

// NewRunTracker creates a tracker anchored at the current time
func NewRunTracker() *RunTracker {
	return &RunTracker{StartTime: time.Now()}
}

// GetElapsedTime returns the elapsed time since the run started
func (rt *RunTracker) GetElapsedTime() time.Duration {
	return time.Since(rt.StartTime).Round(time.Second)
}

// GetArchiveRate returns the average archive rate (items per minute)
func (rt *RunTracker) GetArchiveRate(archived int) float64 {
	elapsed := time.Since(rt.StartTime).Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(archived) / elapsed
}

// PrintRunSummary prints the counts of a finished run
func (rt *RunTracker) PrintRunSummary(pages, archived, skipped int, marker string) {
	if quietMode {
		return
	}

	fmt.Println()
	fmt.Printf("%s %s\n", Cyan("Pages fetched:"), Yellow(fmt.Sprintf("%d", pages)))
	fmt.Printf("%s %s\n", Cyan("Items archived:"), Yellow(fmt.Sprintf("%d", archived)))
	fmt.Printf("%s %s\n", Cyan("Items skipped:"), Yellow(fmt.Sprintf("%d", skipped)))
	fmt.Printf("%s %s\n", Cyan("Elapsed:"), Yellow(rt.GetElapsedTime().String()))
	if archived > 0 {
		fmt.Printf("%s %s\n", Cyan("Rate:"), Yellow(fmt.Sprintf("%.1f items/min", rt.GetArchiveRate(archived))))
	}
	if marker != "" {
		fmt.Printf("%s %s\n", Cyan("Resume marker:"), Dim(marker))
	}
}
