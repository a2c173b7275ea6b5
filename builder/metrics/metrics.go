// Package metrics provides build statistics and telemetry.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// BuildStats tracks one build. The builder fills the counters after reducing
// worker results, so no field is written concurrently.
type BuildStats struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Pages       int
	Documents   int
	StaticFiles int
	Generated   int
	Skipped     int
	Errors      int
	Pruned      int

	MemoHits   int64
	MemoMisses int64

	// Incremental build info
	IsIncremental bool
	ChangedFiles  []string
}

// NewBuildStats starts the clock on a new build.
func NewBuildStats() *BuildStats {
	return &BuildStats{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
	}
}

// RecordEnd stops the clock.
func (s *BuildStats) RecordEnd() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// TotalDuration returns the build duration, running or not.
func (s *BuildStats) TotalDuration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.Duration
}

// Written is the number of files produced by the build.
func (s *BuildStats) Written() int {
	return s.Pages + s.Documents + s.StaticFiles
}

// MemoHitRate returns the render store hit percentage.
func (s *BuildStats) MemoHitRate() float64 {
	total := s.MemoHits + s.MemoMisses
	if total == 0 {
		return 0
	}
	return float64(s.MemoHits) / float64(total) * 100
}

// String returns a one line summary.
func (s *BuildStats) String() string {
	mode := "full"
	if s.IsIncremental {
		mode = "incremental"
	}
	return fmt.Sprintf("Built %d pages, %d documents, %d static files in %v (%s, skipped %d, errors %d, memo %.0f%%)",
		s.Pages, s.Documents, s.StaticFiles, s.TotalDuration().Round(time.Millisecond),
		mode, s.Skipped, s.Errors, s.MemoHitRate())
}

// Print writes the summary line to w.
func (s *BuildStats) Print(w io.Writer) {
	_, _ = fmt.Fprintln(w, s.String())
}
