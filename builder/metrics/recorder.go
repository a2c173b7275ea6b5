package metrics

import "time"

// ResultLabel enumerates per-item outcomes.
type ResultLabel string

const (
	ResultWritten ResultLabel = "written"
	ResultCopied  ResultLabel = "copied"
	ResultSkipped ResultLabel = "skipped"
	ResultFailed  ResultLabel = "failed"
)

// Recorder receives build telemetry. The builder calls it from one goroutine.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncItemResult(kind string, result ResultLabel)
	IncBuildOutcome(outcome string)
	AddMemo(hits, misses int64)
}

// NoopRecorder is used when metrics are not configured.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncItemResult(string, ResultLabel)          {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) AddMemo(int64, int64)                       {}
