package metrics

import (
	"bytes"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/afero"

	"github.com/kiln-ssg/kiln/builder/utils"
)

const namespace = "kiln"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	reg           *prom.Registry
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	itemResults   *prom.CounterVec
	buildOutcome  *prom.CounterVec
	memo          *prom.CounterVec
}

// NewPrometheusRecorder registers its collectors on reg (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		itemResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Rendered or copied items by kind and result",
		}, []string{"kind", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		memo: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "render_memo_lookups_total",
			Help:      "Markdown render store lookups by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.itemResults, pr.buildOutcome, pr.memo)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncItemResult(kind string, result ResultLabel) {
	p.itemResults.WithLabelValues(kind, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) AddMemo(hits, misses int64) {
	p.memo.WithLabelValues("hit").Add(float64(hits))
	p.memo.WithLabelValues("miss").Add(float64(misses))
}

// Expose encodes every registered metric family in the text exposition format.
func (p *PrometheusRecorder) Expose() ([]byte, error) {
	mfs, err := p.reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	var buf bytes.Buffer
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}

// WriteFile dumps the metrics to path, node_exporter textfile style.
func (p *PrometheusRecorder) WriteFile(fs afero.Fs, path string) error {
	data, err := p.Expose()
	if err != nil {
		return err
	}
	return utils.WriteFileVFS(fs, path, data)
}
