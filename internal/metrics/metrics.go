package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mdm"

// Ingest result labels.
const (
	ResultOK         = "ok"
	ResultValidation = "validation"
	ResultConflict   = "conflict"
	ResultStorage    = "storage"
	ResultMetadata   = "metadata"
	ResultInternal   = "internal"
)

// Recorder captures ingestion metrics.
type Recorder interface {
	ObserveIngest(result string, bytes int64, durationSeconds float64)
	IncHistoryAppendFailure()
}

// Noop implements Recorder without emitting anything.
type Noop struct{}

func (Noop) ObserveIngest(string, int64, float64) {}
func (Noop) IncHistoryAppendFailure()             {}

// Prom implements Recorder backed by Prometheus collectors.
type Prom struct {
	ingests        *prometheus.CounterVec
	ingestBytes    prometheus.Counter
	ingestDuration *prometheus.HistogramVec
	historyFailed  prometheus.Counter
	gatherer       prometheus.Gatherer
}

// NewProm registers the ingest collectors on reg. A nil reg uses a fresh
// registry, which keeps repeated construction in tests safe.
func NewProm(reg *prometheus.Registry) *Prom {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	p := &Prom{
		ingests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Ingest requests by result",
		}, []string{"result"}),
		ingestBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_bytes_total",
			Help:      "Payload bytes accepted by successful ingests",
		}),
		ingestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Ingest latency by result",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		historyFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_append_failures_total",
			Help:      "CREATED history events that failed to persist after the object row was committed",
		}),
		gatherer: reg,
	}
	reg.MustRegister(p.ingests, p.ingestBytes, p.ingestDuration, p.historyFailed)
	return p
}

func (p *Prom) ObserveIngest(result string, bytes int64, durationSeconds float64) {
	p.ingests.WithLabelValues(result).Inc()
	p.ingestDuration.WithLabelValues(result).Observe(durationSeconds)
	if result == ResultOK && bytes > 0 {
		p.ingestBytes.Add(float64(bytes))
	}
}

func (p *Prom) IncHistoryAppendFailure() {
	p.historyFailed.Inc()
}

// Handler returns an HTTP handler for /metrics.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
