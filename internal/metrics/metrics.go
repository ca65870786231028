// Package metrics records pipeline counters in a Prometheus registry and
// writes them as a textfile for node-exporter style collection of batch
// runs.
package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MF0323/cransurv/internal/store"
)

const namespace = "cransurv"

// Recorder holds the pipeline metrics. A nil *Recorder discards everything.
type Recorder struct {
	reg *prometheus.Registry

	loaded  *prometheus.CounterVec
	dropped *prometheus.CounterVec
	logLik  *prometheus.GaugeVec
	obs     *prometheus.GaugeVec
	lastRun prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		loaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Input records loaded by table",
		}, []string{"table"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Records excluded from analysis by reason",
		}, []string{"reason"}),
		logLik: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loglik",
			Help:      "Log-likelihood of the latest fit by model",
		}, []string{"model"}),
		obs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_observations",
			Help:      "Observations used by the latest fit by model",
		}, []string{"model"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the latest completed pipeline run",
		}),
	}
	r.reg.MustRegister(r.loaded, r.dropped, r.logLik, r.obs, r.lastRun)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// RecordLoaded adds n loaded records for table.
func (r *Recorder) RecordLoaded(table string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.loaded.WithLabelValues(table).Add(float64(n))
}

// RecordDropped adds n excluded records for reason.
func (r *Recorder) RecordDropped(reason string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.dropped.WithLabelValues(reason).Add(float64(n))
}

// RecordFit sets the log-likelihood and observation count of a model.
func (r *Recorder) RecordFit(model string, logLik float64, n int) {
	if r == nil {
		return
	}
	r.logLik.WithLabelValues(model).Set(logLik)
	r.obs.WithLabelValues(model).Set(float64(n))
}

// MarkRun records the completion time of a pipeline run.
func (r *Recorder) MarkRun(t time.Time) {
	if r == nil {
		return
	}
	r.lastRun.Set(float64(t.Unix()))
}

// WriteTextfile writes the registry in the text exposition format. The
// file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}

// CountSource reports stored row counts.
type CountSource interface {
	GetCounts() (store.Counts, error)
}

var storeRowsDesc = prometheus.NewDesc(
	namespace+"_store_rows",
	"Rows currently held in the store by table",
	[]string{"table"},
	nil,
)

// StoreCollector is a custom collector that reads row counts from the
// store on each gather.
type StoreCollector struct {
	src CountSource
}

// Describe sends the metric descriptor to the channel.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- storeRowsDesc
}

// Collect queries the store and emits one gauge per table.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	counts, err := c.src.GetCounts()
	if err != nil {
		slog.Error("failed to collect store metrics", "error", err)
		return
	}
	for table, n := range map[string]int{
		"lifecycle":       counts.Lifecycle,
		"listings":        counts.Listings,
		"listing_entries": counts.ListingEntries,
		"model_runs":      counts.ModelRuns,
	} {
		ch <- prometheus.MustNewConstMetric(storeRowsDesc, prometheus.GaugeValue, float64(n), table)
	}
}

// WatchStore registers a StoreCollector over src. The returned function
// unregisters it.
func (r *Recorder) WatchStore(src CountSource) (func(), error) {
	if r == nil {
		return func() {}, nil
	}
	c := &StoreCollector{src: src}
	if err := r.reg.Register(c); err != nil {
		return nil, err
	}
	return func() { r.reg.Unregister(c) }, nil
}
