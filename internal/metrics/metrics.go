package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prediction outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeParseError = "parse_error"
	OutcomeDegenerate = "degenerate"
	OutcomeError      = "error"
)

// Metrics collects prediction and delivery counters. A nil *Metrics is a no-op.
type Metrics struct {
	predictions  *prometheus.CounterVec
	deliveries   *prometheus.CounterVec
	scanDuration prometheus.Histogram
	lastScan     prometheus.Gauge
}

// New registers the collectors against registerer.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		predictions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "callreminder_predictions_total",
			Help: "Prediction runs by outcome",
		}, []string{"outcome"}),
		deliveries: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "callreminder_deliveries_total",
			Help: "Reminder deliveries by sink and result",
		}, []string{"sink", "result"}),
		scanDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "callreminder_scan_duration_seconds",
			Help:    "Duration of a scheduled scan of the customer directory",
			Buckets: prometheus.DefBuckets,
		}),
		lastScan: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "callreminder_last_scan_timestamp_seconds",
			Help: "Unix time of the last completed scan",
		}),
	}
}

// Handler exposes the collectors gathered by gatherer over HTTP.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

// RecordPrediction counts a prediction run.
func (m *Metrics) RecordPrediction(outcome string) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(outcome).Inc()
}

// RecordDelivery counts a delivery attempt.
func (m *Metrics) RecordDelivery(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.deliveries.WithLabelValues(sink, result).Inc()
}

// RecordScan observes a completed directory scan.
func (m *Metrics) RecordScan(started time.Time) {
	if m == nil {
		return
	}
	m.scanDuration.Observe(time.Since(started).Seconds())
	m.lastScan.SetToCurrentTime()
}
