package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvexport",
			Name:      "exports_total",
			Help:      "Finished exports by result (success, failed) and error kind",
		},
		[]string{"result", "kind"},
	)

	pagesPerExport = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cvexport",
			Name:      "pages_per_export",
			Help:      "Number of PDF pages produced per successful export",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 12, 20},
		},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvexport",
			Name:      "stage_duration_seconds",
			Help:      "Duration of export stages (capture, paginate, assemble, finalize)",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	exportsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cvexport",
			Name:      "exports_in_flight",
			Help:      "Exports currently running",
		},
	)

	lockRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cvexport",
			Name:      "lock_rejections_total",
			Help:      "Exports refused because the document was already exporting",
		},
	)
)

var once sync.Once

// Init registers collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(exportsTotal, pagesPerExport, stageDuration, exportsInFlight, lockRejections)
	})
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ExportSucceeded(pages int) {
	exportsTotal.WithLabelValues("success", "").Inc()
	pagesPerExport.Observe(float64(pages))
}

func ExportFailed(kind string) { exportsTotal.WithLabelValues("failed", kind).Inc() }

func ObserveStage(stage string, dur time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(dur.Seconds())
}

func ExportStarted()  { exportsInFlight.Inc() }
func ExportFinished() { exportsInFlight.Dec() }

func IncLockRejected() { lockRejections.Inc() }
