package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/projtrack/tracker/internal/event_bus"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	importRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Imported spreadsheet rows by entity and outcome.",
	}, []string{"entity", "outcome"})

	importFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "import",
		Name:      "failures_total",
		Help:      "Import batches rolled back because of an error.",
	}, []string{"entity"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tracker",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route template and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "code"})
)

func init() {
	prometheus.MustRegister(importRows, importFailures, httpDuration)
}

// RecordImport adds the outcome counts of one finished import.
func RecordImport(e event_bus.ImportCompleted) {
	importRows.WithLabelValues(e.Entity, "created").Add(float64(e.Created))
	importRows.WithLabelValues(e.Entity, "updated").Add(float64(e.Updated))
	importRows.WithLabelValues(e.Entity, "skipped").Add(float64(e.Skipped))
}

func RecordImportFailure(entity string) {
	importFailures.WithLabelValues(entity).Inc()
}

// Subscribe feeds import events from bus into the collectors.
func Subscribe(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.ImportCompletedType, func(e event_bus.EventT[event_bus.ImportCompleted]) error {
		RecordImport(e.Data)
		return nil
	})
	event_bus.SubscribeTyped(bus, event_bus.ImportFailedType, func(e event_bus.EventT[event_bus.ImportFailed]) error {
		RecordImportFailure(e.Data.Entity)
		return nil
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// Middleware observes request latency labelled with the matched route template.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		httpDuration.WithLabelValues(route, r.Method, strconv.Itoa(rec.code)).Observe(time.Since(start).Seconds())
	})
}
