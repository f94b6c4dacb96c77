package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Metrics collects Prometheus metrics for the ledger service.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	ledgerOperations *prometheus.CounterVec
	documentPostings *prometheus.CounterVec
	jobs             *jobmetrics.Metrics
}

// NewMetrics initialises the registry with HTTP, ledger and job collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_operations_total",
		Help: "Voucher lifecycle operations by voucher type and outcome.",
	}, []string{"operation", "voucher_type", "outcome"})
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_document_postings_total",
		Help: "Business document postings by document kind and outcome.",
	}, []string{"document", "outcome"})
	registry.MustRegister(requests, duration, operations, postings)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		ledgerOperations: operations,
		documentPostings: postings,
		jobs:             jobmetrics.NewMetrics(registry),
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveLedgerOperation counts a voucher operation by its outcome.
func (m *Metrics) ObserveLedgerOperation(operation, voucherType string, err error) {
	if m == nil {
		return
	}
	if voucherType == "" {
		voucherType = "unknown"
	}
	m.ledgerOperations.WithLabelValues(operation, voucherType, Outcome(err)).Inc()
}

// ObserveDocumentPosting counts a business document posting by its outcome.
func (m *Metrics) ObserveDocumentPosting(document string, err error) {
	if m == nil {
		return
	}
	m.documentPostings.WithLabelValues(document, Outcome(err)).Inc()
}

// Jobs exposes collectors for background jobs sharing this registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Outcome maps an error to a low-cardinality label value.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch shared.KindOf(err) {
	case shared.ErrValidation:
		return "validation"
	case shared.ErrStateConflict:
		return "conflict"
	case shared.ErrNotFound:
		return "not_found"
	case shared.ErrIntegrity:
		return "integrity"
	}
	return "error"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
