// Package metrics exposes Prometheus collectors for checkout steps, order submissions
// and HTTP traffic.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"vsbridge/internal/domain"
)

// Metrics holds the bridge collectors.
type Metrics struct {
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec

	submissions        *prometheus.CounterVec
	submissionDuration prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors with registerer. Registering twice
// returns the collectors already registered.
func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		steps: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "vsbridge_checkout_steps_total",
			Help: "Checkout steps executed, by step and outcome",
		}, []string{"step", "outcome"}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "vsbridge_checkout_step_duration_seconds",
			Help:    "Duration of checkout steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"step"}),
		submissions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "vsbridge_order_submissions_total",
			Help: "Order submissions, by outcome",
		}, []string{"outcome"}),
		submissionDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "vsbridge_order_submission_duration_seconds",
			Help:    "Duration of order submissions in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "vsbridge_http_requests_total",
			Help: "HTTP requests served, by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "vsbridge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
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

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// Outcome labels a step result by its error kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch domain.Kind(err) {
	case domain.ErrValidation:
		return "validation"
	case domain.ErrNotAuthorized:
		return "unauthorized"
	case domain.ErrNotFound:
		return "not_found"
	case domain.ErrAlreadyExists:
		return "conflict"
	case domain.ErrExternal:
		return "engine"
	case domain.ErrSubmission:
		return "submission"
	default:
		return "error"
	}
}

// ObserveStep records a checkout step.
func (m *Metrics) ObserveStep(step string, elapsed time.Duration, err error) {
	m.steps.WithLabelValues(step, Outcome(err)).Inc()
	m.stepDuration.WithLabelValues(step).Observe(elapsed.Seconds())
}

// ObserveSubmission records an order submission outcome.
func (m *Metrics) ObserveSubmission(outcome string, elapsed time.Duration) {
	m.submissions.WithLabelValues(outcome).Inc()
	m.submissionDuration.Observe(elapsed.Seconds())
}

// ObserveHTTP records a served request. route is the matched route pattern.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
