package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"vsbridge/internal/domain"
)

func TestObserveStep(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.ObserveStep("add_item", 10*time.Millisecond, nil)
	m.ObserveStep("add_item", 5*time.Millisecond, domain.ErrOutOfStock)
	m.ObserveStep("add_item", 5*time.Millisecond, domain.ErrOutOfStock)

	if got := testutil.ToFloat64(m.steps.WithLabelValues("add_item", "ok")); got != 1 {
		t.Errorf("expected 1 successful step, got %f", got)
	}
	if got := testutil.ToFloat64(m.steps.WithLabelValues("add_item", "validation")); got != 2 {
		t.Errorf("expected 2 rejected steps, got %f", got)
	}

	metric := &dto.Metric{}
	observer, err := m.stepDuration.GetMetricWithLabelValues("add_item")
	if err != nil {
		t.Fatalf("get histogram: %v", err)
	}
	if err := observer.(prometheus.Histogram).Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("expected 3 samples, got %d", metric.Histogram.GetSampleCount())
	}
}

func TestObserveSubmission(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.ObserveSubmission("placed", time.Second)
	m.ObserveSubmission("failed", time.Second)

	if got := testutil.ToFloat64(m.submissions.WithLabelValues("placed")); got != 1 {
		t.Errorf("expected 1 placed order, got %f", got)
	}

	metric := &dto.Metric{}
	if err := m.submissionDuration.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("expected 2 samples, got %d", metric.Histogram.GetSampleCount())
	}
}

func TestObserveHTTP(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.ObserveHTTP("POST", "/vsbridge/cart/update", 200, time.Millisecond)

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/vsbridge/cart/update", "200")); got != 1 {
		t.Errorf("expected 1 request, got %f", got)
	}
}

func TestNewWithRegisterer_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewWithRegisterer(reg)
	second := NewWithRegisterer(reg)

	first.ObserveSubmission("placed", time.Millisecond)
	if got := testutil.ToFloat64(second.submissions.WithLabelValues("placed")); got != 1 {
		t.Errorf("expected shared collector, got %f", got)
	}
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":           nil,
		"validation":   domain.ErrInvalidCoupon,
		"unauthorized": domain.ErrAccessDenied,
		"not_found":    domain.ErrItemNotFound,
		"conflict":     domain.ErrEmailTaken,
		"engine":       domain.ErrPaymentDeclined,
		"submission":   &domain.SubmissionError{Cause: domain.ErrPaymentDeclined},
		"error":        errors.New("boom"),
	}
	for want, err := range cases {
		if got := Outcome(err); got != want {
			t.Errorf("Outcome(%v) = %q, want %q", err, got, want)
		}
	}
}
