package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the service's Prometheus collectors, registered on a private
// registry so /metrics exports interview metrics only.
type Metrics struct {
	registry *prometheus.Registry

	InterviewsStarted   prometheus.Counter
	InterviewsCompleted prometheus.Counter
	AnswersGraded       *prometheus.CounterVec
	AnswerScore         prometheus.Histogram
	UploadsRejected     *prometheus.CounterVec
}

// NewMetrics builds the collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		InterviewsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "xlmock_interviews_started_total",
			Help: "Interview sessions started, restarts included.",
		}),
		InterviewsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "xlmock_interviews_completed_total",
			Help: "Interview sessions that answered or skipped every question.",
		}),
		AnswersGraded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xlmock_answers_graded_total",
			Help: "Recorded results by question kind and confidence label.",
		}, []string{"kind", "confidence"}),
		AnswerScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "xlmock_answer_score",
			Help:    "Distribution of per-answer scores.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		UploadsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "xlmock_uploads_rejected_total",
			Help: "Hands-on uploads that could not be graded, by reason.",
		}, []string{"reason"}),
	}
}

// Handler serves the private registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
