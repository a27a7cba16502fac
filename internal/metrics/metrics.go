// Package metrics holds the prometheus collectors shared by the API and the
// job handlers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type Metrics struct {
	registry *prometheus.Registry

	RequestCount *prometheus.CounterVec
	ErrorCount   *prometheus.CounterVec
	JobCount     *prometheus.CounterVec
}

// New registers the collectors on a private registry so several instances can
// coexist in one process.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filevault_requests_total",
				Help: "Total number of requests processed by the filevault API.",
			},
			[]string{"path", "status"},
		),
		ErrorCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filevault_requests_errors_total",
				Help: "Total number of error requests processed by the filevault API.",
			},
			[]string{"path", "status"},
		),
		JobCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filevault_jobs_total",
				Help: "Background jobs processed, by task type and outcome.",
			},
			[]string{"type", "outcome"},
		),
	}
	m.registry.MustRegister(
		m.RequestCount,
		m.ErrorCount,
		m.JobCount,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveJob counts one processed job.
func (m *Metrics) ObserveJob(taskType string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.JobCount.WithLabelValues(taskType, outcome).Inc()
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
