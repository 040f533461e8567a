// Package metrics holds domain-level Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// UploadMetrics counts upload outcomes. A nil *UploadMetrics is a no-op.
type UploadMetrics struct {
	outcomes *prometheus.CounterVec
	orphans  prometheus.Counter
}

func NewUploadMetrics(reg prometheus.Registerer) (*UploadMetrics, error) {
	m := &UploadMetrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dms_upload_outcomes_total",
				Help: "Upload requests by decision outcome.",
			},
			[]string{"outcome"},
		),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dms_orphaned_blobs_total",
			Help: "Stored objects left without a metadata row after a failed cleanup.",
		}),
	}
	if err := reg.Register(m.outcomes); err != nil {
		return nil, err
	}
	if err := reg.Register(m.orphans); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *UploadMetrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *UploadMetrics) OrphanedBlob() {
	if m == nil {
		return
	}
	m.orphans.Inc()
}
