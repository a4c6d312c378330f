package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts submission outcomes for the write pipeline.
type Metrics struct {
	Submissions  *prometheus.CounterVec
	RateLimited  prometheus.Counter
	UploadBytes  prometheus.Counter
	EntriesTotal prometheus.Counter
}

// New registers the counters on reg. Tests pass a private registry so
// repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "travelog_submissions_total",
			Help: "Log entry submissions by outcome.",
		}, []string{"outcome"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "travelog_rate_limited_total",
			Help: "Write attempts rejected by the rate limiter.",
		}),
		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "travelog_upload_bytes_total",
			Help: "Bytes of accepted image uploads.",
		}),
		EntriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "travelog_entries_created_total",
			Help: "Log entries successfully persisted.",
		}),
	}
	reg.MustRegister(m.Submissions, m.RateLimited, m.UploadBytes, m.EntriesTotal)
	return m
}
