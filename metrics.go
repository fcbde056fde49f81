package markerbed

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports store activity to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Operations    *prometheus.CounterVec
	Records       prometheus.Gauge
	Backups       prometheus.Counter
	WriteDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "markerbed",
				Name:      "operations_total",
				Help:      "Store operations by kind and outcome (ok, rejected, failed)",
			},
			[]string{"operation", "outcome"},
		),
		Records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "markerbed",
			Name:      "records",
			Help:      "Records in the dataset after the last committed write",
		}),
		Backups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "markerbed",
			Name:      "backups_total",
			Help:      "Backup snapshots written",
		}),
		WriteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "markerbed",
				Name:      "commit_duration_seconds",
				Help:      "Time from acquiring the file token to the committed write",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.Records, m.Backups, m.WriteDuration)
	}
	return m
}

// Outcomes used for the operation counter.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

func (m *Metrics) observe(op Operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(string(op), outcome).Inc()
}

func (m *Metrics) committed(op Operation, records int, backedUp bool, took time.Duration) {
	if m == nil {
		return
	}
	m.Records.Set(float64(records))
	if backedUp {
		m.Backups.Inc()
	}
	m.WriteDuration.WithLabelValues(string(op)).Observe(took.Seconds())
}
