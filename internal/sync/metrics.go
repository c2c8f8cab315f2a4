package sync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Yoshino-s/hitokoto-api/internal/slot"
)

// Metrics holds the Prometheus collectors of a Syncer.
type Metrics struct {
	runs      *prometheus.CounterVec
	duration  prometheus.Histogram
	sentences prometheus.Gauge
	liveSlot  *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hitokoto",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync attempts by decision and result",
		}, []string{"decision", "result"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hitokoto",
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of sync attempts in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		sentences: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "hitokoto",
			Subsystem: "sync",
			Name:      "sentences_total",
			Help:      "Sentence total recorded by the last promoted slot",
		}),
		liveSlot: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hitokoto",
			Name:      "live_slot",
			Help:      "1 for the slot currently serving reads, 0 otherwise",
		}, []string{"slot"}),
	}
}

func (m *Metrics) observe(res *Result, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())

	decision := "unknown"
	if res != nil {
		decision = res.Decision.String()
	}
	if err != nil {
		m.runs.WithLabelValues(decision, "error").Inc()
		return
	}
	m.runs.WithLabelValues(decision, "ok").Inc()

	if res.Promoted() {
		m.sentences.Set(float64(res.Total))
	}
	for _, s := range []slot.Slot{slot.A, slot.B} {
		live := 0.0
		if s == res.To {
			live = 1
		}
		m.liveSlot.WithLabelValues(s.String()).Set(live)
	}
}
