package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hammamikhairi/voicehooks/internal/domain"
)

// Metrics groups all Prometheus instruments used by the daemon.
type Metrics struct {
	Enabled        prometheus.Gauge
	Events         *prometheus.CounterVec
	Drops          *prometheus.CounterVec
	Utterances     *prometheus.CounterVec
	SpeakErrors    *prometheus.CounterVec
	SpeakLatency   prometheus.Histogram
	BridgeClients  prometheus.Gauge
	BridgeMessages *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics registers every instrument on a private registry, so tests
// and multiple daemons in one process do not collide.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Enabled: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enabled",
			Help:      "1 while voice notifications are enabled.",
		}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Host events received by type and source.",
		}, []string{"type", "source"}),
		Drops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Rejected notifications by key and reason.",
		}, []string{"key", "reason"}),
		Utterances: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Utterances handed to the speech backend by key.",
		}, []string{"key"}),
		SpeakErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speak_errors_total",
			Help:      "Speech backend failures by key.",
		}, []string{"key"}),
		SpeakLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "speak_duration_ms",
			Help:      "Time spent in the speech backend per utterance in milliseconds.",
			Buckets:   []float64{100, 250, 500, 750, 1000, 1500, 2500, 5000, 10000},
		}),
		BridgeClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_clients",
			Help:      "Connected editor bridge WebSocket clients.",
		}),
		BridgeMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_messages_total",
			Help:      "Bridge messages by transport and outcome.",
		}, []string{"transport", "outcome"}),
	}
}

// Dropped and Spoken make Metrics a voice.Recorder.

func (m *Metrics) Dropped(key domain.EventKey, reason string) {
	m.Drops.WithLabelValues(string(key), reason).Inc()
}

func (m *Metrics) Spoken(key domain.EventKey, took time.Duration, err error) {
	m.Utterances.WithLabelValues(string(key)).Inc()
	m.SpeakLatency.Observe(float64(took.Milliseconds()))
	if err != nil {
		m.SpeakErrors.WithLabelValues(string(key)).Inc()
	}
}

// ObserveEvent counts an inbound host event. It has the shape of a hub
// handler.
func (m *Metrics) ObserveEvent(ev domain.Event) {
	source := ev.Source
	if source == "" {
		source = "unknown"
	}
	m.Events.WithLabelValues(string(ev.Type), source).Inc()
}

func (m *Metrics) SetEnabled(enabled bool) {
	if enabled {
		m.Enabled.Set(1)
		return
	}
	m.Enabled.Set(0)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
