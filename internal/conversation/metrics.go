package conversation

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_events_total",
			Help: "Inbound events by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	handleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conversation_handle_duration_seconds",
			Help:    "Time spent handling one event, excluding queueing.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	activeLanes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversation_active_channels",
			Help: "Channels with queued or in-flight events.",
		},
	)
)

func init() {
	prometheus.MustRegister(eventsHandled, handleDuration, activeLanes)
}

// StoredStatesGauge reports the number of conversations held by m.
func StoredStatesGauge(m *MemoryStore) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "conversation_stored_states",
			Help: "Conversation states held in process memory.",
		},
		func() float64 { return float64(m.Len()) },
	)
}

func eventKind(ev Event) string {
	if ev.IsSelection() {
		return "selection"
	}
	return "text"
}
