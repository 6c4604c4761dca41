package rotation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the rotation state to Prometheus. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Transitions  *prometheus.CounterVec
	PromoAdvance prometheus.Counter
	Corrections  *prometheus.CounterVec
	PollErrors   *prometheus.CounterVec
	Mode         *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotation_transitions_total",
				Help: "Transitions of the rates/media cycle",
			},
			[]string{"from", "to"},
		),
		PromoAdvance: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rotation_promo_advances_total",
				Help: "Promo slideshow advances",
			},
		),
		Corrections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotation_corrections_total",
				Help: "Indexes reset to 0 after their collection shrank",
			},
			[]string{"collection"},
		),
		PollErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotation_poll_errors_total",
				Help: "Failed polls of a display data source",
			},
			[]string{"source"},
		),
		Mode: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rotation_mode",
				Help: "1 for the mode currently on screen, 0 otherwise",
			},
			[]string{"mode"},
		),
	}
}

func (m *Metrics) transition(from string, to Mode) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, string(to)).Inc()
}

func (m *Metrics) promoAdvanced() {
	if m == nil {
		return
	}
	m.PromoAdvance.Inc()
}

func (m *Metrics) correction(collection string) {
	if m == nil {
		return
	}
	m.Corrections.WithLabelValues(collection).Inc()
}

func (m *Metrics) pollError(source string) {
	if m == nil {
		return
	}
	m.PollErrors.WithLabelValues(source).Inc()
}

func (m *Metrics) setMode(mode Mode) {
	if m == nil {
		return
	}
	for _, candidate := range []Mode{ModeNotReady, ModeRates, ModeMedia} {
		value := 0.0
		if candidate == mode {
			value = 1
		}
		m.Mode.WithLabelValues(string(candidate)).Set(value)
	}
}
