package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes game counters on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	gamesStarted     *prometheus.CounterVec
	answersSubmitted *prometheus.CounterVec
	roundsFinished   prometheus.Counter
	catalogLoads     *prometheus.CounterVec
	connections      prometheus.Gauge
}

func New(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		gamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games started, by subject",
		}, []string{"subject"}),
		answersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_submitted_total",
			Help:      "Answers submitted, by result and trigger",
		}, []string{"result", "trigger"}),
		roundsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_finished_total",
			Help:      "Rounds that reached the results screen",
		}),
		catalogLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_loads_total",
			Help:      "Catalog lookups, by result",
		}, []string{"result"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_connections",
			Help:      "Open websocket connections",
		}),
	}

	r.registry.MustRegister(
		r.gamesStarted,
		r.answersSubmitted,
		r.roundsFinished,
		r.catalogLoads,
		r.connections,
	)
	return r
}

func (r *Recorder) GameStarted(subject string) {
	r.gamesStarted.WithLabelValues(subject).Inc()
}

func (r *Recorder) AnswerSubmitted(correct, expired bool) {
	result := "wrong"
	if correct {
		result = "correct"
	}
	trigger := "submit"
	if expired {
		trigger = "timeout"
	}
	r.answersSubmitted.WithLabelValues(result, trigger).Inc()
}

func (r *Recorder) RoundFinished() {
	r.roundsFinished.Inc()
}

func (r *Recorder) CatalogLoaded(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.catalogLoads.WithLabelValues(result).Inc()
}

func (r *Recorder) ConnOpened() { r.connections.Inc() }
func (r *Recorder) ConnClosed() { r.connections.Dec() }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
