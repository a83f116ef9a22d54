// Package metrics expone contadores Prometheus alimentados por el bus de eventos.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stockflow/internal/application/events"
)

// Metrics colectores del servicio sobre un registry propio.
type Metrics struct {
	registry         *prometheus.Registry
	events           *prometheus.CounterVec
	unitsTransferred prometheus.Counter
	requestsDecided  *prometheus.CounterVec
}

// New crea el registry, registra los colectores del proceso y los del dominio.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Eventos de dominio publicados, por tipo.",
		}, []string{"type"}),
		unitsTransferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_transferred_total",
			Help:      "Unidades movidas entre tenedores.",
		}),
		requestsDecided: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_decided_total",
			Help:      "Decisiones sobre solicitudes, por tipo de solicitud y estado resultante.",
		}, []string{"request_type", "status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.events,
		m.unitsTransferred,
		m.requestsDecided,
	)
	return m
}

// Subscriber devuelve el suscriptor que actualiza los contadores.
func (m *Metrics) Subscriber() events.Subscriber {
	return func(_ context.Context, ev events.Event) {
		m.events.WithLabelValues(string(ev.Type)).Inc()
		switch ev.Type {
		case events.StockTransferred:
			if ev.Movement != nil {
				m.unitsTransferred.Add(float64(ev.Movement.Quantity))
			}
		case events.RequestApproved, events.RequestDenied:
			if ev.Request != nil {
				m.requestsDecided.WithLabelValues(string(ev.Request.Type), string(ev.Request.Status)).Inc()
			}
		}
	}
}

// Handler handler HTTP de exposición (formato Prometheus).
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry acceso al registry (tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
