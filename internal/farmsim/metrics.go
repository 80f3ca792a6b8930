package farmsim

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	actions  *prometheus.CounterVec
	latest   *prometheus.GaugeVec
}

// newMetrics uses a private registry so several simulators can coexist in
// one process.
func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmsim_http_requests_total",
			Help: "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmsim_device_actions_total",
			Help: "Device actions received, by action.",
		}, []string{"action"}),
		latest: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "farmsim_sensor_value",
			Help: "Latest simulated value, by parameter.",
		}, []string{"parameter"}),
	}
	m.registry.MustRegister(m.requests, m.actions, m.latest)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
