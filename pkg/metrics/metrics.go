package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WSConnections tracks currently registered websocket connections.
var WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "chat_ws_connections",
	Help: "Active websocket connections.",
})

// WSBroadcasts counts room fan-out calls by event type.
var WSBroadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chat_ws_broadcasts_total",
	Help: "Messages fanned out to rooms.",
}, []string{"type"})

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
