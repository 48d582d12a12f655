package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BroadcastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loci_broadcasts_total",
		Help: "Location change messages published, by channel scope",
	}, []string{"scope"})
	BroadcastDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loci_broadcast_dropped_total",
		Help: "Messages dropped because a subscriber buffer was full",
	})
	WSConnectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loci_ws_connections_total",
		Help: "WebSocket connection attempts by outcome",
	}, []string{"outcome"})
	WSSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "loci_ws_subscribers",
		Help: "Currently registered WebSocket subscribers",
	})
	GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loci_geocode_requests_total",
		Help: "Geocoding provider calls by operation",
	}, []string{"op"})
	GeocodeFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loci_geocode_fail_total",
		Help: "Geocoding provider call failures by operation",
	}, []string{"op"})
	GeocodeDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loci_geocode_duration_ms",
		Help:    "Geocoding provider call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(BroadcastsTotal)
	prometheus.MustRegister(BroadcastDroppedTotal)
	prometheus.MustRegister(WSConnectionsTotal)
	prometheus.MustRegister(WSSubscribers)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeFailTotal)
	prometheus.MustRegister(GeocodeDurationMs)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
