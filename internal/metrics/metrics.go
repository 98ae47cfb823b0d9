package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexcart/storefront/internal/cart"
)

// Metrics implements cart.Recorder, checkout.Recorder and nexcart.RequestObserver
type Metrics struct {
	CartSync  *prometheus.CounterVec
	Checkout  *prometheus.CounterVec
	BackendMS *prometheus.HistogramVec
	gatherer  prometheus.Gatherer
}

// New registers the storefront collectors on reg
func New(reg *prometheus.Registry) *Metrics {
	cartSync := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexcart",
		Name:      "cart_sync_total",
		Help:      "Cart operations by whether they reached the backend.",
	}, []string{"operation", "result"})
	checkout := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexcart",
		Name:      "checkout_total",
		Help:      "Order placement attempts by outcome.",
	}, []string{"result"})
	backend := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nexcart",
		Name:      "backend_request_duration_ms",
		Help:      "NexCart API latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"operation", "status"})

	reg.MustRegister(cartSync, checkout, backend)
	return &Metrics{CartSync: cartSync, Checkout: checkout, BackendMS: backend, gatherer: reg}
}

func (m *Metrics) ObserveSync(operation string, status cart.SyncStatus) {
	m.CartSync.WithLabelValues(operation, string(status)).Inc()
}

func (m *Metrics) ObserveCheckout(result string) {
	m.Checkout.WithLabelValues(result).Inc()
}

// ObserveRequest records a backend round trip; status 0 is a transport failure
func (m *Metrics) ObserveRequest(operation string, status int, elapsed time.Duration) {
	m.BackendMS.WithLabelValues(operation, strconv.Itoa(status)).Observe(float64(elapsed.Milliseconds()))
}

// Handler exposes the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
