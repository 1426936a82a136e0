package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all back-office metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// MongoDB metrics
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	// Cafe24 API metrics
	Cafe24Requests        *prometheus.CounterVec
	Cafe24RequestDuration *prometheus.HistogramVec

	// Business metrics
	ShipmentMatches        *prometheus.CounterVec
	ShipmentMatchFailures  *prometheus.CounterVec
	ShipmentsRegistered    *prometheus.CounterVec
	DispatchBatchDuration  prometheus.Histogram
	PriceQueueItems        *prometheus.CounterVec
	PriceQueueRetries      *prometheus.CounterVec
	PriceQueuePendingItems prometheus.Gauge

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "backoffice",
	}
}

// New creates a new Metrics instance backed by its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	// HTTP metrics
	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	// Kafka metrics
	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kafka_events_published_total",
			Help:      "Total number of Kafka events published",
		},
		[]string{"service", "topic", "event_type", "status"},
	)

	m.KafkaPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "topic"},
	)

	// MongoDB metrics
	m.MongoDBOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "mongodb_operations_total",
			Help:      "Total number of MongoDB operations",
		},
		[]string{"service", "collection", "operation", "status"},
	)

	m.MongoDBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "mongodb_operation_duration_seconds",
			Help:      "MongoDB operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "collection", "operation"},
	)

	// Cafe24 API metrics
	m.Cafe24Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "cafe24_requests_total",
			Help:      "Total number of Cafe24 Admin API calls",
		},
		[]string{"operation", "status"},
	)

	m.Cafe24RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "cafe24_request_duration_seconds",
			Help:      "Cafe24 Admin API call duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// Business metrics
	m.ShipmentMatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "shipment_matches_total",
			Help:      "Shipment rows matched to an order, by tier method",
		},
		[]string{"method", "match_type"},
	)

	m.ShipmentMatchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "shipment_match_failures_total",
			Help:      "Shipment rows left unresolved by the matcher",
		},
		[]string{"kind"},
	)

	m.ShipmentsRegistered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "shipments_registered_total",
			Help:      "Tracking numbers submitted to the bulk shipment endpoint",
		},
		[]string{"status"},
	)

	m.DispatchBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "dispatch_batch_duration_seconds",
			Help:      "Duration of one bulk shipment registration call",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	m.PriceQueueItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "price_queue_items_total",
			Help:      "Price update work items reaching a final state",
		},
		[]string{"step", "status"},
	)

	m.PriceQueueRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "price_queue_retries_total",
			Help:      "Price update work items requeued after a failed attempt",
		},
		[]string{"step"},
	)

	m.PriceQueuePendingItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "price_queue_pending_items",
			Help:      "Work items waiting in the price update queue",
		},
	)

	// Circuit breaker metrics
	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.Cafe24Requests,
		m.Cafe24RequestDuration,
		m.ShipmentMatches,
		m.ShipmentMatchFailures,
		m.ShipmentsRegistered,
		m.DispatchBatchDuration,
		m.PriceQueueItems,
		m.PriceQueueRetries,
		m.PriceQueuePendingItems,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Dec()
}

// RecordKafkaPublish records a Kafka publish event
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, statusLabel(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// RecordCafe24Request records one Cafe24 Admin API call. status is the HTTP
// status code, or 0 when the request never got a response.
func (m *Metrics) RecordCafe24Request(operation string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Cafe24Requests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	m.Cafe24RequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordShipmentMatch records a matched shipment row
func (m *Metrics) RecordShipmentMatch(method, matchType string) {
	if m == nil {
		return
	}
	m.ShipmentMatches.WithLabelValues(method, matchType).Inc()
}

// RecordShipmentMatchFailure records an unresolved shipment row
func (m *Metrics) RecordShipmentMatchFailure(kind string) {
	if m == nil {
		return
	}
	m.ShipmentMatchFailures.WithLabelValues(kind).Inc()
}

// RecordDispatchBatch records the outcome of one bulk registration call
func (m *Metrics) RecordDispatchBatch(succeeded, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	m.ShipmentsRegistered.WithLabelValues("succeeded").Add(float64(succeeded))
	m.ShipmentsRegistered.WithLabelValues("failed").Add(float64(failed))
	m.DispatchBatchDuration.Observe(duration.Seconds())
}

// RecordPriceQueueItem records a work item reaching a final state
func (m *Metrics) RecordPriceQueueItem(step, status string) {
	if m == nil {
		return
	}
	m.PriceQueueItems.WithLabelValues(step, status).Inc()
}

// RecordPriceQueueRetry records a requeued work item
func (m *Metrics) RecordPriceQueueRetry(step string) {
	if m == nil {
		return
	}
	m.PriceQueueRetries.WithLabelValues(step).Inc()
}

// SetPriceQueuePending sets the number of pending work items
func (m *Metrics) SetPriceQueuePending(count int) {
	if m == nil {
		return
	}
	m.PriceQueuePendingItems.Set(float64(count))
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(state)
}
