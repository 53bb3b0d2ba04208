package soti

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for both pipelines.  A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	bytesReceived    *prometheus.CounterVec // by transport
	framesDecoded    prometheus.Counter
	framesDropped    *prometheus.CounterVec // by reason
	bitsSkipped      prometheus.Counter
	messagesReceived *prometheus.CounterVec // by command
	messagesSent     *prometheus.CounterVec // by command
	argumentErrors   prometheus.Counter
	clients          *prometheus.GaugeVec // by service (kiss, websocket)
}

func NewMetrics() *Metrics {
	var reg = prometheus.NewRegistry()
	var factory = promauto.With(reg)

	return &Metrics{
		registry: reg,
		bytesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soti_bytes_received_total",
			Help: "Bytes read from a transport",
		}, []string{"transport"}),
		framesDecoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "soti_frames_decoded_total",
			Help: "AX.25 frames decoded from the RF bit stream",
		}),
		framesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soti_frames_dropped_total",
			Help: "Frames and messages discarded, by reason",
		}, []string{"reason"}),
		bitsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "soti_bits_skipped_total",
			Help: "RF bits discarded outside any frame",
		}),
		messagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soti_messages_received_total",
			Help: "Bus messages read from the device",
		}, []string{"cmd"}),
		messagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soti_messages_sent_total",
			Help: "Bus messages written to the device",
		}, []string{"cmd"}),
		argumentErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "soti_argument_errors_total",
			Help: "Console commands rejected before reaching the device",
		}),
		clients: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soti_clients",
			Help: "Connected clients, by service",
		}, []string{"service"}),
	}
}

// ObserveQueue exports the depth of q, read at scrape time.
func (m *Metrics) ObserveQueue(name string, q *ChunkQueue) {
	if m == nil {
		return
	}

	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "soti_queue_bytes",
		Help:        "Bytes waiting between transport reader and decoder",
		ConstLabels: prometheus.Labels{"queue": name},
	}, func() float64 { return float64(q.Bytes()) })
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) BytesReceived(transport string, n int) {
	if m == nil {
		return
	}
	m.bytesReceived.WithLabelValues(transport).Add(float64(n))
}

func (m *Metrics) FrameDecoded() {
	if m == nil {
		return
	}
	m.framesDecoded.Inc()
}

func (m *Metrics) FrameDropped(kind DecodeErrorKind) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) BitsSkipped(n int) {
	if m == nil {
		return
	}
	m.bitsSkipped.Add(float64(n))
}

func (m *Metrics) MessageReceived(c CmdID) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(c.String()).Inc()
}

func (m *Metrics) MessageSent(c CmdID) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(c.String()).Inc()
}

func (m *Metrics) ArgumentError() {
	if m == nil {
		return
	}
	m.argumentErrors.Inc()
}

func (m *Metrics) ClientConnected(service string) {
	if m == nil {
		return
	}
	m.clients.WithLabelValues(service).Inc()
}

func (m *Metrics) ClientDisconnected(service string) {
	if m == nil {
		return
	}
	m.clients.WithLabelValues(service).Dec()
}
