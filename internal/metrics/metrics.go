// Package metrics exports bus activity as Prometheus metrics.
//
// BusMetrics implements bus.Recorder. Register it once per process and pass
// it to every bus with bus.WithRecorder:
//
//	m := metrics.NewBusMetrics(prometheus.DefaultRegisterer)
//	b := bus.New(conn, encoding.JSON[Reading]{}, bus.WithRecorder(m))
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nerrad567/gray-logic-bus/bus"
)

// Result label values.
const (
	ResultOK          = "ok"
	ResultEncodeError = "encode_error"
	ResultDecodeError = "decode_error"
	ResultBrokerError = "broker_error"
	ResultInvalid     = "invalid_topic"
	ResultClosed      = "closed"
	ResultError       = "error"
)

// BusMetrics holds the bus collectors.
type BusMetrics struct {
	PublishTotal        *prometheus.CounterVec
	PublishBytesTotal   *prometheus.CounterVec
	DeliveriesTotal     *prometheus.CounterVec
	SubscriptionsActive *prometheus.GaugeVec
}

var _ bus.Recorder = (*BusMetrics)(nil)

// NewBusMetrics creates the bus collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewBusMetrics(reg prometheus.Registerer) *BusMetrics {
	factory := promauto.With(reg)
	return &BusMetrics{
		PublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graybus_publish_total",
			Help: "Total number of publish attempts by encoding and result",
		}, []string{"encoding", "result"}),
		PublishBytesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graybus_publish_bytes_total",
			Help: "Total encoded payload bytes handed to the broker",
		}, []string{"encoding"}),
		DeliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graybus_deliveries_total",
			Help: "Total number of deliveries by encoding and result",
		}, []string{"encoding", "result"}),
		SubscriptionsActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graybus_subscriptions_active",
			Help: "Number of open subscriptions by encoding",
		}, []string{"encoding"}),
	}
}

// Published implements bus.Recorder.
func (m *BusMetrics) Published(encoding string, size int, err error) {
	encoding = labelOrUnknown(encoding)
	m.PublishTotal.WithLabelValues(encoding, result(err)).Inc()
	if err == nil {
		m.PublishBytesTotal.WithLabelValues(encoding).Add(float64(size))
	}
}

// Delivered implements bus.Recorder.
func (m *BusMetrics) Delivered(encoding string, err error) {
	m.DeliveriesTotal.WithLabelValues(labelOrUnknown(encoding), result(err)).Inc()
}

// SubscriptionOpened implements bus.Recorder.
func (m *BusMetrics) SubscriptionOpened(encoding string) {
	m.SubscriptionsActive.WithLabelValues(labelOrUnknown(encoding)).Inc()
}

// SubscriptionClosed implements bus.Recorder.
func (m *BusMetrics) SubscriptionClosed(encoding string) {
	m.SubscriptionsActive.WithLabelValues(labelOrUnknown(encoding)).Dec()
}

func result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, bus.ErrEncode):
		return ResultEncodeError
	case errors.Is(err, bus.ErrDecode):
		return ResultDecodeError
	case errors.Is(err, bus.ErrInvalidTopic):
		return ResultInvalid
	case errors.Is(err, bus.ErrBroker):
		return ResultBrokerError
	case errors.Is(err, bus.ErrClosed), errors.Is(err, bus.ErrBusClosed):
		return ResultClosed
	default:
		return ResultError
	}
}

func labelOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
