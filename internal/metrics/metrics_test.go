package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nerrad567/gray-logic-bus/bus"
	"github.com/nerrad567/gray-logic-bus/encoding"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/memory"
	"github.com/nerrad567/gray-logic-bus/topic"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ResultOK},
		{fmt.Errorf("%w: json: boom", bus.ErrEncode), ResultEncodeError},
		{&bus.DecodeError{Subject: "a", Err: errors.New("bad")}, ResultDecodeError},
		{fmt.Errorf("%w: %w", bus.ErrInvalidTopic, topic.ErrEmptyToken), ResultInvalid},
		{fmt.Errorf("%w: refused", bus.ErrBroker), ResultBrokerError},
		{bus.ErrBusClosed, ResultClosed},
		{errors.New("other"), ResultError},
	}

	for _, tt := range tests {
		if got := result(tt.err); got != tt.want {
			t.Errorf("result(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestBusMetricsRecordsActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusMetrics(reg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := memory.NewBroker(memory.Config{}).Dial()
	defer conn.Close()
	b := bus.New(conn, encoding.Bytes{}, bus.WithRecorder(m))

	subject := topic.Exacts("a", "b")
	sub, err := b.Subscribe(ctx, subject)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if got := testutil.ToFloat64(m.SubscriptionsActive.WithLabelValues("bytes")); got != 1 {
		t.Errorf("subscriptions_active = %v, want 1", got)
	}

	if err := b.Publish(ctx, subject, []byte("hello")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if _, err := sub.Next(ctx); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	_ = sub.Close()

	if got := testutil.ToFloat64(m.PublishTotal.WithLabelValues("bytes", ResultOK)); got != 1 {
		t.Errorf("publish_total{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PublishBytesTotal.WithLabelValues("bytes")); got != 5 {
		t.Errorf("publish_bytes_total = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("bytes", ResultOK)); got != 1 {
		t.Errorf("deliveries_total{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SubscriptionsActive.WithLabelValues("bytes")); got != 0 {
		t.Errorf("subscriptions_active after Close = %v, want 0", got)
	}
}

func TestBusMetricsRecordsRejectedPublishes(t *testing.T) {
	m := NewBusMetrics(prometheus.NewRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := memory.NewBroker(memory.Config{}).Dial()
	defer conn.Close()
	b := bus.New(conn, encoding.Bytes{}, bus.WithRecorder(m))

	_ = b.Publish(ctx, topic.Exacts("a").WithPrefixMatch(), []byte("x"))
	_ = b.Close()
	_ = b.Publish(ctx, topic.Exacts("a", "b"), []byte("x"))

	if got := testutil.ToFloat64(m.PublishTotal.WithLabelValues("bytes", ResultInvalid)); got != 1 {
		t.Errorf("publish_total{invalid_topic} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PublishTotal.WithLabelValues("bytes", ResultClosed)); got != 1 {
		t.Errorf("publish_total{closed} = %v, want 1", got)
	}
}

func TestBusMetricsExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusMetrics(reg)

	m.Published("json", 0, fmt.Errorf("%w: boom", bus.ErrEncode))

	expected := `
# HELP graybus_publish_total Total number of publish attempts by encoding and result
# TYPE graybus_publish_total counter
graybus_publish_total{encoding="json",result="encode_error"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "graybus_publish_total"); err != nil {
		t.Errorf("GatherAndCompare() error = %v", err)
	}
	if n := testutil.CollectAndCount(m.PublishBytesTotal); n != 0 {
		t.Errorf("publish_bytes_total series = %d, want 0 after a failed publish", n)
	}
}

func TestNewBusMetricsNilRegisterer(t *testing.T) {
	m := NewBusMetrics(nil)
	m.Delivered("", nil)
	if got := testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("unknown", ResultOK)); got != 1 {
		t.Errorf("deliveries_total{unknown} = %v, want 1", got)
	}
}
