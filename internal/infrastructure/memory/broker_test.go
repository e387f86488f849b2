package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/nerrad567/gray-logic-bus/bus"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// =============================================================================
// Publish / Subscribe Tests
// =============================================================================

func TestPublishSubscribe(t *testing.T) {
	ctx := testContext(t)
	broker := NewBroker(Config{})
	conn := broker.Dial()
	defer conn.Close()

	sub, err := conn.Subscribe(ctx, "openfmb.metermodule.MeterReadingProfile")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Unsubscribe()

	if err := conn.Publish(ctx, "openfmb.metermodule.MeterReadingProfile", []byte("1")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	d, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if d.Subject != "openfmb.metermodule.MeterReadingProfile" || string(d.Payload) != "1" {
		t.Errorf("Next() = %+v", d)
	}
}

func TestWildcardRouting(t *testing.T) {
	ctx := testContext(t)
	broker := NewBroker(Config{})
	conn := broker.Dial()
	defer conn.Close()

	single, err := conn.Subscribe(ctx, "openfmb.*")
	if err != nil {
		t.Fatalf("Subscribe(*) error = %v", err)
	}
	remainder, err := conn.Subscribe(ctx, "openfmb.>")
	if err != nil {
		t.Fatalf("Subscribe(>) error = %v", err)
	}

	for _, subject := range []string{"openfmb.a", "openfmb.a.b", "other.a"} {
		if err := conn.Publish(ctx, subject, []byte(subject)); err != nil {
			t.Fatalf("Publish(%s) error = %v", subject, err)
		}
	}

	d, err := single.Next(ctx)
	if err != nil || d.Subject != "openfmb.a" {
		t.Errorf("single.Next() = %+v, %v; want openfmb.a", d, err)
	}

	for _, want := range []string{"openfmb.a", "openfmb.a.b"} {
		d, err := remainder.Next(ctx)
		if err != nil || d.Subject != want {
			t.Errorf("remainder.Next() = %+v, %v; want %s", d, err, want)
		}
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := single.Next(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("single.Next() error = %v, want DeadlineExceeded (no further match)", err)
	}
}

func TestPublishCopiesPayload(t *testing.T) {
	ctx := testContext(t)
	conn := NewBroker(Config{}).Dial()
	defer conn.Close()

	sub, _ := conn.Subscribe(ctx, "a")
	payload := []byte("abc")
	if err := conn.Publish(ctx, "a", payload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	payload[0] = 'X'

	d, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if string(d.Payload) != "abc" {
		t.Errorf("Next() payload = %q, want %q", d.Payload, "abc")
	}
}

func TestPublishRejectsPatterns(t *testing.T) {
	ctx := testContext(t)
	conn := NewBroker(Config{}).Dial()
	defer conn.Close()

	for _, subject := range []string{"", "a.*", "a.>"} {
		if err := conn.Publish(ctx, subject, nil); !errors.Is(err, ErrInvalidSubject) {
			t.Errorf("Publish(%q) error = %v, want ErrInvalidSubject", subject, err)
		}
	}
}

// =============================================================================
// Backpressure Tests
// =============================================================================

func TestPublishBlocksOnFullBuffer(t *testing.T) {
	ctx := testContext(t)
	conn := NewBroker(Config{Buffer: 1}).Dial()
	defer conn.Close()

	sub, _ := conn.Subscribe(ctx, "a")

	if err := conn.Publish(ctx, "a", []byte("1")); err != nil {
		t.Fatalf("first Publish() error = %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	if err := conn.Publish(short, "a", []byte("2")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Publish() error = %v, want DeadlineExceeded", err)
	}

	published := make(chan error, 1)
	go func() { published <- conn.Publish(ctx, "a", []byte("3")) }()

	for _, want := range []string{"1", "3"} {
		d, err := sub.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if string(d.Payload) != want {
			t.Errorf("Next() payload = %q, want %q", d.Payload, want)
		}
	}
	if err := <-published; err != nil {
		t.Errorf("blocked Publish() error = %v", err)
	}
}

func TestUnsubscribeReleasesBlockedPublisher(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := testContext(t)
	conn := NewBroker(Config{Buffer: 1}).Dial()
	defer conn.Close()

	sub, _ := conn.Subscribe(ctx, "a")
	_ = conn.Publish(ctx, "a", []byte("fill"))

	published := make(chan error, 1)
	go func() { published <- conn.Publish(ctx, "a", []byte("blocked")) }()

	time.Sleep(20 * time.Millisecond)
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}

	select {
	case err := <-published:
		if err != nil {
			t.Errorf("Publish() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Publish() still blocked after Unsubscribe()")
	}
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestUnsubscribeDiscardsBuffered(t *testing.T) {
	ctx := testContext(t)
	broker := NewBroker(Config{})
	conn := broker.Dial()
	defer conn.Close()

	sub, _ := conn.Subscribe(ctx, "a")
	_ = conn.Publish(ctx, "a", []byte("queued"))

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if err := sub.Unsubscribe(); err != nil {
		t.Errorf("second Unsubscribe() error = %v", err)
	}
	if broker.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", broker.SubscriptionCount())
	}

	_ = conn.Publish(ctx, "a", []byte("late"))
	if _, err := sub.Next(ctx); !errors.Is(err, bus.ErrClosed) {
		t.Errorf("Next() error = %v, want ErrClosed", err)
	}
}

func TestConnCloseEndsSubscriptions(t *testing.T) {
	ctx := testContext(t)
	broker := NewBroker(Config{})
	conn := broker.Dial()
	other := broker.Dial()
	defer other.Close()

	sub, _ := conn.Subscribe(ctx, "a.>")
	otherSub, _ := other.Subscribe(ctx, "a.>")

	next := make(chan error, 1)
	go func() {
		_, err := sub.Next(ctx)
		next <- err
	}()

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := <-next; !errors.Is(err, bus.ErrClosed) {
		t.Errorf("blocked Next() error = %v, want ErrClosed", err)
	}

	if _, err := conn.Subscribe(ctx, "a"); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Subscribe() after Close error = %v, want ErrConnClosed", err)
	}
	if err := conn.HealthCheck(ctx); !errors.Is(err, ErrConnClosed) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrConnClosed", err)
	}
	if err := other.HealthCheck(ctx); err != nil {
		t.Errorf("other.HealthCheck() error = %v", err)
	}
	if err := conn.Publish(ctx, "a.b", nil); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrConnClosed", err)
	}

	if err := other.Publish(ctx, "a.b", []byte("still here")); err != nil {
		t.Fatalf("other.Publish() error = %v", err)
	}
	if d, err := otherSub.Next(ctx); err != nil || string(d.Payload) != "still here" {
		t.Errorf("otherSub.Next() = %+v, %v", d, err)
	}
}
