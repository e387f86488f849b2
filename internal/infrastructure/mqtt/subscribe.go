package mqtt

import (
	"context"
	"fmt"
)

// Subscribe registers a handler for messages matching an MQTT filter.
//
// Filters can include MQTT wildcards:
//   - + (single-level): "openfmb/+/MeterReadingProfile" matches any module
//   - # (multi-level): "openfmb/#" matches everything under openfmb
//
// One handler is kept per filter; subscribing the same filter again
// replaces it. Subscriptions are restored if the connection is lost and
// reconnected.
//
// Parameters:
//   - ctx: Bounds the wait for the broker's SUBACK
//   - filter: The topic filter to subscribe to
//   - qos: Maximum QoS level for received messages (0, 1, or 2)
//   - handler: Callback function invoked for each message
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Subscribe(ctx context.Context, filter string, qos byte, handler MessageHandler) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Track subscription for reconnection restoration
	c.subMu.Lock()
	c.subscriptions[filter] = subscription{
		filter:  filter,
		qos:     qos,
		handler: handler,
	}
	c.subMu.Unlock()

	token := c.client.Subscribe(filter, qos, c.wrapHandler(handler))
	if err := waitToken(ctx, token, defaultPublishTimeout); err != nil {
		c.subMu.Lock()
		delete(c.subscriptions, filter)
		c.subMu.Unlock()
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}

// Unsubscribe removes a subscription and stops receiving messages for a filter.
//
// The filter is forgotten even when the client is disconnected, so it is
// not restored on reconnect. Messages already in flight may still be
// delivered to the handler.
//
// Parameters:
//   - ctx: Bounds the wait for the broker's UNSUBACK
//   - filter: The exact filter that was subscribed to
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Unsubscribe(ctx context.Context, filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}

	c.subMu.Lock()
	delete(c.subscriptions, filter)
	c.subMu.Unlock()

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Unsubscribe(filter)
	if err := waitToken(ctx, token, defaultPublishTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

// SubscriptionCount returns the number of active subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription checks if a subscription exists for the given filter.
//
// Note: This checks only the exact filter string, not pattern matching.
func (c *Client) HasSubscription(filter string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, exists := c.subscriptions[filter]
	return exists
}
