// Package nats connects the bus to a NATS server.
//
// The bus subject format is NATS's own, so subjects and patterns ("*" for
// one level, trailing ">" for the remainder) are sent verbatim.
//
// # Delivery
//
// Publish waits for the server round trip (a flush), so a nil error means
// the server has accepted the message. Subscriptions are synchronous: each
// holds at most the configured number of pending messages. NATS cannot push
// back on publishers, so when a subscriber falls behind the client drops
// messages and the next read reports ErrSlowConsumer; the subscription
// continues after that.
//
// # Usage
//
//	conn, err := nats.Connect(ctx, cfg.NATS,
//	    nats.WithLogger(logger.With("component", "nats")),
//	    nats.WithBuffer(cfg.Bus.Buffer),
//	)
//	if err != nil {
//	    return err
//	}
//	b := bus.New(conn, encoding.JSON[Reading]{}, bus.WithOwnedConn())
package nats
