// Package mqtt carries bus traffic over an MQTT broker.
//
// Client is a thin paho wrapper that reconnects on its own and replays its
// filter subscriptions afterwards. Conn adapts a Client to bus.Conn.
//
// # Subjects and Topics
//
// Bus subjects use "." between levels; MQTT uses "/". Conn translates:
//
//	openfmb.metermodule.MeterReadingProfile  <->  openfmb/metermodule/MeterReadingProfile
//	openfmb.*.MeterReadingProfile             ->  openfmb/+/MeterReadingProfile
//	openfmb.>                                 ->  openfmb/#
//
// Subject levels containing "/", "+" or "#" cannot be expressed and are
// rejected with ErrUnsupportedSubject. MQTT's "#" also matches its parent
// level; Conn drops those deliveries so ">" keeps its one-or-more meaning.
//
// # Backpressure
//
// Handlers run in arrival order on the paho router goroutine. Conn hands
// each message to the bounded buffer of every matching subscription and
// waits while a buffer is full, so a slow consumer slows the whole client.
//
// # Status Topic
//
// With mqtt.status_topic set, the client leaves a retained offline Last
// Will with the broker and publishes a retained online message on every
// connect, so other bus clients can watch it come and go:
//
//	{"status":"offline","client_id":"graybus","reason":"unexpected_disconnect","timestamp":"..."}
//
// # Security
//
// Use TLS (mqtt.broker.tls) and broker credentials outside local
// development; the broker's ACL decides which subjects a client may use.
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT, mqtt.WithClientLogger(log))
//	if err != nil {
//	    return err
//	}
//	conn := mqtt.NewConn(client, mqtt.WithBuffer(cfg.Bus.Buffer))
//	b := bus.New(conn, encoding.JSON[Reading]{}, bus.WithOwnedConn())
package mqtt
