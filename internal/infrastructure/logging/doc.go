// Package logging builds the slog-based logger shared by the bus, its
// backends and the graybus command.
//
// Every entry carries the service name and build version. Output goes to
// stderr unless configured otherwise, because graybus sub prints messages
// on stdout and the two must not interleave.
//
//	logging:
//	  level: info      # debug | info | warn | error
//	  format: json     # json | text
//	  output: stderr   # stderr | stdout
//
// A *Logger can be handed to anything that wants the small Debug/Info/
// Warn/Error interface the bus and backend packages declare:
//
//	log := logging.New(cfg.Logging, version)
//	b := bus.New(conn, enc, bus.WithLogger(log.With("component", "bus")))
//
// Payloads are never logged; they may carry credentials or customer data.
package logging
