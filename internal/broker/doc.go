// Package broker opens the bus connection named by configuration.
//
//	conn, err := broker.Open(ctx, cfg, log)
//	if err != nil {
//	    return err
//	}
//	enc, err := broker.RawEncoding(cfg.Bus.Encoding)
//	b := bus.New(conn, enc, bus.WithOwnedConn(), bus.WithLogger(log))
package broker
