// Package api serves the admin endpoints of a running graybus process.
//
// Routes:
//
//	GET /healthz   broker reachability (503 when the health check fails)
//	GET /status    version, backend, uptime and Go runtime statistics
//	GET /metrics   Prometheus exposition (path configurable)
//
// The server follows the same lifecycle pattern as other infrastructure components,
// except that Serve blocks so it can run inside an errgroup:
//
//	srv, err := api.New(deps)
//	g.Go(func() error { return srv.Serve(ctx, ln) })
package api
