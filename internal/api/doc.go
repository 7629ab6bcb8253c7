// Package api hosts the HTTP surface of Haven Core.
//
// The surface is deliberately small: the WebSocket session endpoint
// (the primary interface, served by internal/hub), a health check, and
// Prometheus metrics. There is no REST API; every command travels over
// the WebSocket protocol.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
