// Package hub hosts WebSocket sessions and routes their commands.
//
// Each session runs a read pump goroutine; requests within a session are
// handled sequentially, sessions are concurrent with each other. On
// connect the session receives an "infrastructure" event carrying the
// full topology snapshot, followed by a "version" event, then exchanges
// request/response frames.
//
// Command handlers follow a mutate-then-persist discipline: the in-memory
// graph changes first, the store records it second, and a failed persist
// reverts the graph mutation before the error reaches the wire. Device
// state changes are published to the MQTT bus and answered as soon as the
// bus client accepts the publish, before any device acknowledgement.
package hub
