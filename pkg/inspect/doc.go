// Package inspect exposes named stores over HTTP for debugging and tooling.
//
// Stores are added to a Registry under a name. Handler serves:
//
//	GET  /stores               list of registered stores
//	GET  /stores/{name}        current value
//	PUT  /stores/{name}        replace the value (writable stores only)
//	GET  /stores/{name}/watch  WebSocket stream of values
//	GET  /metrics              Prometheus metrics, when a gatherer is set
//
// The watch stream sends the current value first, then every change, as
// JSON messages of the form {"name": ..., "seq": ..., "value": ...}.
// Watching a derived store keeps it hot for as long as the connection is
// open.
package inspect
