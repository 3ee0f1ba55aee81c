// Package server provides the local inspector HTTP server.
//
// The inspector exposes an applet's recent signal log and lifecycle state
// for debugging:
//
//   - GET /api/signals: the signal log as JSON, most recent first
//   - GET /api/state: a JSON snapshot of the applet state
//   - GET /api/events: Server-Sent Events stream of newly logged entries
//   - GET /: an HTML page rendering the above, when set with [Server.WithPage]
//
// The server binds to the loopback interface only and shuts down when its
// context is cancelled, with a 5-second timeout for in-flight requests.
package server
