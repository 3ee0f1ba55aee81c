// Package transport delivers signals to the local signal service.
//
// This package is internal to qapplet. It flattens a signal's 2-D point grid
// into the zone list understood by the service, posts it as JSON and parses
// the assigned signal id from the response. It also issues the plain JSON
// requests used by the OAuth2 proxy helpers.
//
// The main components are:
//
//   - [Client]: pooled HTTP client returning a [Response] instead of an error
//   - [Signal]: wire-level description of a signal to send
//   - [Flatten]: row-major conversion of points into [ActionValue] zones
//
// Network failures never surface as Go errors from [Client.Send]; they are
// logged and recorded in [Response.Error]. A response without an ID is a
// partial failure the caller must check for.
package transport
