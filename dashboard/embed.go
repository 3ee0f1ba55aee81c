// Package dashboard provides the embedded inspector page.
//
// The page polls /api/state, renders the signal log from /api/signals as key
// grids and follows /api/events for new entries. It is served at "/" by the
// inspector when an applet runs with applet.WithInspector.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the inspector page.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Inspector page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
