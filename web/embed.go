// Package web holds the default browser client served at / and /api.js.
package web

import "embed"

// Assets contains index.html and api.js.
//
//go:embed index.html api.js
var Assets embed.FS
