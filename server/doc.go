// Package server is the HTTP shell: it mounts the websocket endpoint and
// the health and readiness probes on a Gin engine with graceful shutdown.
package server
