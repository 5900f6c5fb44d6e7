// Package server runs the gin HTTP server that carries the admin API and
// compute callbacks. Connections are served over HTTP/1.1 and h2c.
//
// Middleware (server/middleware): recovery, request ids, CORS, body size
// limits and request logging with metrics. Endpoints (server/endpoint):
// /health and /info.
package server
