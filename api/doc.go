// Package api binds the engine, callback router and output resolver to
// gin routes under /api/v1.
package api
