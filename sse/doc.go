// Package sse streams node status changes to browsers as Server-Sent Events.
//
// A Hub fans events out to clients subscribed to one pipeline. The Hub
// implements lifecycle.Notifier, so every applied execution operation is
// published as it happens. When the worker runs in another process,
// Publisher and Relay carry events over a Redis channel instead:
//
//	worker:  lifecycle -> Publisher -> redis
//	serve:   redis -> Relay -> Hub -> GET /api/v1/pipelines/:id/events
package sse
