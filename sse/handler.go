package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Serve streams pipelineID's events to w until the request ends or the
// hub stops. The first frame is a connected event carrying the client id.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, pipelineID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	// Streams outlive the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.log.Debug("Could not clear write deadline", map[string]interface{}{"error": err.Error()})
	}

	client, err := h.Subscribe(pipelineID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer h.Unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	hello, _ := json.Marshal(map[string]string{"client_id": client.ID(), "pipeline_id": pipelineID})
	writeFrame(w, EventConnected, hello)
	flusher.Flush()

	keepAlive := time.NewTicker(h.cfg.KeepAliveDuration())
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-client.Events():
			if !ok {
				return
			}
			writeFrame(w, EventNode, data)
			flusher.Flush()
		case t := <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", t.Unix())
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, event string, data []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
