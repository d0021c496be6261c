package streamserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/xiaonanln/streamgraph/explorer"
	"github.com/xiaonanln/streamgraph/util/metrics"
)

// handleEventsStream handles GET /events/stream for Server-Sent Events (SSE).
// The first event is "initial" with the current state; every later state
// is sent as a "state" event.
func (s *Server) handleEventsStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Only GET method is allowed for SSE", http.StatusMethodNotAllowed)
		return
	}

	// Verify the response writer supports flushing (required for SSE)
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported by server", http.StatusInternalServerError)
		return
	}

	clientID := "sse-" + uuid.NewString()
	states := make(chan *explorer.RenderState, 1)
	unsubscribe, err := s.ex.Subscribe(clientID, explorer.ObserverFunc(func(st *explorer.RenderState) {
		offerLatest(states, st)
	}))
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	defer unsubscribe()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	metrics.RecordSubscriberConnected(TransportSSE)
	log.Infof("SSE client connected: %s", clientID)
	defer func() {
		metrics.RecordSubscriberDisconnected(TransportSSE)
		log.Infof("SSE client disconnected: %s", clientID)
	}()

	// Send initial full state
	initial := s.ex.State()
	if err := s.writeSSEEvent(w, flusher, "initial", initial); err != nil {
		log.Warnf("Failed to send initial state to SSE client %s: %v", clientID, err)
		return
	}

	heartbeatTicker := time.NewTicker(s.heartbeat)
	defer heartbeatTicker.Stop()

	ctx := r.Context()
	sent := initial.Version
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdownChan:
			return
		case <-heartbeatTicker.C:
			// Send heartbeat to keep connection alive
			if err := s.writeSSEEvent(w, flusher, "heartbeat", struct{}{}); err != nil {
				log.Warnf("Failed to send heartbeat to SSE client %s: %v", clientID, err)
				return
			}
		case st := <-states:
			if st.Version <= sent {
				continue
			}
			sent = st.Version
			if err := s.writeSSEEvent(w, flusher, "state", st); err != nil {
				log.Warnf("Failed to send state to SSE client %s: %v", clientID, err)
				return
			}
		}
	}
}

// writeSSEEvent writes a Server-Sent Event to the response writer
func (s *Server) writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	// Write SSE format: event: <type>\ndata: <json>\n\n
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, jsonData); err != nil {
		return fmt.Errorf("failed to write SSE event: %w", err)
	}

	flusher.Flush()
	return nil
}
