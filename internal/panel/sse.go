package panel

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/weftlabs/weft/internal/streaming"
)

var sseHeaders = map[string]string{
	"Content-Type":      "text/event-stream",
	"Cache-Control":     "no-cache",
	"Connection":        "keep-alive",
	"X-Accel-Buffering": "no",
}

// handleSSEGlobal streams every hub event to the client.
func (s *PanelServer) handleSSEGlobal(w http.ResponseWriter, r *http.Request) {
	s.streamEvents(w, r, streaming.EventFilter{})
}

// handleSSESession streams events for one session.
func (s *PanelServer) handleSSESession(w http.ResponseWriter, r *http.Request) {
	s.streamEvents(w, r, streaming.EventFilter{SessionID: r.PathValue("id")})
}

func (s *PanelServer) streamEvents(w http.ResponseWriter, r *http.Request, filter streaming.EventFilter) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	for k, v := range sseHeaders {
		w.Header().Set(k, v)
	}

	ch, cancel, err := s.deps.Hub.Subscribe(r.Context(), filter)
	if err != nil {
		s.deps.Logger.Error("SSE subscribe failed", "error", err)
		http.Error(w, "subscribe failed", http.StatusInternalServerError)
		return
	}
	defer cancel()

	// Flush headers now so clients see the stream as established; the
	// subscription above is already live at this point.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventType, data)
			flusher.Flush()
		}
	}
}
