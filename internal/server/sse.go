package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonathan/campaign-studio/internal/status"
)

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError sends an error event
func (s *SSEWriter) WriteError(message string) {
	s.WriteEvent("error", map[string]string{"error": message}) //nolint:errcheck
}

// handleJobStream streams status updates for one job as Server-Sent
// Events: a "status" event whenever the persisted projection changes, and
// a final "complete" event once the job is terminal.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	job, ok := s.ownedJob(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ticker := time.NewTicker(s.streamPollInterval)
	defer ticker.Stop()

	var last string
	for {
		fresh, err := s.store.GetJob(r.Context(), job.ID)
		if err != nil {
			sse.WriteError("job no longer available")
			return
		}

		projection := status.Project(fresh)
		encoded, err := json.Marshal(projection)
		if err != nil {
			sse.WriteError("failed to encode status")
			return
		}
		if string(encoded) != last {
			last = string(encoded)
			if err := sse.WriteEvent("status", projection); err != nil {
				return
			}
		}

		if fresh.Status.IsTerminal() {
			sse.WriteEvent("complete", map[string]string{ //nolint:errcheck
				"job_id": fresh.ID.String(),
				"status": string(fresh.Status),
			})
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
