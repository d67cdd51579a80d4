package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/blurt-dev/blurt/cfg"
	"github.com/blurt-dev/blurt/poller"
	"github.com/rs/zerolog/log"
)

// StatusProvider exposes the poller snapshot
type StatusProvider interface {
	Status() poller.Status
}

// AdminHandlers serves the status endpoints
type AdminHandlers struct {
	status     StatusProvider
	staleAfter time.Duration
	startedAt  time.Time
}

// NewAdminHandlers creates handlers. A poller that hasn't completed a poll
// within staleAfter is reported unhealthy.
func NewAdminHandlers(status StatusProvider, staleAfter time.Duration) *AdminHandlers {
	return &AdminHandlers{
		status:     status,
		staleAfter: staleAfter,
		startedAt:  time.Now(),
	}
}

type statusResponse struct {
	Version    string        `json:"version"`
	InstanceID uint64        `json:"instance_id"`
	Uptime     string        `json:"uptime"`
	Poller     poller.Status `json:"poller"`
}

func (h *AdminHandlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, statusResponse{
		Version:    cfg.Version,
		InstanceID: cfg.Config.InstanceID,
		Uptime:     time.Since(h.startedAt).Round(time.Second).String(),
		Poller:     h.status.Status(),
	})
}

func (h *AdminHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := h.status.Status()

	// Before the first poll, measure from startup
	last := st.LastPoll
	if last.IsZero() {
		last = h.startedAt
	}

	if h.staleAfter > 0 && time.Since(last) > h.staleAfter {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "stale",
			"last_poll": st.LastPoll,
		})
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"last_poll": st.LastPoll,
	})
}

// writeJSONResponse writes data as JSON with the given status
func writeJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	writeJSONResponse(w, status, map[string]interface{}{
		"error": message,
	})
}
