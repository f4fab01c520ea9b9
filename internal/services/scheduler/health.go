package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/marwane019/board-report-generator/internal/common"
)

// healthServer exposes a liveness endpoint for container platforms while
// the scheduler waits between runs.
type healthServer struct {
	server *http.Server
	state  *runState
}

func newHealthServer(port int, state *runState) *healthServer {
	h := &healthServer{state: state}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return h
}

func (h *healthServer) start() {
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.GetLogger().Error().Err(err).Msg("Health endpoint failed")
		}
	}()
}

func (h *healthServer) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.server.Shutdown(ctx)
}

type healthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	LastRun    string `json:"last_run,omitempty"`
	LastStatus string `json:"last_status,omitempty"`
	Runs       int    `json:"runs"`
	Failures   int    `json:"failures"`
}

func (h *healthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.state.mu.RLock()
	resp := healthResponse{
		Status:     "ok",
		Version:    common.GetVersion(),
		LastStatus: h.state.lastStatus,
		Runs:       h.state.runs,
		Failures:   h.state.failures,
	}
	if !h.state.lastRun.IsZero() {
		resp.LastRun = h.state.lastRun.UTC().Format(time.RFC3339)
	}
	h.state.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
