// Package server provides the HTTP status server: read-only JSON endpoints
// for metrics, sessions, and checkpoints, plus a WebSocket feed of pipeline
// activity. The server is optional and disabled by default.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/pharmascope/pharmascope/internal/config"
	"github.com/pharmascope/pharmascope/internal/orchestrator"
)

// activityInterval is how often the metrics snapshot is pushed to WebSocket
// clients.
const activityInterval = 10 * time.Second

// securityHeadersMiddleware adds standard security headers to all responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start runs the status server until the context is cancelled. Returns the
// actual listen address (useful with port 0) and the activity hub.
func Start(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator) (string, *ActivityHub, error) {
	mux := http.NewServeMux()

	hub := NewActivityHub()
	go hub.Run()
	go pushActivity(ctx, hub, orch)

	rateLimiter := NewRateLimiter(10.0, 20)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, orch.Metrics().All())
	})
	apiMux.HandleFunc("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, orch.Sessions().List())
	})
	apiMux.HandleFunc("/api/checkpoints", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, orch.Sessions().ListCheckpoints(r.URL.Query().Get("session_id")))
		case http.MethodDelete:
			id := r.URL.Query().Get("id")
			if id == "" {
				http.Error(w, "Missing checkpoint id", http.StatusBadRequest)
				return
			}
			orch.Sessions().DeleteCheckpoint(id)
			writeJSON(w, map[string]string{"status": "deleted", "id": id})
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.Handle("/api/", RateLimitMiddleware(RequireAuth(apiMux, cfg), rateLimiter))
	mux.Handle("/ws/activity", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("server: failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           securityHeadersMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		hub.Stop()
	}()

	go func() {
		log.Printf("server: status server listening on %s", listener.Addr())
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("server: serve failed: %v", err)
		}
	}()

	return listener.Addr().String(), hub, nil
}

// pushActivity periodically broadcasts a metrics snapshot to WebSocket
// clients.
func pushActivity(ctx context.Context, hub *ActivityHub, orch *orchestrator.Orchestrator) {
	ticker := time.NewTicker(activityInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hub.Broadcast(map[string]any{
				"type":    "metrics",
				"metrics": orch.Metrics().All(),
			})
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: failed to encode response: %v", err)
	}
}
