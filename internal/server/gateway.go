// Package server exposes the WebSocket gateway that bridges browser-style
// clients into the same hub as framed-TCP participants.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Gateway serves the WebSocket upgrade endpoint and a health route. Each
// upgraded connection becomes an ordinary hub session where one WebSocket
// message carries one payload.
type Gateway struct {
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
	origins  map[string]struct{}
	allowAll bool
	srv      *http.Server
}

// NewGateway creates a gateway for the configured address and origin
// allow-list.
func NewGateway(cfg Config, hub *Hub, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.sanitized()

	origins, allowAll, invalid := normalizeOrigins(cfg.AllowedOrigins)
	for _, origin := range invalid {
		logger.Warn("ignoring invalid origin in configuration", "origin", origin)
	}

	g := &Gateway{
		hub:      hub,
		logger:   logger,
		origins:  origins,
		allowAll: allowAll,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	g.srv = &http.Server{
		Addr:         cfg.GatewayAddr,
		Handler:      g.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return g
}

// Routes configures and returns the gateway's HTTP ServeMux: health check
// and the WebSocket endpoint.
func (g *Gateway) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.healthHandler)
	mux.HandleFunc("/ws", g.websocketHandler)
	return mux
}

func (g *Gateway) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "ClassChat relay is running!")
}

// websocketHandler upgrades the HTTP connection and attaches it to the hub.
// The first WebSocket message must carry the chosen identity, exactly like
// the first frame on a TCP connection.
func (g *Gateway) websocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	g.hub.StartSession(newWSConn(conn, g.hub.cfg.MaxFrameSize))
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		return false
	}

	normalized, ok := normalizeOrigin(originHeader)
	if !ok {
		return false
	}
	if g.allowAll {
		return true
	}
	if _, exists := g.origins[normalized]; exists {
		return true
	}

	g.logger.Warn("blocked websocket connection from disallowed origin", "origin", originHeader)
	return false
}

// ListenAndServe starts the gateway HTTP server and blocks until it exits.
func (g *Gateway) ListenAndServe() error {
	g.logger.Info("gateway listening", "addr", g.srv.Addr)
	if err := g.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the gateway's HTTP server. Upgraded sessions
// are torn down by the hub, not here.
func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.srv.Shutdown(ctx)
}
