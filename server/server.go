// Package server is the method channel between the bridge and its UI
// client: a single WebSocket connection carrying method calls, lifecycle
// notifications and event invocations.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dotside-studios/nfc-bridge/buildinfo"
	"github.com/dotside-studios/nfc-bridge/nfc"
	"github.com/dotside-studios/nfc-bridge/protocol"
)

// ReaderStatus is the reader state reported by /api/v1/status.
type ReaderStatus struct {
	Supported bool `json:"supported"`
	Enabled   bool `json:"enabled"`
	Active    bool `json:"active"`
}

// StatusResponse is the body of /api/v1/status.
type StatusResponse struct {
	ReaderStatus
	ClientConnected bool   `json:"clientConnected"`
	Version         string `json:"version"`
}

// Config holds the server configuration.
type Config struct {
	Addr         string // listen host, empty for all interfaces
	Port         int    // 0 picks a free port
	APISecret    string // optional secret expected in ?secret=
	MDNS         bool
	WriteTimeout time.Duration

	// Executor is the UI execution context. Inbound messages are handled
	// and outbound frames written from it.
	Executor nfc.Executor

	Methods   MethodCallHandler
	Lifecycle LifecycleObserver
	Status    func() ReaderStatus
}

// Server manages the HTTP listener and the single UI client.
type Server struct {
	config   Config
	logger   zerolog.Logger
	router   *mux.Router
	upgrader websocket.Upgrader
	sessions *SessionManager

	// Handler registry for inbound envelope types
	handlerRegistry *HandlerRegistry

	clientMu sync.RWMutex
	client   *Client

	httpServer *http.Server
	listener   net.Listener
	mdnsServer *zeroconf.Server
}

// New creates a server and registers the method channel handlers.
func New(config Config) *Server {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}

	s := &Server{
		config: config,
		logger: log.With().Str("component", "server").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		sessions:        NewSessionManager(config.APISecret),
		handlerRegistry: NewHandlerRegistry(),
	}

	channel := NewChannelHandler(config.Methods, config.Lifecycle, s.logger)
	if err := s.Register(channel); err != nil {
		s.logger.Error().Err(err).Msg("failed to register channel handler")
	}

	s.router = s.routes()
	return s
}

// Register adds a handler group to the registry.
func (s *Server) Register(handler ServerHandler) error {
	return handler.Register(s)
}

// Handle implements HandlerServer.
func (s *Server) Handle(messageType string, handler HandlerFunc) error {
	return s.handlerRegistry.Handle(messageType, handler)
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(enableCORS)
	api.HandleFunc("/health", s.handleHealthCheck).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(buildinfo.DisplayName + " running"))
	})
	return r
}

// enableCORS is a middleware that adds CORS headers to responses
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", CORSAllowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", CORSAllowMethods)
		w.Header().Set("Access-Control-Allow-Headers", CORSAllowHeaders)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Addr, fmt.Sprint(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("method channel listening")
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	if s.config.MDNS {
		if err := s.startMDNS(); err != nil {
			s.logger.Warn().Err(err).Msg("mDNS unavailable, auto-discovery disabled")
		}
	}
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down and disconnects the client.
func (s *Server) Stop(ctx context.Context) error {
	if s.mdnsServer != nil {
		s.mdnsServer.Shutdown()
		s.mdnsServer = nil
		s.logger.Info().Msg("mDNS service stopped")
	}

	if client := s.currentClient(); client != nil {
		_ = client.Close()
	}

	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.httpServer = nil
	return errors.Wrap(err, "server shutdown")
}

// startMDNS advertises the method channel on the local network.
func (s *Server) startMDNS() error {
	port := s.config.Port
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}

	txtRecords := []string{
		"version=" + buildinfo.Version,
		"protocol=websocket",
		"path=/ws",
	}

	server, err := zeroconf.Register(MDNSServiceName, MDNSServiceType, MDNSDomain, port, txtRecords, nil)
	if err != nil {
		return errors.Wrap(err, "failed to register mDNS service")
	}

	s.mdnsServer = server
	s.logger.Info().Str("service", MDNSServiceType).Int("port", port).Msg("mDNS service registered")
	return nil
}

// ClientConnected reports whether a UI client holds the session.
func (s *Server) ClientConnected() bool {
	return s.currentClient() != nil
}

// InvokeMethod sends an event to the UI client. It implements
// nfc.EventEmitter and is called from the UI execution context. Events are
// dropped while no client is connected.
func (s *Server) InvokeMethod(method string, arguments any) {
	client := s.currentClient()
	if client == nil {
		s.logger.Debug().Str("method", method).Msg("no client connected, event dropped")
		return
	}

	_ = client.Send(protocol.Message{
		Type:    protocol.TypeInvokeMethod,
		Payload: protocol.InvokeMethodPayload{Method: method, Arguments: arguments},
	})
}

func (s *Server) currentClient() *Client {
	s.clientMu.RLock()
	defer s.clientMu.RUnlock()
	return s.client
}

func (s *Server) setClient(client *Client) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	s.client = client
}

// handleWebSocket upgrades the connection and runs the read loop until the
// client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.sessions.Acquire(r.URL.Query().Get("secret"))
	switch err {
	case nil:
	case ErrInvalidSecret:
		s.logger.Warn().Str("remote", r.RemoteAddr).Msg("WebSocket connection rejected: invalid API secret")
		http.Error(w, "Unauthorized: Invalid API secret", http.StatusUnauthorized)
		return
	default:
		s.logger.Warn().Str("remote", r.RemoteAddr).Msg("WebSocket connection rejected: session already claimed")
		http.Error(w, "Session already claimed by another client", http.StatusConflict)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.sessions.Release(sessionID)
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(MaxMessageSize)

	client := newClient(conn, sessionID, s.config.WriteTimeout, s.logger)
	s.setClient(client)
	client.logger.Info().Str("remote", r.RemoteAddr).Msg("client connected")

	defer s.disconnect(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				client.logger.Debug().Err(err).Msg("read failed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var req protocol.Request
		if err := json.Unmarshal(message, &req); err != nil {
			client.logger.Warn().Err(err).Msg("failed to parse WebSocket message")
			s.post(func() {
				_ = client.SendError("", protocol.ErrCodeParse, "Invalid message format")
			})
			continue
		}

		if !s.post(func() { s.dispatch(ctx, client, req) }) {
			_ = client.SendError(req.ID, protocol.ErrCodeBusy, "Bridge busy, message dropped")
		}
	}
}

// disconnect reports the client's departure as a background transition and
// then releases the session. The pause is queued while the session is still
// held, so it runs before anything a following client posts.
func (s *Server) disconnect(client *Client) {
	s.clientMu.Lock()
	if s.client == client {
		s.client = nil
	}
	s.clientMu.Unlock()

	_ = client.Close()

	if s.config.Lifecycle != nil && !s.post(s.config.Lifecycle.OnPause) {
		s.logger.Warn().Msg("executor unavailable, pausing inline")
		s.config.Lifecycle.OnPause()
	}

	s.sessions.Release(client.SessionID())
	client.logger.Info().Msg("client disconnected, session released")
}

func (s *Server) dispatch(ctx context.Context, client *Client, req protocol.Request) {
	handler, ok := s.handlerRegistry.Get(req.Type)
	if !ok {
		client.logger.Warn().Str("type", req.Type).Msg("unknown message type")
		_ = client.SendError(req.ID, protocol.ErrCodeUnknownType, fmt.Sprintf("Unknown message type: %s", req.Type))
		return
	}

	if err := handler(ctx, client, req); err != nil {
		// Error already sent by handler, just log it
		client.logger.Warn().Err(err).Str("type", req.Type).Msg("handler error")
	}
}

func (s *Server) post(task func()) bool {
	if s.config.Executor == nil {
		task()
		return true
	}
	return s.config.Executor.Post(task)
}

// handleHealthCheck provides a health check endpoint (GET /api/v1/health)
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleStatus reports the reader and client state (GET /api/v1/status)
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		ClientConnected: s.ClientConnected(),
		Version:         buildinfo.FullVersion(),
	}
	if s.config.Status != nil {
		resp.ReaderStatus = s.config.Status()
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to write JSON response")
	}
}
