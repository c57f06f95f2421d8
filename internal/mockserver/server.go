package mockserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/grovetools/hermes/errors"
	"github.com/grovetools/hermes/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// APIPrefix is where the REST endpoints are mounted.
const APIPrefix = "/api/v1"

// Server exposes a Backend over HTTP.
type Server struct {
	logger   *logrus.Entry
	backend  *Backend
	server   *http.Server
	upgrader websocket.Upgrader
}

// New creates a server for backend.
func New(backend *Backend, logger *logrus.Entry) *Server {
	s := &Server{
		logger:  logger,
		backend: backend,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Backend returns the served backend.
func (s *Server) Backend() *Backend { return s.backend }

// Handler returns the routes, with HTTP/2 cleartext support.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "hermes-api"})
	})
	mux.HandleFunc("GET /health/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "in-memory"})
	})

	mux.HandleFunc("GET "+APIPrefix+"/tickets", s.handleListTickets)
	mux.HandleFunc("POST "+APIPrefix+"/tickets", s.handleCreateTicket)
	mux.HandleFunc("GET "+APIPrefix+"/tickets/{id}/diagnosis", s.handleDiagnosis)
	mux.HandleFunc("POST "+APIPrefix+"/decisions/{id}/approve", s.handleDecision)
	mux.HandleFunc("GET "+APIPrefix+"/metrics", s.handleMetrics)
	mux.HandleFunc("GET "+APIPrefix+"/stream", s.handleSSE)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return h2c.NewHandler(mux, &http2.Server{})
}

// ListenAndServe serves on addr until Shutdown. It returns
// http.ErrServerClosed after a clean shutdown.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener.
func (s *Server) Serve(listener net.Listener) error {
	s.logger.WithField("addr", listener.Addr().String()).Info("Mock backend listening")
	return s.server.Serve(listener)
}

// Shutdown gracefully stops the server and closes open streams.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down mock backend...")
	s.backend.DropSubscribers()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	if code := s.backend.forcedTicketsStatus(); code != 0 {
		http.Error(w, http.StatusText(code), code)
		return
	}
	writeJSON(w, http.StatusOK, s.backend.Tickets())
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MerchantID string `json:"merchant_id"`
		RawText    string `json:"raw_text"`
		Channel    string `json:"channel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RawText == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	t := s.backend.CreateTicket(req.MerchantID, req.RawText, req.Channel)
	s.logger.WithField("ticket", t.ID).Debug("Ticket created")
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDiagnosis(w http.ResponseWriter, r *http.Request) {
	d, found := s.backend.Diagnosis(r.PathValue("id"))
	if !found {
		http.Error(w, "ticket not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req models.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.backend.Decide(r.PathValue("id"), req)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, errors.ErrCodeNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	s.logger.WithFields(logrus.Fields{
		"ticket":   r.PathValue("id"),
		"approved": req.Approved,
	}).Info("Decision received")
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Metrics())
}

// handleSSE streams backend events as Server-Sent Events.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if s.backend.streamsRefused() {
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.backend.Subscribe()
	defer s.backend.Unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client connected")

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		case data, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleWebSocket streams backend events as WebSocket text frames.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.backend.streamsRefused() {
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := s.backend.Subscribe()
	defer s.backend.Unsubscribe(ch)
	s.logger.Debug("WebSocket client connected")

	// Reads only detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			s.logger.Debug("WebSocket client disconnected")
			return
		case data, ok := <-ch:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(time.Second))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
