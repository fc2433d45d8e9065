// Package viewer streams simulation state to HTTP and websocket
// clients. The server never reaches into the engine: the simulation
// loop publishes value snapshots and the server fans them out, so no
// engine locking is ever needed on the serving path.
package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/traffic-simulator/core"
	"github.com/signalsfoundry/traffic-simulator/internal/logging"
	"github.com/signalsfoundry/traffic-simulator/internal/observability"
)

// StateMessage is the wire envelope for both the /state endpoint and
// the websocket stream.
type StateMessage struct {
	RunID    string        `json:"run_id"`
	Snapshot core.Snapshot `json:"snapshot"`
}

// Server fans simulation snapshots out to connected clients and serves
// the most recent one over plain HTTP.
type Server struct {
	runID    string
	log      logging.Logger
	metrics  *observability.StreamCollector
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	latest  []byte
}

// NewServer builds a viewer for one simulation run. The metrics
// collector is optional.
func NewServer(runID string, log logging.Logger, metrics *observability.StreamCollector) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{
		runID:   runID,
		log:     log.With(logging.String("component", "viewer")),
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// Publish stores snap as the latest state and broadcasts it to every
// connected websocket client. Clients whose writes fail are dropped.
func (s *Server) Publish(snap core.Snapshot) {
	payload, err := json.Marshal(StateMessage{RunID: s.runID, Snapshot: snap})
	if err != nil {
		s.log.Error(context.Background(), "marshal snapshot failed", logging.Err(err))
		return
	}

	start := time.Now()
	s.mu.Lock()
	s.latest = payload
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.log.Warn(context.Background(), "websocket write failed, dropping client",
				logging.String("remote_addr", conn.RemoteAddr().String()),
				logging.Err(err))
			conn.Close()
			delete(s.clients, conn)
			if s.metrics != nil {
				s.metrics.IncSendFailures()
			}
		}
	}
	connected := len(s.clients)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveBroadcast(time.Since(start))
		s.metrics.SetConnectedClients(connected)
	}
}

// ClientCount reports the number of connected websocket clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// HandleState serves the most recent published snapshot as JSON.
func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	ctx, log := logging.WithRequestLogger(r.Context(), s.log)

	s.mu.Lock()
	payload := s.latest
	s.mu.Unlock()

	if payload == nil {
		http.Error(w, "no snapshot published yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(payload); err != nil {
		log.Warn(ctx, "state write failed", logging.Err(err))
	}
}

// HandleWS upgrades the connection and registers it for broadcasts.
// A freshly connected client immediately receives the latest snapshot
// when one exists.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx, log := logging.WithRequestLogger(r.Context(), s.log)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn(ctx, "websocket upgrade failed", logging.Err(err))
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	if s.latest != nil {
		if err := conn.WriteMessage(websocket.TextMessage, s.latest); err != nil {
			conn.Close()
			delete(s.clients, conn)
			s.mu.Unlock()
			log.Warn(ctx, "initial snapshot write failed", logging.Err(err))
			return
		}
	}
	connected := len(s.clients)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SetConnectedClients(connected)
	}
	log.Info(ctx, "websocket client connected",
		logging.String("remote_addr", conn.RemoteAddr().String()),
		logging.Int("clients", connected))

	go s.drainClient(conn)
}

// drainClient reads and discards inbound frames until the connection
// dies, then unregisters it. The stream is one-way; reading is only
// needed to notice closes and answer pings.
func (s *Server) drainClient(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.clients, conn)
		connected := len(s.clients)
		s.mu.Unlock()

		if s.metrics != nil {
			s.metrics.SetConnectedClients(connected)
		}
		s.log.Info(context.Background(), "websocket client disconnected",
			logging.Int("clients", connected))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warn(context.Background(), "websocket read failed", logging.Err(err))
			}
			return
		}
	}
}

// Close drops every connected client. Publish may still be called
// afterwards; it will simply have nobody to notify.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
	if s.metrics != nil {
		s.metrics.SetConnectedClients(0)
	}
}
