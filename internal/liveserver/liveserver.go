// Package liveserver implements the optional --debug broadcast endpoint:
// a websocket hub that pushes an event on every collector admission and a
// periodic progress snapshot, so a dashboard can watch a long run without
// polling. Entirely optional — mining.Run works identically with no
// liveserver wired in.
//
// Grounded on internal/api/websocket.go's Hub (clients set, broadcast
// channel, guarding mutex) and internal/mempool/poller.go's ticker-driven
// periodic broadcast loop.
package liveserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rawblock/ptk-huim/pkg/model"
)

// AdmissionEvent is broadcast every time a pattern is admitted or
// improved in the collector.
type AdmissionEvent struct {
	RunID     string        `json:"runId"`
	Pattern   model.Pattern `json:"pattern"`
	Threshold float64       `json:"threshold"`
}

// ProgressSnapshot is broadcast on a fixed interval while a run is active.
type ProgressSnapshot struct {
	RunID     string  `json:"runId"`
	Retained  int     `json:"retained"`
	Threshold float64 `json:"threshold"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans out broadcast payloads to every currently-subscribed
// connection, dropping a payload for any client whose write buffer is
// full rather than blocking the admitting goroutine.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte

	runID string
}

// NewHub creates an empty hub tagging every broadcast with runID.
func NewHub(runID string) *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan []byte), runID: runID}
}

func (h *Hub) subscribe(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- payload:
		default:
			log.Printf("[LiveServer] dropping broadcast for slow client %s", conn.RemoteAddr())
		}
	}
}

// OnAdmit adapts the hub into the collector's admission callback.
func (h *Hub) OnAdmit(p model.Pattern, threshold float64) {
	payload, err := json.Marshal(AdmissionEvent{RunID: h.runID, Pattern: p, Threshold: threshold})
	if err != nil {
		log.Printf("[LiveServer] marshal admission event: %v", err)
		return
	}
	h.broadcast(payload)
}

// RunProgressTicker periodically broadcasts a ProgressSnapshot produced
// by snapshot, until ctx is done.
func (h *Hub) RunProgressTicker(ctx context.Context, interval time.Duration, snapshot func() (retained int, threshold float64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			retained, threshold := snapshot()
			payload, err := json.Marshal(ProgressSnapshot{RunID: h.runID, Retained: retained, Threshold: threshold})
			if err != nil {
				log.Printf("[LiveServer] marshal progress snapshot: %v", err)
				continue
			}
			h.broadcast(payload)
		}
	}
}

// Server wraps a gin engine exposing the /ws upgrade endpoint backed by
// Hub.
type Server struct {
	Hub    *Hub
	engine *gin.Engine
}

// NewServer builds a gin server with a single /ws route.
func NewServer(runID string) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{Hub: NewHub(runID), engine: gin.New()}
	s.engine.GET("/ws", s.handleWS)
	return s
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[LiveServer] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch := s.Hub.subscribe(conn)
	defer s.Hub.unsubscribe(conn)

	for payload := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// ListenAndServe blocks serving the hub's websocket endpoint on addr.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("[LiveServer] listening on %s", addr)
	return s.engine.Run(addr)
}
