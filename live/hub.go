// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/quickly-elect/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	readLimit      = 512
	changedBacklog = 64
)

// ResultsSource computes the snapshot pushed to subscribers.
type ResultsSource interface {
	ElectionResults(ctx context.Context, electionID string) (models.ElectionResults, error)
}

// Hub pushes election results to websocket subscribers. A push happens when
// Notify reports a committed allocation and on every refresh tick; both
// paths run the same read.
type Hub struct {
	source   ResultsSource
	refresh  time.Duration
	changed  chan string
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[string]map[*client]struct{}
}

func NewHub(source ResultsSource, refresh time.Duration) *Hub {
	return &Hub{
		source:  source,
		refresh: refresh,
		changed: make(chan string, changedBacklog),
		upgrader: websocket.Upgrader{
			// Results are public; any page may embed the live view.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[string]map[*client]struct{}),
	}
}

// Notify marks an election's results as changed. It never blocks; if the
// backlog is full the next refresh tick picks the change up.
// The signature matches engine.CommitFunc.
func (h *Hub) Notify(electionID, _ string) {
	select {
	case h.changed <- electionID:
	default:
	}
}

// Run delivers pushes until ctx is done, then disconnects every subscriber.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case <-ticker.C:
			for _, electionID := range h.elections() {
				h.broadcast(ctx, electionID)
			}
		case electionID := <-h.changed:
			h.broadcast(ctx, electionID)
		}
	}
}

// Serve upgrades the request and streams results for electionID until the
// client disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, electionID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		var herr websocket.HandshakeError
		if !errors.As(err, &herr) {
			slog.Error("unexpected websocket error", "error", err)
		}
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 1),
		done: make(chan struct{}),
	}

	if msg, err := h.snapshot(r.Context(), electionID); err == nil {
		c.offer(msg)
	}

	h.add(electionID, c)
	defer h.remove(electionID, c)

	slog.Info("live results subscriber connected", "election_id", electionID)

	go c.writePump()
	c.readPump()
}

// Subscribers returns the number of connected clients for an election.
func (h *Hub) Subscribers(electionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[electionID])
}

func (h *Hub) broadcast(ctx context.Context, electionID string) {
	clients := h.clients(electionID)
	if len(clients) == 0 {
		return
	}

	msg, err := h.snapshot(ctx, electionID)
	if err != nil {
		return
	}
	for _, c := range clients {
		c.offer(msg)
	}
}

func (h *Hub) snapshot(ctx context.Context, electionID string) ([]byte, error) {
	results, err := h.source.ElectionResults(ctx, electionID)
	if err != nil {
		slog.Error("failed to compute live results", "election_id", electionID, "error", err)
		return nil, err
	}
	msg, err := json.Marshal(results)
	if err != nil {
		slog.Error("failed to encode live results", "election_id", electionID, "error", err)
		return nil, err
	}
	return msg, nil
}

func (h *Hub) add(electionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[electionID] == nil {
		h.subs[electionID] = make(map[*client]struct{})
	}
	h.subs[electionID][c] = struct{}{}
}

func (h *Hub) remove(electionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[electionID], c)
	if len(h.subs[electionID]) == 0 {
		delete(h.subs, electionID)
	}
}

func (h *Hub) clients(electionID string) []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := make([]*client, 0, len(h.subs[electionID]))
	for c := range h.subs[electionID] {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) elections() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.subs {
		for c := range clients {
			c.conn.Close()
		}
	}
}

type client struct {
	conn *websocket.Conn
	// send holds at most the latest snapshot; older ones are dropped.
	send chan []byte
	done chan struct{}
}

func (c *client) offer(msg []byte) {
	for {
		select {
		case c.send <- msg:
			return
		case <-c.done:
			return
		default:
			select {
			case <-c.send:
			default:
			}
		}
	}
}

// readPump discards client messages and returns once the connection fails.
func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("live results connection closed", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
