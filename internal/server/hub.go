package server

import (
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
	"github.com/tomaszsb/Game-alpha-sub005/internal/game"
)

// client is one WebSocket connection bound to a seat.
type client struct {
	seatID string
	conn   *websocket.Conn
	send   chan []byte
}

// room fans session events out to the connections of one game.
type room struct {
	session *game.Session

	mu      sync.RWMutex
	clients map[string]*client // seat id -> connection
	log     *logrus.Entry
}

func newRoom(s *game.Session, log *logrus.Entry) *room {
	r := &room{session: s, clients: make(map[string]*client), log: log}
	s.BroadcastFn = r.broadcast
	s.BroadcastToPlayerFn = r.sendTo
	return r
}

// attach registers c for its seat, returning the connection it replaced.
func (r *room) attach(c *client) *client {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.clients[c.seatID]
	r.clients[c.seatID] = c
	return old
}

// detach removes c if it is still the seat's connection.
func (r *room) detach(c *client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[c.seatID] != c {
		return false
	}
	delete(r.clients, c.seatID)
	return true
}

func (r *room) broadcast(ev game.GameEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		r.log.WithError(err).Errorf("Failed encoding %s event.", ev.Type)
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		c.enqueue(b, r.log)
	}
}

func (r *room) sendTo(seatID string, ev game.GameEvent) {
	r.mu.RLock()
	c := r.clients[seatID]
	r.mu.RUnlock()
	if c == nil {
		return
	}
	b, err := json.Marshal(ev)
	if err != nil {
		r.log.WithError(err).Errorf("Failed encoding %s event for %s.", ev.Type, seatID)
		return
	}
	c.enqueue(b, r.log)
}

// enqueue never blocks the session; a seat that can't keep up loses
// messages and recovers with request_sync.
func (c *client) enqueue(b []byte, log *logrus.Entry) {
	select {
	case c.send <- b:
	default:
		log.Warnf("Send buffer full for seat %s, dropping message.", c.seatID)
	}
}

// registry holds every live game.
type registry struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*room
}

func newRegistry() *registry {
	return &registry{rooms: make(map[uuid.UUID]*room)}
}

func (g *registry) add(r *room) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rooms[r.session.ID] = r
}

func (g *registry) get(id uuid.UUID) (*room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[id]
	return r, ok
}

func (g *registry) remove(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, id)
}

func (g *registry) count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// summary is the public listing for one game.
type summary struct {
	ID      uuid.UUID        `json:"id"`
	Started bool             `json:"started"`
	Over    bool             `json:"gameOver"`
	Seats   int              `json:"seats"`
	Phase   engine.GamePhase `json:"phase"`
	Turn    int              `json:"turn"`
}

func (g *registry) list() []summary {
	g.mu.RLock()
	rooms := make([]*room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.RUnlock()

	out := make([]summary, 0, len(rooms))
	for _, r := range rooms {
		s := r.session
		s.Mu.Lock()
		state := s.Engine.GetGameState()
		out = append(out, summary{
			ID:      s.ID,
			Started: s.Started,
			Over:    s.GameOver,
			Seats:   len(s.Seats),
			Phase:   state.Phase,
			Turn:    state.Turn,
		})
		s.Mu.Unlock()
	}
	return out
}
