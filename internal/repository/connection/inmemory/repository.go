package inmemory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// repo tracks which live connections are bound to which room. It is a
// volatile mirror of liveness only: a bound connection is not necessarily a
// durable participant, and vice versa. Rebuilt empty on process restart.
type repo struct {
	connRoom  map[*websocket.Conn]string
	roomConns map[string]map[*websocket.Conn]struct{}
	mu        sync.RWMutex
	logger    *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		connRoom:  make(map[*websocket.Conn]string),
		roomConns: make(map[string]map[*websocket.Conn]struct{}),
		logger:    logger,
	}
}

// Bind attaches conn to roomCode, detaching it from any prior room first: a
// connection occupies at most one room.
func (r *repo) Bind(conn *websocket.Conn, roomCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.connRoom[conn]; ok {
		r.detach(conn, prev)
	}

	r.connRoom[conn] = roomCode
	conns, ok := r.roomConns[roomCode]
	if !ok {
		conns = make(map[*websocket.Conn]struct{})
		r.roomConns[roomCode] = conns
	}
	conns[conn] = struct{}{}

	r.logger.Debug("connection bound", "room_code", roomCode)
}

// Unbind detaches conn and reports the room it occupied, if any.
func (r *repo) Unbind(conn *websocket.Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomCode, ok := r.connRoom[conn]
	if !ok {
		return "", false
	}

	r.detach(conn, roomCode)

	r.logger.Debug("connection unbound", "room_code", roomCode)
	return roomCode, true
}

func (r *repo) detach(conn *websocket.Conn, roomCode string) {
	delete(r.connRoom, conn)
	if conns, ok := r.roomConns[roomCode]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.roomConns, roomCode)
		}
	}
}

// MembersOf returns a snapshot of the connections bound to roomCode.
func (r *repo) MembersOf(roomCode string) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(r.roomConns[roomCode]))
	for conn := range r.roomConns[roomCode] {
		conns = append(conns, conn)
	}

	return conns
}

func (r *repo) RoomOf(conn *websocket.Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomCode, ok := r.connRoom[conn]
	return roomCode, ok
}

// RemoveRoom drops every binding for roomCode and returns the connections
// that were bound to it.
func (r *repo) RemoveRoom(roomCode string) []*websocket.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]*websocket.Conn, 0, len(r.roomConns[roomCode]))
	for conn := range r.roomConns[roomCode] {
		conns = append(conns, conn)
		delete(r.connRoom, conn)
	}
	delete(r.roomConns, roomCode)

	return conns
}
