package wssender

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Repo serializes writes per connection. Gorilla websocket connections allow
// only one concurrent writer, and fan-out for one room can race with error
// writes from a connection's own read loop.
type Repo struct {
	mu    sync.Mutex
	locks map[*websocket.Conn]*sync.Mutex
}

func NewRepo() *Repo {
	return &Repo{locks: make(map[*websocket.Conn]*sync.Mutex)}
}

func (r *Repo) lockFor(conn *websocket.Conn) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[conn]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[conn] = lock
	}

	return lock
}

func (r *Repo) Send(conn *websocket.Conn, v any) error {
	lock := r.lockFor(conn)
	lock.Lock()
	defer lock.Unlock()

	return conn.WriteJSON(v)
}

// Forget drops the write lock of a closed connection.
func (r *Repo) Forget(conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.locks, conn)
}
