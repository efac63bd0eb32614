package ws

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	writeWait = 10 * time.Second

	// sendBuffer bounds the events queued for one connection. A client that
	// falls this far behind is dropped.
	sendBuffer = 64
)

// Conn is the subset of *websocket.Conn the registry writes through.
type Conn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one registered real-time connection. Events are queued on send
// and written by the client's own writer goroutine, so a slow peer never
// blocks the caller of Push.
type Client struct {
	ID     string
	UserID int64

	conn      Conn
	send      chan any
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(userID int64, conn Conn) *Client {
	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		send:   make(chan any, sendBuffer),
		done:   make(chan struct{}),
	}
	go c.writePump()
	return c
}

// writePump is the connection's only writer.
func (c *Client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case v := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(v); err != nil {
				log.Debug().Err(err).Int64("user_id", c.UserID).Str("conn_id", c.ID).Msg("ws: write failed")
				c.Close()
				return
			}
		}
	}
}

// enqueue hands v to the writer without blocking. A full queue closes the
// connection; its read loop then unregisters it.
func (c *Client) enqueue(v any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- v:
		return true
	default:
		log.Warn().Int64("user_id", c.UserID).Str("conn_id", c.ID).Msg("ws: send buffer full, dropping client")
		c.Close()
		return false
	}
}

// Close stops the writer and closes the underlying connection. Safe to call
// more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Registry maps each user to their single active connection. The most
// recent Register for a user wins.
type Registry struct {
	mu      sync.RWMutex
	clients map[int64]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[int64]*Client),
	}
}

// Register makes conn the active connection for userID and returns its
// handle. A previous connection for the same user stays open but no longer
// receives pushes.
func (r *Registry) Register(userID int64, conn Conn) *Client {
	c := newClient(userID, conn)

	r.mu.Lock()
	r.clients[userID] = c
	r.mu.Unlock()
	return c
}

// Unregister removes userID's entry only when it still points at
// connectionID, so a late disconnect cannot evict a newer connection.
func (r *Registry) Unregister(userID int64, connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[userID]
	if !ok || c.ID != connectionID {
		return false
	}
	delete(r.clients, userID)
	return true
}

// Lookup returns the id of userID's active connection.
func (r *Registry) Lookup(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[userID]
	if !ok {
		return "", false
	}
	return c.ID, true
}

// Push queues event for userID's active connection and reports whether it
// was accepted. A missing user is a normal miss. A failed write or an
// overflowing queue closes the connection and its read loop unregisters it.
func (r *Registry) Push(userID int64, event any) bool {
	r.mu.RLock()
	c, ok := r.clients[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	return c.enqueue(event)
}

// Broadcast sends event to every registered connection.
func (r *Registry) Broadcast(event any) {
	r.mu.RLock()
	targets := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(event)
	}
}

// Online returns the ids of all users with an active connection, ascending.
func (r *Registry) Online() []int64 {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Close drops every connection. Used at shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[int64]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}
