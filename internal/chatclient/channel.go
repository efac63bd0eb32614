package chatclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Sabbir9535/BlinkChat/internal/domain"
)

// Channel is one websocket connection to /ws. Pushed events fan out to the
// current subscribers on the reader goroutine.
type Channel struct {
	conn *websocket.Conn

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func(domain.Event)

	done      chan struct{}
	closeOnce sync.Once
}

// WSURL turns an http(s) base URL into the ws(s) URL of the channel.
func WSURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

// Dial connects with the bearer token and starts reading pushed events. ctx
// bounds the handshake only.
func Dial(ctx context.Context, wsURL, token string) (*Channel, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", wsURL, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	c := &Channel{
		conn: conn,
		subs: make(map[uint64]func(domain.Event)),
		done: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Subscribe registers fn and returns the function that removes it. The
// returned function may be called more than once.
func (c *Channel) Subscribe(fn func(domain.Event)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Channel) subscribers() []func(domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]func(domain.Event), 0, len(c.subs))
	for _, fn := range c.subs {
		out = append(out, fn)
	}
	return out
}

func (c *Channel) readLoop() {
	defer c.Close()
	for {
		var ev domain.Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("channel: read")
			}
			return
		}
		for _, fn := range c.subscribers() {
			fn(ev)
		}
	}
}

// Done is closed once the connection is gone.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = c.conn.Close()
		close(c.done)
	})
	return err
}
