// Package broadcast publishes build outcomes to websocket clients, which is
// how an external renderer follows a book being edited.
//
// A central hub goroutine owns the client set; register, unregister and
// broadcast requests reach it over channels. Each connection gets a
// buffered send queue; a client that falls behind is dropped rather than
// allowed to block other clients. The latest message is replayed to every
// new client so a late renderer starts from the current build.
package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/logging"
	"github.com/google/uuid"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Options configures a Hub.
type Options struct {
	// OriginPatterns lists extra origins allowed to connect besides the
	// request host, in websocket.AcceptOptions syntax.
	OriginPatterns []string
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	remote string
}

// Hub fans build messages out to connected clients.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	clients int64
	session string
	opts    Options
	logger  logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewHub creates a hub and starts its goroutine. A nil logger discards
// output.
func NewHub(opts Options, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 32),
		session:    uuid.NewString(),
		opts:       opts,
		logger:     logger.WithComponent("broadcast"),
		ctx:        ctx,
		cancel:     cancel,
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run()
	}()

	return h
}

func (h *Hub) run() {
	clients := make(map[*client]struct{})
	var last []byte

	drop := func(c *client) {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
			atomic.StoreInt64(&h.clients, int64(len(clients)))
		}
	}

	for {
		select {
		case c := <-h.register:
			clients[c] = struct{}{}
			atomic.StoreInt64(&h.clients, int64(len(clients)))
			if last != nil {
				c.send <- last
			}
			h.logger.Debug(h.ctx, "Client connected", "remote", c.remote, "clients", len(clients))

		case c := <-h.unregister:
			drop(c)
			h.logger.Debug(h.ctx, "Client disconnected", "remote", c.remote, "clients", len(clients))

		case msg := <-h.broadcast:
			last = msg
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn(h.ctx, nil, "Dropping slow client", "remote", c.remote)
					drop(c)
				}
			}

		case <-h.ctx.Done():
			for c := range clients {
				drop(c)
			}
			return
		}
	}
}

// track reserves a slot in the wait group unless the hub is shut down.
func (h *Hub) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

// ServeHTTP upgrades the request and streams build messages until the
// client goes away or the hub shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.track() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	defer h.wg.Done()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.opts.OriginPatterns,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer), remote: r.RemoteAddr}

	select {
	case h.register <- c:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	// Clients only listen; CloseRead handles control frames and reports the
	// peer closing through ctx. It is not tied to the hub context because a
	// cancelled read tears the connection down without a close frame.
	ctx := conn.CloseRead(context.Background())
	h.writeLoop(ctx, c)

	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}

	if h.ctx.Err() != nil {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Hub) writeLoop(ctx context.Context, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					h.logger.Warn(ctx, err, "WebSocket write failed", "remote", c.remote)
				}
				return
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return

		case <-h.ctx.Done():
			return
		}
	}
}

// Publish queues a message for every connected client.
func (h *Hub) Publish(msg any) error {
	if err := h.ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeNetwork, errors.ErrCodeBroadcastFailed, "hub is shut down")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, errors.ErrCodeBroadcastFailed, "encoding broadcast message")
	}

	select {
	case h.broadcast <- data:
		return nil
	case <-h.ctx.Done():
		return errors.Wrap(h.ctx.Err(), errors.ErrorTypeNetwork, errors.ErrCodeBroadcastFailed, "hub is shut down")
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(atomic.LoadInt64(&h.clients))
}

// Session identifies this hub for its lifetime.
func (h *Hub) Session() string {
	return h.session
}

// Shutdown disconnects every client and waits for all hub goroutines, or
// for ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrorTypeNetwork, errors.ErrCodeBroadcastFailed, "waiting for clients to disconnect")
	}
}
