// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	applog "voiceshield/internal/log"
)

const (
	writeWait      = 2 * time.Second
	maxMessageSize = 4096
	broadcastDepth = 256
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: closed")

// client is one connected WebSocket peer. gorilla/websocket allows a single
// concurrent writer per connection, so writes are serialised by mu.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// WebSocketTransport serves the JSON control API on /ws. Broadcasts from
// Send reach every client; commands from a client go to the Handler and
// its reply goes back to that client only.
type WebSocketTransport struct {
	handler   Handler
	upgrader  websocket.Upgrader
	clients   map[*client]struct{}
	clientsMu sync.Mutex
	broadcast chan any
	listener  net.Listener
	server    *http.Server
	done      chan struct{}
	closeOnce sync.Once
}

// NewWebSocketTransport listens on addr and starts serving. handler may be
// nil for a broadcast-only server.
func NewWebSocketTransport(addr string, handler Handler) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	wst := &WebSocketTransport{
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
		clients:   make(map[*client]struct{}),
		broadcast: make(chan any, broadcastDepth),
		listener:  ln,
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	wst.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		applog.Infof("WebSocketTransport: Serving control API on ws://%s/ws", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	go wst.handleBroadcasts()

	return wst, nil
}

// sameOrigin accepts clients that send no Origin header and browser pages
// served from the control address itself.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Host, r.Host) {
		applog.Warnf("WebSocketTransport: Rejected connection from origin %q", origin)
		return false
	}
	return true
}

// Addr returns the address the server is listening on.
func (wst *WebSocketTransport) Addr() string {
	return wst.listener.Addr().String()
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}

	wst.clientsMu.Lock()
	wst.clients[c] = struct{}{}
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	applog.WithFields(applog.Fields{
		"client": c.id,
		"remote": r.RemoteAddr,
		"total":  total,
	}).Info("WebSocketTransport: Client connected")

	if wst.handler != nil {
		if err := c.writeJSON(wst.handler.Welcome(c.id)); err != nil {
			wst.drop(c, err)
			return
		}
	}

	go wst.readLoop(c)
}

// readLoop feeds client messages to the handler until the connection fails.
func (wst *WebSocketTransport) readLoop(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			wst.drop(c, err)
			return
		}
		if wst.handler == nil {
			continue
		}
		if reply := wst.handler.Handle(c.id, data); reply != nil {
			if err := c.writeJSON(reply); err != nil {
				wst.drop(c, err)
				return
			}
		}
	}
}

func (wst *WebSocketTransport) drop(c *client, cause error) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[c]
	delete(wst.clients, c)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	c.conn.Close()
	if ok {
		applog.WithFields(applog.Fields{
			"client": c.id,
			"cause":  cause.Error(),
			"total":  total,
		}).Info("WebSocketTransport: Client disconnected")
	}
}

// handleBroadcasts sends messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			targets := make([]*client, 0, len(wst.clients))
			for c := range wst.clients {
				targets = append(targets, c)
			}
			wst.clientsMu.Unlock()

			for _, c := range targets {
				if err := c.writeJSON(data); err != nil {
					wst.drop(c, err)
				}
			}
		}
	}
}

// Send queues data for every connected client. When the queue is full the
// message is dropped, later state and monitor messages supersede it.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}

	select {
	case wst.broadcast <- data:
	default:
		applog.Debugf("WebSocketTransport: Broadcast queue full, dropping %T", data)
	}
	return nil
}

// Close disconnects every client and shuts down the server.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		applog.Infof("WebSocketTransport: Closing server")
		close(wst.done)

		wst.clientsMu.Lock()
		for c := range wst.clients {
			c.conn.Close()
		}
		wst.clients = make(map[*client]struct{})
		wst.clientsMu.Unlock()

		err = wst.server.Close()
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
