package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// DefaultSendBuffer is the per-client queue depth
	DefaultSendBuffer = 64

	maxMessageSize = 4096
)

// Metrics receives stream measurements. *monitoring.Metrics satisfies it.
type Metrics interface {
	IncWSConnections()
	DecWSConnections()
	RecordWSMessage(direction, msgType string)
	IncWSDropped()
}

type nopMetrics struct{}

func (nopMetrics) IncWSConnections()              {}
func (nopMetrics) DecWSConnections()              {}
func (nopMetrics) RecordWSMessage(string, string) {}
func (nopMetrics) IncWSDropped()                  {}

// Options configures a Hub.
type Options struct {
	Origins    []string
	SendBuffer int
	Metrics    Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	rid  id.RequestID
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans model notifications out to every connected stream client. It
// implements the launcher's Presenter; its methods never block, and a
// client that falls behind loses messages instead of stalling the caller.
type Hub struct {
	upgrader websocket.Upgrader
	buffer   int
	metrics  Metrics
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub. An empty origin list, or one containing "*",
// accepts any origin.
func NewHub(opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	h := &Hub{
		buffer:  opts.SendBuffer,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		now:     opts.Now,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(opts.Origins),
	}
	return h
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// ItemUninstalled tells clients to drop the rendering of item.
func (h *Hub) ItemUninstalled(item types.Item) {
	h.broadcast(types.Event{Type: types.EventItemUninstalled, ID: item.ID, Item: &item})
}

// ViewNeedsRefresh tells clients to redraw the subtree at scope.
func (h *Hub) ViewNeedsRefresh(scope id.NodeID) {
	h.broadcast(types.Event{Type: types.EventRefresh, ID: scope})
}

// RenderItem tells clients to create a rendering for item.
func (h *Hub) RenderItem(item types.Item) {
	h.broadcast(types.Event{Type: types.EventRender, ID: item.ID, Item: &item})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(ev types.Event) {
	ev.Timestamp = h.now().Unix()
	data, err := sonic.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("type", ev.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
			h.metrics.RecordWSMessage("out", ev.Type)
		default:
			h.metrics.IncWSDropped()
			h.logger.Warn("Stream client behind, dropping event",
				zap.String("client", c.rid.String()),
				zap.String("type", ev.Type))
		}
	}
}

// HandleConnection upgrades the request and streams events until the
// client goes away or the hub is closed.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		conn: conn,
		send: make(chan []byte, h.buffer),
		rid:  id.NewRequestID(),
	}
	if !h.register(cl) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.logger.Info("Stream client connected", zap.String("client", cl.rid.String()))

	go h.writePump(cl)
	h.readPump(cl)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.IncWSConnections()
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.metrics.DecWSConnections()
	}
	h.mu.Unlock()
	c.close()
}

// readPump consumes client frames so control messages are processed. Text
// frames are counted and otherwise ignored.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		h.logger.Info("Stream client disconnected", zap.String("client", c.rid.String()))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Stream read error", zap.Error(err))
			}
			return
		}
		h.metrics.RecordWSMessage("in", "client")
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		h.metrics.DecWSConnections()
		c.close()
	}
}
