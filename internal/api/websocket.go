package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/time/rate"

	"light-cycles/internal/game"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// BroadcastInterval is how often the hub checks for a new snapshot
	BroadcastInterval = time.Second / 30

	wsWriteTimeout = time.Second
	wsMaxMessage   = 1 << 10

	// Input messages per second per connection; a client resends held keys
	// every frame.
	wsInputRate  = 120
	wsInputBurst = 30
)

// Event names on the wire
const (
	EventState = "game:state"
	EventInput = "input"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}

		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// wsFormat selects how frames are encoded for one client.
type wsFormat int

const (
	formatJSON wsFormat = iota
	formatMsgpack
)

func (f wsFormat) String() string {
	if f == formatMsgpack {
		return "msgpack"
	}
	return "json"
}

// wsMessage is the envelope of every frame sent to clients.
type wsMessage struct {
	Event string      `json:"event" msgpack:"event"`
	Data  interface{} `json:"data" msgpack:"data"`
}

// wsInbound is a message from a client. Input messages carry the held
// controls inline: {"event":"input","cycleId":0,"up":true}.
type wsInbound struct {
	Event      string `json:"event" msgpack:"event"`
	CycleID    int    `json:"cycleId" msgpack:"cycleId"`
	game.Input `msgpack:",inline"`
}

// wsFrame is one broadcast, pre-encoded once per format.
type wsFrame struct {
	json    []byte
	msgpack []byte
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn   *websocket.Conn
	ip     string
	format wsFormat
	input  *rate.Limiter
}

// WebSocketHub fans snapshots out to spectators and feeds their input
// messages to the engine.
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan wsFrame
	register   chan *wsClient
	unregister chan *websocket.Conn
	quit       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	// Set when a client joins so the next loop pass resends the current
	// frame even if the sequence has not moved (e.g. on the game-over screen).
	resend atomic.Bool

	engine    EngineInterface
	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(engine EngineInterface) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan wsFrame, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		quit:       make(chan struct{}),
		engine:     engine,
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// Run owns every connection write. It returns after Stop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for conn, client := range h.clients {
				h.wsLimiter.Release(client.ip)
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return

		case client := <-h.register:
			h.resend.Store(true)
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%s, %d total)", client.ip, client.format, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				h.wsLimiter.Release(client.ip)
				delete(h.clients, conn)
				conn.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case frame := <-h.broadcast:
			h.writeAll(frame)
		}
	}
}

func (h *WebSocketHub) writeAll(frame wsFrame) {
	var failed []*websocket.Conn

	h.mu.RLock()
	for conn, client := range h.clients {
		msgType, payload := websocket.TextMessage, frame.json
		if client.format == formatMsgpack {
			msgType, payload = websocket.BinaryMessage, frame.msgpack
		}
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(msgType, payload); err != nil {
			failed = append(failed, conn)
			continue
		}
		wsMessagesTotal.WithLabelValues(client.format.String()).Inc()
	}
	h.mu.RUnlock()

	if len(failed) == 0 {
		return
	}
	h.mu.Lock()
	for _, conn := range failed {
		if client, ok := h.clients[conn]; ok {
			h.wsLimiter.Release(client.ip)
			delete(h.clients, conn)
			conn.Close()
		}
	}
	UpdateWSConnections(len(h.clients))
	h.mu.Unlock()
}

// Stop closes every connection and ends Run and the broadcast loop.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Broadcast encodes data once per format and queues it for all clients.
// Drops the frame when the queue is full.
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	msg := wsMessage{Event: event, Data: data}

	jsonBytes, err := json.Marshal(msg)
	if err != nil {
		log.Printf("⚠️ WebSocket JSON encode failed: %v", err)
		return
	}
	packed, err := msgpack.Marshal(msg)
	if err != nil {
		log.Printf("⚠️ WebSocket msgpack encode failed: %v", err)
		return
	}

	select {
	case h.broadcast <- wsFrame{json: jsonBytes, msgpack: packed}:
	default:
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes each new snapshot to the clients.
func (h *WebSocketHub) StartBroadcastLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		var lastSeq uint64
		for {
			select {
			case <-h.quit:
				return
			case <-ticker.C:
			}
			if h.ClientCount() == 0 {
				continue
			}

			snap := h.engine.GetSnapshot()
			if snap == nil {
				continue
			}
			resend := h.resend.Swap(false)
			if snap.Sequence == lastSeq && !resend {
				continue
			}
			lastSeq = snap.Sequence
			h.Broadcast(EventState, snap)
		}
	}()
}

// HandleWebSocket upgrades a spectator or remote player connection.
// ?format=msgpack switches the client to binary msgpack frames.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", MaxWSConnectionsTotal)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	format := formatJSON
	if r.URL.Query().Get("format") == "msgpack" {
		format = formatMsgpack
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}
	conn.SetReadLimit(wsMaxMessage)

	client := &wsClient{
		conn:   conn,
		ip:     ip,
		format: format,
		input:  rate.NewLimiter(rate.Limit(wsInputRate), wsInputBurst),
	}
	select {
	case h.register <- client:
	case <-h.quit:
		h.wsLimiter.Release(ip)
		conn.Close()
		return
	}

	go h.readLoop(client)
}

func (h *WebSocketHub) readLoop(client *wsClient) {
	defer func() {
		select {
		case h.unregister <- client.conn:
		case <-h.quit:
		}
	}()

	for {
		msgType, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg wsInbound
		if msgType == websocket.BinaryMessage {
			err = msgpack.Unmarshal(data, &msg)
		} else {
			err = json.Unmarshal(data, &msg)
		}
		if err != nil {
			continue
		}

		switch msg.Event {
		case EventInput:
			if !client.input.Allow() {
				wsInputsDropped.Inc()
				continue
			}
			if err := h.engine.SetInput(msg.CycleID, msg.Input); err != nil {
				log.Printf("⚠️ WebSocket input from %s rejected: %v", client.ip, err)
				continue
			}
			wsInputsTotal.Inc()
		}
	}
}
