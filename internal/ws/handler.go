package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/playpool/billiards/internal/game"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64

	// While the table is still, only every idleFrameEvery-th frame is sent.
	idleFrameEvery = 30
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is checked by middleware.WebSocketCORSCheck
	},
}

// outbound is one queued message; frames go out binary, events as text.
type outbound struct {
	binary bool
	data   []byte
}

// Client is one renderer watching a table.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	tableID string
	send    chan outbound
	closed  bool // send is closed; guarded by hub.mu
}

// Hub maintains the set of clients per table.
type Hub struct {
	rooms      map[string]map[*Client]bool // tableID -> clients
	moving     map[string]bool             // tableID -> last frame had motion
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		moving:     make(map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until stop is closed.
func (h *Hub) Run(stop <-chan struct{}) {
	defer close(h.done)
	for {
		select {
		case <-stop:
			return
		case c := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[c.tableID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[c.tableID] = room
			}
			room[c] = true
			size := len(room)
			h.mu.Unlock()
			log.Printf("[WS] Client joined table %s (room_size=%d)", c.tableID, size)

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.tableID]; ok && room[c] {
				delete(room, c)
				c.closed = true
				close(c.send)
				if len(room) == 0 {
					delete(h.rooms, c.tableID)
					delete(h.moving, c.tableID)
				}
			}
			h.mu.Unlock()
			log.Printf("[WS] Client left table %s", c.tableID)
		}
	}
}

// join hands c to Run. It reports false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// RoomSize returns how many clients are watching a table.
func (h *Hub) RoomSize(tableID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tableID])
}

// PublishFrame implements game.FrameSink. Frames are msgpack encoded once
// and sent to every watcher; a still table is only sampled.
func (h *Hub) PublishFrame(tableID string, snap game.Snapshot) {
	h.mu.Lock()
	if len(h.rooms[tableID]) == 0 {
		h.mu.Unlock()
		return
	}
	wasMoving := h.moving[tableID]
	h.moving[tableID] = snap.ShotInProgress
	h.mu.Unlock()

	if !snap.ShotInProgress && !wasMoving && snap.Frame%idleFrameEvery != 0 {
		return
	}

	data, err := msgpack.Marshal(&snap)
	if err != nil {
		log.Printf("[WS] Error encoding frame for table %s: %v", tableID, err)
		return
	}
	h.broadcast(tableID, outbound{binary: true, data: data})
}

// BroadcastToTable sends a JSON message to every watcher of a table.
func (h *Hub) BroadcastToTable(tableID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}
	h.broadcast(tableID, outbound{data: data})
}

func (h *Hub) broadcast(tableID string, msg outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[tableID] {
		select {
		case c.send <- msg:
		default:
			log.Printf("[WS] Send buffer full for a client of table %s, dropping message", tableID)
		}
	}
}

// CloseRoom drops every watcher of a table. Their send queues are closed,
// so each write pump flushes what is already queued (the table_closed
// event) before it sends the close frame.
func (h *Hub) CloseRoom(tableID string) {
	h.mu.Lock()
	room := h.rooms[tableID]
	for c := range room {
		c.closed = true
		close(c.send)
	}
	delete(h.rooms, tableID)
	delete(h.moving, tableID)
	h.mu.Unlock()

	if len(room) > 0 {
		log.Printf("[WS] Closed room for table %s (%d watchers)", tableID, len(room))
	}
}

// localRelay delivers shot and close events straight to the hub when there
// is no Redis to fan them out.
type localRelay struct {
	hub *Hub
}

// LocalRelay returns a game.ShotSink/game.CloseSink that feeds this hub.
func (h *Hub) LocalRelay() interface{} {
	return &localRelay{hub: h}
}

func (r *localRelay) RecordShot(rec game.ShotRecord) {
	for _, ev := range game.ShotEvents(rec) {
		r.hub.BroadcastToTable(ev.TableID, ev)
	}
}

func (r *localRelay) TableClosed(tableID string, reason game.GameStatus) {
	r.hub.BroadcastToTable(tableID, game.ClosedEvent(tableID, reason))
	r.hub.CloseRoom(tableID)
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			kind := websocket.TextMessage
			if msg.binary {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, msg.data); err != nil {
				log.Printf("[WS] Write error for table %s: %v", c.tableID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for table %s: %v", c.tableID, err)
				return
			}
		}
	}
}

// sendJSON queues a JSON message for this client only.
func (c *Client) sendJSON(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- outbound{data: data}:
	default:
		log.Printf("[WS] Send buffer full for a client of table %s, dropping reply", c.tableID)
	}
}
