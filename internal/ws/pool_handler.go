package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playpool/billiards/internal/game"
)

// WSMessage is a message a watcher sends to the server.
type WSMessage struct {
	Type string `json:"type"`
}

// HandleTableWebSocket upgrades a watcher connection for the table in :id.
// Watchers receive msgpack frames plus JSON events; shots go through the HTTP API.
func HandleTableWebSocket(gm *game.TableManager, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		tableID := c.Param("id")
		t, err := gm.GetTable(tableID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "table not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			hub:     hub,
			conn:    conn,
			tableID: t.ID,
			send:    make(chan outbound, sendBuffer),
		}
		if !hub.join(client) {
			conn.Close()
			return
		}

		// first message is always the full state so a renderer can draw at once
		client.sendJSON(stateMessage(t.Snapshot()))

		go client.writePump()
		go client.readPump(gm)
	}
}

func stateMessage(snap game.Snapshot) gin.H {
	return gin.H{"type": "table_state", "table": snap}
}

// readPump reads watcher requests until the connection drops.
func (c *Client) readPump(gm *game.TableManager) {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Unexpected close for table %s: %v", c.tableID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendJSON(gin.H{"type": "error", "message": "invalid message"})
			continue
		}
		c.handleMessage(gm, msg)
	}
}

func (c *Client) handleMessage(gm *game.TableManager, msg WSMessage) {
	switch msg.Type {
	case "get_state":
		t, err := gm.GetTable(c.tableID)
		if err != nil {
			c.sendJSON(gin.H{"type": "error", "message": "table not found"})
			return
		}
		c.sendJSON(stateMessage(t.Snapshot()))
	case "ping":
		c.sendJSON(gin.H{"type": "pong", "timestamp": time.Now().Unix()})
	default:
		c.sendJSON(gin.H{"type": "error", "message": "unknown message type"})
	}
}
