package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playpool/billiards/internal/game"
	"github.com/playpool/billiards/internal/ws"
)

// HandleTableWebSocket streams frames and events for one table
func HandleTableWebSocket(gm *game.TableManager, hub *ws.Hub) gin.HandlerFunc {
	return ws.HandleTableWebSocket(gm, hub)
}
