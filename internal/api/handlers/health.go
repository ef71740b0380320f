package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playpool/billiards/internal/game"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status
func HealthCheck(gm *game.TableManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"service":       "billiards-table",
			"version":       version,
			"uptime":        time.Since(startTime).String(),
			"active_tables": gm.ActiveTableCount(),
		})
	}
}
