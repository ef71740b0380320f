package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/playpool/billiards/internal/api/handlers"
	"github.com/playpool/billiards/internal/config"
	"github.com/playpool/billiards/internal/game"
	"github.com/playpool/billiards/internal/middleware"
	"github.com/playpool/billiards/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, gm *game.TableManager, journal *game.ShotJournal, hub *ws.Hub, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(gm))

		tables := v1.Group("/tables")
		{
			tables.GET("", handlers.ListTables(gm))
			tables.POST("", handlers.CreateTable(gm, cfg))
			tables.GET("/:id", handlers.GetTable(gm))
			tables.GET("/:id/shots", handlers.ListShots(journal))
			tables.GET("/:id/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleTableWebSocket(gm, hub))

			control := tables.Group("/:id", handlers.ControlTokenMiddleware(cfg))
			{
				control.POST("/shot", handlers.TakeShot(gm))
				control.POST("/reset", handlers.ResetTable(gm))
				control.POST("/pause", handlers.PauseTable(gm))
				control.PUT("/state", handlers.SetTableState(gm))
				control.DELETE("", handlers.CloseTable(gm))
			}
		}
	}
}
