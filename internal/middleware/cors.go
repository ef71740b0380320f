package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/playpool/billiards/internal/config"
)

// devOrigin reports whether origin is a localhost renderer.
func devOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost:") ||
		strings.HasPrefix(origin, "http://127.0.0.1:")
}

// allowedOrigins lists the renderer origins accepted outside development.
func allowedOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" {
		return nil
	}
	return []string{cfg.FrontendURL}
}

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	log.Printf("[CORS] Environment: %s, FrontendURL: %s", cfg.Environment, cfg.FrontendURL)

	corsConfig := cors.Config{
		AllowMethods: []string{
			"GET", "POST", "PUT", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{
			"Content-Length", "X-Table-ID", "X-Active-Tables",
		},
		MaxAge: 12 * time.Hour, // Cache preflight responses
	}

	if cfg.Environment == "development" {
		corsConfig.AllowOriginFunc = devOrigin
		corsConfig.AllowCredentials = true
	} else {
		origins := allowedOrigins(cfg)
		if len(origins) == 0 {
			log.Println("[CORS] FRONTEND_URL not set; allowing all origins without credentials")
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = origins
			corsConfig.AllowCredentials = true
			log.Printf("[CORS] Production allowed origins: %v", origins)
		}
	}

	return cors.New(corsConfig)
}

// WebSocketCORSCheck validates WebSocket upgrade origins
func WebSocketCORSCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only check for WebSocket upgrade requests
		if !strings.Contains(strings.ToLower(c.GetHeader("Connection")), "upgrade") ||
			strings.ToLower(c.GetHeader("Upgrade")) != "websocket" {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin == "" {
			// native renderers do not send an Origin
			c.Next()
			return
		}

		var allowed bool
		if cfg.Environment == "development" {
			allowed = devOrigin(origin)
		} else {
			origins := allowedOrigins(cfg)
			allowed = len(origins) == 0
			for _, o := range origins {
				if origin == o {
					allowed = true
					break
				}
			}
		}

		if !allowed {
			c.JSON(403, gin.H{"error": "WebSocket origin not allowed"})
			c.Abort()
			return
		}

		c.Next()
	}
}
