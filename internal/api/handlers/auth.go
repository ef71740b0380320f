package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/playpool/billiards/internal/config"
)

var errWrongTable = errors.New("token issued for another table")

// IssueControlToken signs an HS256 token that lets its holder drive one table.
func IssueControlToken(cfg *config.Config, tableID string) (string, time.Time, error) {
	ttl := time.Duration(cfg.ControlTokenTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	exp := time.Now().Add(ttl)
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
	custom := jwt.MapClaims{"table_id": tableID, "exp": claims.ExpiresAt.Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, custom)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign control token: %w", err)
	}
	return signed, exp, nil
}

// parseControlToken validates token and returns the table it was issued for.
func parseControlToken(cfg *config.Config, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("invalid control token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid control token claims")
	}
	tableID, ok := claims["table_id"].(string)
	if !ok || tableID == "" {
		return "", errors.New("control token has no table_id")
	}
	return tableID, nil
}

// ControlTokenMiddleware validates the bearer control token against the :id
// route param and sets table_id in context.
func ControlTokenMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		tableID, err := parseControlToken(cfg, strings.TrimPrefix(auth, "Bearer "))
		if err == nil && tableID != c.Param("id") {
			err = errWrongTable
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("table_id", tableID)
		c.Next()
	}
}
