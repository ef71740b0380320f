package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/playpool/billiards/internal/config"
	"github.com/playpool/billiards/internal/game"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPINLength = 4
	maxPINLength = 8
)

// tableError maps table and simulation errors onto HTTP statuses.
func tableError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrTableNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrInvalidPower),
		errors.Is(err, game.ErrNoAim),
		errors.Is(err, game.ErrUnknownState):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrShotInProgress),
		errors.Is(err, game.ErrCueBallMoving),
		errors.Is(err, game.ErrCueBallSinking),
		errors.Is(err, game.ErrTablePaused),
		errors.Is(err, game.ErrTableClosed):
		status = http.StatusConflict
	case errors.Is(err, game.ErrTooManyTables),
		errors.Is(err, game.ErrManagerStopped):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Printf("[TABLE] request failed: %v", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// tableInfo is the JSON view of an open table.
func tableInfo(t *game.TableSession) gin.H {
	return gin.H{
		"table_id":    t.ID,
		"has_referee": t.RefereePINHash != "",
		"created_at":  t.CreatedAt,
		"table":       t.Snapshot(),
	}
}

// ListTables returns every open table
func ListTables(gm *game.TableManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tables := gm.Tables()
		out := make([]gin.H, 0, len(tables))
		for _, t := range tables {
			snap := t.Snapshot()
			out = append(out, gin.H{
				"table_id":         t.ID,
				"state":            snap.State,
				"shot_number":      snap.ShotNumber,
				"shot_in_progress": snap.ShotInProgress,
				"paused":           snap.Paused,
				"created_at":       t.CreatedAt,
			})
		}
		c.Header("X-Active-Tables", strconv.Itoa(len(out)))
		c.JSON(http.StatusOK, gin.H{"tables": out})
	}
}

// CreateTable racks a new table and returns its control token
func CreateTable(gm *game.TableManager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RefereePIN string `json:"referee_pin"`
		}
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
		}

		var pinHash string
		if pin := strings.TrimSpace(req.RefereePIN); pin != "" {
			if len(pin) < minPINLength || len(pin) > maxPINLength || !isDigits(pin) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "referee_pin must be 4 to 8 digits"})
				return
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
			if err != nil {
				log.Printf("CreateTable bcrypt error: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			pinHash = string(hash)
		}

		t, err := gm.CreateTable(pinHash)
		if err != nil {
			tableError(c, err)
			return
		}

		token, exp, err := IssueControlToken(cfg, t.ID)
		if err != nil {
			log.Printf("CreateTable: %v", err)
			gm.CloseTable(t.ID, game.StatusCancelled)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		resp := tableInfo(t)
		resp["control_token"] = token
		resp["expires_at"] = exp
		c.Header("X-Table-ID", t.ID)
		c.JSON(http.StatusCreated, resp)
	}
}

// GetTable returns the current snapshot of a table
func GetTable(gm *game.TableManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := gm.GetTable(c.Param("id"))
		if err != nil {
			tableError(c, err)
			return
		}
		c.JSON(http.StatusOK, tableInfo(t))
	}
}

// TakeShot launches the cue ball along (dir_x, dir_y) with the given power
func TakeShot(gm *game.TableManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DirX  float64 `json:"dir_x"`
			DirY  float64 `json:"dir_y"`
			Power float64 `json:"power" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dir_x, dir_y and power required"})
			return
		}

		t, err := gm.GetTable(c.Param("id"))
		if err != nil {
			tableError(c, err)
			return
		}
		if err := t.Launch(game.NewVec2(req.DirX, req.DirY), req.Power); err != nil {
			tableError(c, err)
			return
		}

		snap := t.Snapshot()
		c.JSON(http.StatusAccepted, gin.H{
			"table_id":    t.ID,
			"shot_number": snap.ShotNumber,
			"shooter":     snap.State,
		})
	}
}

// ResetTable re-racks a table
func ResetTable(gm *game.TableManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := gm.GetTable(c.Param("id"))
		if err != nil {
			tableError(c, err)
			return
		}
		if err := t.Reset(); err != nil {
			tableError(c, err)
			return
		}
		c.JSON(http.StatusOK, tableInfo(t))
	}
}

// PauseTable freezes or resumes a table's frame loop
func PauseTable(gm *game.TableManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Paused *bool `json:"paused"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Paused == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "paused required"})
			return
		}

		t, err := gm.GetTable(c.Param("id"))
		if err != nil {
			tableError(c, err)
			return
		}
		if err := t.SetPaused(*req.Paused); err != nil {
			tableError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"table_id": t.ID, "paused": *req.Paused})
	}
}

// SetTableState forces the turn state (assignment, fouls, wins). Tables
// created with a referee PIN require it here.
func SetTableState(gm *game.TableManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			State      string `json:"state" binding:"required"`
			RefereePIN string `json:"referee_pin"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "state required"})
			return
		}

		state, err := game.ParseGameState(strings.ToUpper(strings.TrimSpace(req.State)))
		if err != nil {
			tableError(c, err)
			return
		}

		t, err := gm.GetTable(c.Param("id"))
		if err != nil {
			tableError(c, err)
			return
		}

		if t.RefereePINHash != "" {
			if req.RefereePIN == "" {
				c.JSON(http.StatusForbidden, gin.H{"error": "referee_pin required"})
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(t.RefereePINHash), []byte(req.RefereePIN)); err != nil {
				log.Printf("[TABLE] %s wrong referee PIN", t.ID)
				c.JSON(http.StatusForbidden, gin.H{"error": "invalid referee_pin"})
				return
			}
		}

		if err := t.SetState(state); err != nil {
			tableError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"table_id": t.ID, "state": state})
	}
}

// CloseTable stops a table and removes it
func CloseTable(gm *game.TableManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := gm.CloseTable(id, game.StatusCompleted); err != nil {
			tableError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"table_id": id, "status": game.StatusCompleted})
	}
}

// ListShots returns the journaled shots of a table, newest first
func ListShots(journal *game.ShotJournal) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		shots, err := journal.RecentShots(c.Param("id"), limit)
		if err != nil {
			tableError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"table_id": c.Param("id"), "shots": shots})
	}
}
