package game

import (
	"context"
	"log"
	"time"

	"github.com/playpool/billiards/internal/config"
)

// StartIdleWorker starts a background worker that closes tables nobody has
// sent a command to for cfg.TableIdleMinutes.
func StartIdleWorker(ctx context.Context, gm *TableManager, cfg *config.Config) {
	if gm == nil || cfg == nil || cfg.TableIdleMinutes <= 0 {
		log.Println("[IDLE] Manager or idle timeout missing; idle worker not started")
		return
	}

	poll := time.Duration(cfg.IdleWorkerPollInterval) * time.Second
	if poll <= 0 {
		poll = 30 * time.Second
	}
	idleFor := time.Duration(cfg.TableIdleMinutes) * time.Minute

	log.Println("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case now := <-ticker.C:
				reapIdleTables(gm, now.Add(-idleFor))
			}
		}
	}()
}

// reapIdleTables closes every table idle since before cutoff and returns how
// many it closed.
func reapIdleTables(gm *TableManager, cutoff time.Time) int {
	closed := 0
	for _, t := range gm.Tables() {
		if !t.IsIdleSince(cutoff) {
			continue
		}
		log.Printf("[IDLE] Closing table %s, idle since before %s", t.ID, cutoff.Format(time.RFC3339))
		if err := gm.CloseTable(t.ID, StatusCancelled); err != nil {
			log.Printf("[IDLE] Failed to close table %s: %v", t.ID, err)
			continue
		}
		closed++
	}
	return closed
}
