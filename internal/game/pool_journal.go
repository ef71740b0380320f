package game

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playpool/billiards/internal/models"
)

// ShotJournal writes settled shots to the table_shots table.
type ShotJournal struct {
	db *sqlx.DB
}

// NewShotJournal returns a journal backed by db. A nil db yields a journal
// that drops every record.
func NewShotJournal(db *sqlx.DB) *ShotJournal {
	return &ShotJournal{db: db}
}

// ToModel converts a ShotRecord into its database row.
func (rec ShotRecord) ToModel() models.ShotRecord {
	pocketed := make(pq.Int64Array, len(rec.Pocketed))
	for i, n := range rec.Pocketed {
		pocketed[i] = int64(n)
	}
	return models.ShotRecord{
		TableID:      rec.TableID,
		ShotNumber:   rec.ShotNumber,
		Shooter:      string(rec.Shooter),
		AimX:         rec.Aim.X,
		AimY:         rec.Aim.Y,
		Power:        rec.Power,
		Pocketed:     pocketed,
		TurnSwitched: rec.TurnSwitched,
		NextState:    string(rec.NextState),
		Frames:       rec.Frames,
		StartedAt:    rec.StartedAt,
		SettledAt:    rec.SettledAt,
	}
}

// RecordShot implements ShotSink. The insert runs off the frame loop.
func (j *ShotJournal) RecordShot(rec ShotRecord) {
	if j == nil || j.db == nil {
		return
	}
	go j.insert(rec)
}

func (j *ShotJournal) insert(rec ShotRecord) {
	row := rec.ToModel()
	_, err := j.db.NamedExec(`
		INSERT INTO table_shots (table_id, shot_number, shooter, aim_x, aim_y, power, pocketed, turn_switched, next_state, frames, started_at, settled_at, created_at)
		VALUES (:table_id, :shot_number, :shooter, :aim_x, :aim_y, :power, :pocketed, :turn_switched, :next_state, :frames, :started_at, :settled_at, NOW())
	`, row)
	if err != nil {
		log.Printf("[DB] Failed to record shot #%d for table %s: %v", rec.ShotNumber, rec.TableID, err)
	}
}

// RecentShots returns up to limit shots for a table, newest first.
func (j *ShotJournal) RecentShots(tableID string, limit int) ([]models.ShotRecord, error) {
	if j == nil || j.db == nil {
		return []models.ShotRecord{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	shots := []models.ShotRecord{}
	err := j.db.Select(&shots, `
		SELECT id, table_id, shot_number, shooter, aim_x, aim_y, power, pocketed, turn_switched, next_state, frames, started_at, settled_at, created_at
		FROM table_shots WHERE table_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
	`, tableID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load shots for table %s: %w", tableID, err)
	}
	return shots, nil
}
