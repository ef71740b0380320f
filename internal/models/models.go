package models

import (
	"time"

	"github.com/lib/pq"
)

// ShotRecord is one settled shot in the shot journal
type ShotRecord struct {
	ID           int           `db:"id" json:"id"`
	TableID      string        `db:"table_id" json:"table_id"`
	ShotNumber   int           `db:"shot_number" json:"shot_number"`
	Shooter      string        `db:"shooter" json:"shooter"`
	AimX         float64       `db:"aim_x" json:"aim_x"`
	AimY         float64       `db:"aim_y" json:"aim_y"`
	Power        float64       `db:"power" json:"power"`
	Pocketed     pq.Int64Array `db:"pocketed" json:"pocketed"`
	TurnSwitched bool          `db:"turn_switched" json:"turn_switched"`
	NextState    string        `db:"next_state" json:"next_state"`
	Frames       int           `db:"frames" json:"frames"`
	StartedAt    time.Time     `db:"started_at" json:"started_at"`
	SettledAt    time.Time     `db:"settled_at" json:"settled_at"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}
