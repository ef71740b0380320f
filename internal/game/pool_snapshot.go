package game

// Snapshot is the read-only view of a table handed to renderers.
type Snapshot struct {
	TableID        string     `json:"table_id" msgpack:"id"`
	Frame          uint64     `json:"frame" msgpack:"f"`
	Status         GameStatus `json:"status" msgpack:"st"`
	State          GameState  `json:"state" msgpack:"s"`
	Player1        Player     `json:"player1" msgpack:"p1"`
	Player2        Player     `json:"player2" msgpack:"p2"`
	ShotInProgress bool       `json:"shot_in_progress" msgpack:"sp"`
	ShotNumber     int        `json:"shot_number" msgpack:"sn"`
	Paused         bool       `json:"paused" msgpack:"pa"`
	Balls          []Ball     `json:"balls" msgpack:"b"`
}

// Snapshot copies the consumer-visible state. The cue ball is always first.
func (s *Simulation) Snapshot() Snapshot {
	balls := make([]Ball, len(s.Balls))
	for i, b := range s.Balls {
		balls[i] = *b
	}
	return Snapshot{
		State:          s.Turn.Current(),
		Player1:        s.Turn.Player1,
		Player2:        s.Turn.Player2,
		ShotInProgress: s.ShotInProgress,
		ShotNumber:     s.ShotNumber,
		Balls:          balls,
	}
}
