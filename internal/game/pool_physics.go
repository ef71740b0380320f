package game

import "errors"

var (
	ErrShotInProgress = errors.New("a shot is already in progress")
	ErrCueBallMoving  = errors.New("cue ball is still moving")
	ErrCueBallSinking = errors.New("cue ball is in a pocket")
	ErrInvalidPower   = errors.New("invalid power")
	ErrNoAim          = errors.New("aim direction is too short")
)

// CollisionEvent records something that happened during a step, for sound
// playback and the shot journal.
type CollisionEvent struct {
	Type   string  `json:"type" msgpack:"type"` // "ball", "cushion", "pocket", "respawn"
	Ball   int     `json:"ball" msgpack:"ball"`
	Target int     `json:"target" msgpack:"target"` // other ball number or pocket ID, -1 if none
	Speed  float64 `json:"speed" msgpack:"speed"`
}

// StepResult is what one Step reports back to the frame loop.
type StepResult struct {
	Settled      bool             // the shot in progress came to rest this step
	TurnSwitched bool             // settling handed the table to the other player
	CueRespawned bool             // a new cue ball was placed at CueSpawn
	Pocketed     []int            // ball numbers captured during the settled shot
	Events       []CollisionEvent // everything that happened this step
}

// Simulation owns every ball, the table and the turn state for one game.
// It is not safe for concurrent use; callers serialise access.
type Simulation struct {
	Balls []*Ball
	Table *Table
	Turn  *TurnState

	ShotInProgress   bool
	PocketedThisShot bool
	ShotNumber       int

	cue            *Ball
	pocketedInShot []int
	events         []CollisionEvent
}

// NewSimulation racks a new game with player 1 to shoot.
func NewSimulation() *Simulation {
	s := &Simulation{
		Table: NewStandardTable(),
		Turn:  NewTurnState(),
	}
	s.Reset()
	return s
}

// Reset re-racks the balls and starts the game over.
func (s *Simulation) Reset() {
	s.Balls = StandardRack()
	s.cue = s.Balls[0]
	s.Turn.Reset()
	s.ShotInProgress = false
	s.PocketedThisShot = false
	s.ShotNumber = 0
	s.pocketedInShot = nil
	s.events = nil
}

// CueBall returns the cue ball. After every step it is also Balls[0].
func (s *Simulation) CueBall() *Ball {
	return s.cue
}

// Launch strikes the cue ball along dir. Power is in (0, MaxShotPower]; the
// resulting speed is capped at MaxCueSpeed.
func (s *Simulation) Launch(dir Vec2, power float64) error {
	if s.ShotInProgress {
		return ErrShotInProgress
	}
	if power <= 0 || power > MaxShotPower {
		return ErrInvalidPower
	}
	cue := s.cue
	if cue.Pocketed {
		return ErrCueBallSinking
	}
	if cue.IsMoving() {
		return ErrCueBallMoving
	}
	aim := dir.Normalize()
	if aim.IsZero() {
		return ErrNoAim
	}

	cue.Velocity = aim.Scale(power * ShotMultiplier)
	if cue.Velocity.Length() > MaxCueSpeed {
		cue.Velocity = cue.Velocity.Normalize().Scale(MaxCueSpeed)
	}

	s.ShotInProgress = true
	s.PocketedThisShot = false
	s.pocketedInShot = nil
	s.ShotNumber++
	return nil
}

// Step advances the simulation by dt seconds.
func (s *Simulation) Step(dt float64) StepResult {
	s.events = s.events[:0]
	var res StepResult

	// Capture first, so a ball already over a pocket drops before it moves on.
	for _, b := range s.Balls {
		for i := range s.Table.Pockets {
			if b.Pocketed {
				break
			}
			p := &s.Table.Pockets[i]
			speed := b.Speed()
			if p.CheckPocket(b) {
				s.events = append(s.events, CollisionEvent{Type: "pocket", Ball: b.Number, Target: p.ID, Speed: speed})
				if s.ShotInProgress {
					s.PocketedThisShot = true
					s.pocketedInShot = append(s.pocketedInShot, b.Number)
				}
			}
		}
	}

	for _, b := range s.Balls {
		b.Integrate(dt)
	}

	for _, b := range s.Balls {
		speed := b.Speed()
		if b.CheckBoundaryCollision() {
			s.events = append(s.events, CollisionEvent{Type: "cushion", Ball: b.Number, Target: -1, Speed: speed})
		}
	}

	cueRemoved := s.removeSunkBalls()

	// One pass in array order; simultaneous contacts resolve pair by pair.
	for i := 0; i < len(s.Balls); i++ {
		a := s.Balls[i]
		if a.Pocketed {
			continue
		}
		for j := i + 1; j < len(s.Balls); j++ {
			b := s.Balls[j]
			if b.Pocketed {
				continue
			}
			closing := a.Velocity.Sub(b.Velocity).Length()
			if a.CheckCollision(b) {
				s.events = append(s.events, CollisionEvent{Type: "ball", Ball: a.Number, Target: b.Number, Speed: closing})
			}
		}
	}

	if cueRemoved || !s.hasCueBall() {
		s.respawnCueBall()
		res.CueRespawned = true
	}
	s.ensureCueFirst()

	if s.ShotInProgress && s.atRest() {
		res.Settled = true
		res.Pocketed = append([]int(nil), s.pocketedInShot...)
		if !s.PocketedThisShot {
			res.TurnSwitched = s.Turn.SwitchTurn()
		}
		s.ShotInProgress = false
		s.PocketedThisShot = false
		s.pocketedInShot = nil
	}

	res.Events = append([]CollisionEvent(nil), s.events...)
	return res
}

// removeSunkBalls drops balls whose sink animation finished and reports
// whether the cue ball was one of them.
func (s *Simulation) removeSunkBalls() bool {
	cueRemoved := false
	kept := s.Balls[:0]
	for _, b := range s.Balls {
		if b.PendingRemoval {
			if b.Number == 0 {
				cueRemoved = true
			}
			continue
		}
		kept = append(kept, b)
	}
	// Clear the tail so dropped balls can be collected.
	for i := len(kept); i < len(s.Balls); i++ {
		s.Balls[i] = nil
	}
	s.Balls = kept
	return cueRemoved
}

func (s *Simulation) hasCueBall() bool {
	for _, b := range s.Balls {
		if b.Number == 0 {
			return true
		}
	}
	return false
}

func (s *Simulation) respawnCueBall() {
	cue := NewCueBall()
	s.Balls = append([]*Ball{cue}, s.Balls...)
	s.cue = cue
	s.events = append(s.events, CollisionEvent{Type: "respawn", Ball: 0, Target: -1})
}

// ensureCueFirst keeps the cue handle pointing at the collection's cue ball
// and moves it to index 0. The collection only ever holds one cue ball.
func (s *Simulation) ensureCueFirst() {
	for i, b := range s.Balls {
		if b.Number != 0 {
			continue
		}
		s.cue = b
		if i != 0 {
			copy(s.Balls[1:i+1], s.Balls[:i])
			s.Balls[0] = b
		}
		return
	}
}

// atRest reports whether every ball is below the stop speed and none is
// still sinking.
func (s *Simulation) atRest() bool {
	for _, b := range s.Balls {
		if b.IsMoving() || b.Animating() {
			return false
		}
	}
	return true
}

// AllStopped reports whether nothing on the table is moving or sinking.
func (s *Simulation) AllStopped() bool {
	return s.atRest()
}
