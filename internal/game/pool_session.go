package game

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	ErrTableClosed = errors.New("table is closed")
	ErrTablePaused = errors.New("table is paused")
)

// ShotRecord summarises one shot from launch to settle.
type ShotRecord struct {
	TableID      string    `json:"table_id"`
	ShotNumber   int       `json:"shot_number"`
	Shooter      GameState `json:"shooter"`
	Aim          Vec2      `json:"aim"`
	Power        float64   `json:"power"`
	Pocketed     []int     `json:"pocketed"`
	TurnSwitched bool      `json:"turn_switched"`
	NextState    GameState `json:"next_state"`
	Frames       int       `json:"frames"`
	StartedAt    time.Time `json:"started_at"`
	SettledAt    time.Time `json:"settled_at"`
}

// TableSession runs one Simulation. The frame loop and the command methods
// share a lock, so a command is applied between steps, never during one.
type TableSession struct {
	ID             string     `json:"id"`
	Status         GameStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivity   time.Time  `json:"last_activity"`
	RefereePINHash string     `json:"-"`

	sim    *Simulation
	frame  uint64
	paused bool

	shotStartedAt time.Time
	shotFrames    int
	shotShooter   GameState
	shotAim       Vec2
	shotPower     float64

	sinks    *sinkSet
	stop     chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
}

// NewTableSession racks a new table. sinks may be nil.
func NewTableSession(id string, sinks *sinkSet) *TableSession {
	now := time.Now()
	if sinks == nil {
		sinks = &sinkSet{}
	}
	return &TableSession{
		ID:           id,
		Status:       StatusInProgress,
		CreatedAt:    now,
		LastActivity: now,
		sim:          NewSimulation(),
		sinks:        sinks,
		stop:         make(chan struct{}),
	}
}

// minFrameInterval bounds the ticker for absurd frame rates.
const minFrameInterval = time.Millisecond

func frameInterval(frameRate int) time.Duration {
	if frameRate <= 0 {
		frameRate = int(ReferenceFrameRate)
	}
	d := time.Second / time.Duration(frameRate)
	if d < minFrameInterval {
		return minFrameInterval
	}
	return d
}

// Run drives the frame loop at frameRate until ctx is done or the table is closed.
func (t *TableSession) Run(ctx context.Context, frameRate int) {
	if frameRate <= 0 {
		frameRate = int(ReferenceFrameRate)
	}
	ticker := time.NewTicker(frameInterval(frameRate))
	defer ticker.Stop()

	log.Printf("[TABLE] %s frame loop started at %d fps", t.ID, frameRate)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[TABLE] %s frame loop stopping: %v", t.ID, ctx.Err())
			return
		case <-t.stop:
			log.Printf("[TABLE] %s frame loop stopped", t.ID)
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			t.Tick(dt)
		}
	}
}

// Tick advances the table by one frame of dt seconds and notifies the sinks.
// Paused or closed tables do not advance.
func (t *TableSession) Tick(dt float64) StepResult {
	t.mu.Lock()
	if t.paused || t.Status != StatusInProgress {
		t.mu.Unlock()
		return StepResult{}
	}

	res := t.sim.Step(dt)
	t.frame++
	if t.sim.ShotInProgress || res.Settled {
		t.shotFrames++
	}

	var rec *ShotRecord
	if res.Settled {
		rec = &ShotRecord{
			TableID:      t.ID,
			ShotNumber:   t.sim.ShotNumber,
			Shooter:      t.shotShooter,
			Aim:          t.shotAim,
			Power:        t.shotPower,
			Pocketed:     res.Pocketed,
			TurnSwitched: res.TurnSwitched,
			NextState:    t.sim.Turn.Current(),
			Frames:       t.shotFrames,
			StartedAt:    t.shotStartedAt,
			SettledAt:    time.Now(),
		}
		if rec.Pocketed == nil {
			rec.Pocketed = []int{}
		}
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.sinks.publishFrame(t.ID, snap)
	if rec != nil {
		log.Printf("[SHOT] Table %s shot #%d by %s settled after %d frames, pocketed=%v, next=%s",
			t.ID, rec.ShotNumber, rec.Shooter, rec.Frames, rec.Pocketed, rec.NextState)
		t.sinks.recordShot(*rec)
	}
	return res
}

// Launch strikes the cue ball for whoever is at the table.
func (t *TableSession) Launch(dir Vec2, power float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status != StatusInProgress {
		return ErrTableClosed
	}
	if t.paused {
		return ErrTablePaused
	}
	if err := t.sim.Launch(dir, power); err != nil {
		return err
	}

	t.shotStartedAt = time.Now()
	t.shotFrames = 0
	t.shotShooter = t.sim.Turn.Current()
	t.shotAim = dir.Normalize()
	t.shotPower = power
	t.LastActivity = t.shotStartedAt

	log.Printf("[SHOT] Table %s shot #%d by %s, aim=(%.3f, %.3f) power=%.1f",
		t.ID, t.sim.ShotNumber, t.shotShooter, t.shotAim.X, t.shotAim.Y, power)
	return nil
}

// SetState forces the turn state. Used for transitions made outside the
// physics (assignment, fouls, wins).
func (t *TableSession) SetState(s GameState) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status != StatusInProgress {
		return ErrTableClosed
	}
	prev := t.sim.Turn.Current()
	if err := t.sim.Turn.SetState(s); err != nil {
		return err
	}
	t.LastActivity = time.Now()
	log.Printf("[TABLE] %s state %s -> %s (external)", t.ID, prev, s)
	return nil
}

// Reset re-racks the table and gives the break back to player 1.
func (t *TableSession) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status != StatusInProgress {
		return ErrTableClosed
	}
	t.sim.Reset()
	t.paused = false
	t.shotFrames = 0
	t.LastActivity = time.Now()
	log.Printf("[TABLE] %s re-racked", t.ID)
	return nil
}

// SetPaused freezes or resumes the frame loop.
func (t *TableSession) SetPaused(paused bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status != StatusInProgress {
		return ErrTableClosed
	}
	t.paused = paused
	t.LastActivity = time.Now()
	return nil
}

// Snapshot returns a copy of the table state.
func (t *TableSession) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

// IsIdleSince reports whether the table has seen no commands since cutoff.
func (t *TableSession) IsIdleSince(cutoff time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status == StatusInProgress && t.LastActivity.Before(cutoff)
}

// Close stops the frame loop and marks the table with status. Closing twice
// is a no-op and returns false.
func (t *TableSession) Close(status GameStatus) bool {
	closed := false
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.Status = status
		t.mu.Unlock()
		close(t.stop)
		closed = true
	})
	return closed
}

func (t *TableSession) snapshotLocked() Snapshot {
	snap := t.sim.Snapshot()
	snap.TableID = t.ID
	snap.Frame = t.frame
	snap.Status = t.Status
	snap.Paused = t.paused
	return snap
}
