package game

import "math"

// BallType classifies a ball by its number.
type BallType string

const (
	BallSolid   BallType = "SOLID"
	BallStriped BallType = "STRIPED"
	BallCue     BallType = "CUE"
	BallEight   BallType = "EIGHT"
)

// TypeForNumber returns the type of the ball carrying number n.
func TypeForNumber(n int) BallType {
	switch {
	case n == 0:
		return BallCue
	case n == 8:
		return BallEight
	case n >= 1 && n <= 7:
		return BallSolid
	default:
		return BallStriped
	}
}

// Ball is a single ball's physics state.
type Ball struct {
	Number         int      `json:"number" msgpack:"n"`
	Type           BallType `json:"type" msgpack:"t"`
	Position       Vec2     `json:"position" msgpack:"p"`
	Velocity       Vec2     `json:"velocity" msgpack:"v"`
	Pocketed       bool     `json:"pocketed" msgpack:"k"`
	PocketTimer    float64  `json:"pocket_timer" msgpack:"-"`
	PocketTarget   Vec2     `json:"-" msgpack:"-"`
	PendingRemoval bool     `json:"-" msgpack:"-"`
}

// NewBall creates a resting ball at (x, y).
func NewBall(number int, x, y float64) *Ball {
	return &Ball{
		Number:   number,
		Type:     TypeForNumber(number),
		Position: NewVec2(x, y),
	}
}

// NewCueBall creates a cue ball at the spawn point.
func NewCueBall() *Ball {
	return NewBall(0, CueSpawn.X, CueSpawn.Y)
}

// Speed returns the magnitude of the ball's velocity.
func (b *Ball) Speed() float64 {
	return b.Velocity.Length()
}

// IsMoving reports whether the ball is above the stop threshold.
func (b *Ball) IsMoving() bool {
	return b.Velocity.Length() >= StopSpeed
}

// Animating reports whether the ball is sinking into a pocket.
func (b *Ball) Animating() bool {
	return b.Pocketed && !b.PendingRemoval
}

// Integrate advances the ball by dt seconds.
//
// A pocketed ball only moves toward its pocket centre and is flagged for
// removal once the sink animation finishes. A free ball decays under
// frame-rate independent friction, moves, and is clamped to the table rectangle.
func (b *Ball) Integrate(dt float64) {
	if dt < 0 {
		dt = 0
	}

	if b.Pocketed {
		if b.PendingRemoval {
			return
		}
		b.PocketTimer += dt
		t := b.PocketTimer / PocketAnimDuration
		if t > 1 {
			t = 1
		}
		b.Position = b.Position.Scale(1 - t).Add(b.PocketTarget.Scale(t))
		if b.PocketTimer >= PocketAnimDuration {
			b.Position = b.PocketTarget
			b.PendingRemoval = true
		}
		return
	}

	damping := math.Pow(Friction, dt*ReferenceFrameRate)
	b.Velocity = b.Velocity.Scale(damping)
	if b.Velocity.Length() < StopSpeed {
		b.Velocity = Vec2{}
	}

	b.Position = b.Position.Add(b.Velocity.Scale(dt))

	// Numerical safety net only; cushions do the real reflection.
	b.Position.X = clamp(b.Position.X, 0, TableWidth)
	b.Position.Y = clamp(b.Position.Y, 0, TableHeight)
}

// CheckBoundaryCollision reflects the ball off any cushion its edge has crossed.
// Balls over a pocket mouth are left alone so they can drop. Returns true when
// a cushion was hit.
func (b *Ball) CheckBoundaryCollision() bool {
	if b.Pocketed || IsOverPocketArea(b.Position) {
		return false
	}

	hit := false
	if b.Position.X-BallRadius < CushionWidth {
		b.Position.X = CushionWidth + BallRadius
		b.Velocity.X = -b.Velocity.X * Elasticity
		hit = true
	} else if b.Position.X+BallRadius > TableWidth-CushionWidth {
		b.Position.X = TableWidth - CushionWidth - BallRadius
		b.Velocity.X = -b.Velocity.X * Elasticity
		hit = true
	}

	if b.Position.Y-BallRadius < CushionWidth {
		b.Position.Y = CushionWidth + BallRadius
		b.Velocity.Y = -b.Velocity.Y * Elasticity
		hit = true
	} else if b.Position.Y+BallRadius > TableHeight-CushionWidth {
		b.Position.Y = TableHeight - CushionWidth - BallRadius
		b.Velocity.Y = -b.Velocity.Y * Elasticity
		hit = true
	}

	return hit
}

// CheckCollision resolves contact between b and other with an equal-mass
// impulse along the line of centres, then pushes the pair apart by the
// remaining overlap. Returns true if an impulse was applied.
func (b *Ball) CheckCollision(other *Ball) bool {
	if b.Pocketed || other.Pocketed {
		return false
	}

	delta := b.Position.Sub(other.Position)
	dist := delta.Length()
	if dist <= 0 || dist >= CollisionRangeFactor*BallRadius {
		return false
	}

	normal := delta.Normalize()
	velAlongNormal := b.Velocity.Sub(other.Velocity).Dot(normal)

	// Separating, or resting contact too slow to matter.
	if velAlongNormal >= 0 || -velAlongNormal < MinCollisionSpeed {
		return false
	}

	const invMass1, invMass2 = 1.0, 1.0
	j := -(1 + Elasticity) * velAlongNormal / (invMass1 + invMass2)
	impulse := normal.Scale(j)

	b.Velocity = b.Velocity.Add(impulse.Scale(invMass1))
	other.Velocity = other.Velocity.Sub(impulse.Scale(invMass2))

	if overlap := 2*BallRadius - dist; overlap > 0 {
		correction := normal.Scale(overlap * 0.5)
		b.Position = b.Position.Add(correction)
		other.Position = other.Position.Sub(correction)
	}

	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
