package game

// Physics and table constants for the billiards table.
// Units are pixels and seconds; the table origin is the top-left corner.

const (
	TableWidth   = 800.0
	TableHeight  = 600.0
	BallRadius   = 12.0
	CushionWidth = 30.0
	PocketRadius = 25.0
	PocketInset  = 8.0 // pockets are pulled this far in from the cushion midline

	Elasticity         = 0.85
	Friction           = 0.98 // velocity multiplier per reference frame
	ReferenceFrameRate = 60.0
	MinCollisionSpeed  = 0.1
	StopSpeed          = 0.1

	// Contact is tested slightly beyond touching to stop fast balls tunnelling.
	CollisionRangeFactor = 2.1

	// Balls inside this radius of a pocket centre skip the cushions.
	PocketAreaRadius = PocketRadius + BallRadius*0.5

	MaxCueSpeed    = 5000.0
	ShotMultiplier = 200.0
	MaxShotPower   = 20.0

	PocketAnimDuration = 0.4

	NumBalls   = 16 // 0=cue, 1-7=solids, 8=eight, 9-15=stripes
	NumPockets = 6
	RackRows   = 5
)

// CueSpawn is where a fresh cue ball is placed, left of the rack clear of the cushion.
var CueSpawn = Vec2{X: CushionWidth + BallRadius + 40, Y: TableHeight / 2}
