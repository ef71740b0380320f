package game

// Pocket is a static capture circle.
type Pocket struct {
	ID       int     `json:"id"`
	Position Vec2    `json:"position"`
	Radius   float64 `json:"radius"`
}

// Table holds the table geometry.
type Table struct {
	Pockets []Pocket `json:"pockets"`
}

// PocketCenters returns the six pocket centres: the four corners and the
// midpoints of the top and bottom rails, each pulled PocketInset toward the
// playing surface from the cushion midline.
func PocketCenters() [NumPockets]Vec2 {
	h := CushionWidth / 2
	top := h + PocketInset
	bottom := TableHeight - h - PocketInset
	left := h + PocketInset
	right := TableWidth - h - PocketInset

	return [NumPockets]Vec2{
		{X: left, Y: top},
		{X: right, Y: top},
		{X: TableWidth / 2, Y: top},
		{X: left, Y: bottom},
		{X: right, Y: bottom},
		{X: TableWidth / 2, Y: bottom},
	}
}

// NewStandardTable builds the six-pocket table.
func NewStandardTable() *Table {
	centers := PocketCenters()
	pockets := make([]Pocket, NumPockets)
	for i, c := range centers {
		pockets[i] = Pocket{ID: i, Position: c, Radius: PocketRadius}
	}
	return &Table{Pockets: pockets}
}

// withinPocket is the single distance test shared by the cushion skip and
// pocket capture, so the two thresholds are always measured the same way.
func withinPocket(pos, center Vec2, radius float64) bool {
	return pos.Distance(center) < radius
}

// IsOverPocketArea reports whether pos lies over any pocket mouth, where
// cushions do not apply.
func IsOverPocketArea(pos Vec2) bool {
	for _, c := range PocketCenters() {
		if withinPocket(pos, c, PocketAreaRadius) {
			return true
		}
	}
	return false
}

// CheckPocket captures ball if its centre is inside the pocket. The ball stops
// dead and begins sinking toward the pocket centre. This is a per-frame
// threshold test, so a very fast ball can skip over a pocket.
func (p *Pocket) CheckPocket(ball *Ball) bool {
	if ball.Pocketed {
		return false
	}
	if !withinPocket(ball.Position, p.Position, p.Radius) {
		return false
	}

	ball.Pocketed = true
	ball.Velocity = Vec2{}
	ball.PocketTarget = p.Position
	ball.PocketTimer = 0
	return true
}

// StandardRack returns a fresh set of balls: the cue ball at CueSpawn first,
// then balls 1..15 in a five-row triangle near the right cushion.
func StandardRack() []*Ball {
	balls := make([]*Ball, 0, NumBalls)
	balls = append(balls, NewCueBall())

	spacing := BallRadius*2 + 2 // a hair wider than a diameter so the rack starts apart
	colStep := spacing * 0.92
	baseX := TableWidth - CushionWidth - BallRadius - (RackRows-1)*colStep
	startY := TableHeight/2 - spacing*(RackRows-1)/2

	number := 1
	for r := 0; r < RackRows; r++ {
		for c := 0; c <= r; c++ {
			x := baseX + float64(r)*colStep
			y := startY + float64(c)*spacing + spacing*float64(RackRows-1-r)/2
			balls = append(balls, NewBall(number, x, y))
			number++
		}
	}

	return balls
}
