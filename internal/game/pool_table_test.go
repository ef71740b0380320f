package game

import "testing"

func TestStandardTablePockets(t *testing.T) {
	table := NewStandardTable()
	if len(table.Pockets) != NumPockets {
		t.Fatalf("table has %d pockets", len(table.Pockets))
	}

	want := []Vec2{{23, 23}, {777, 23}, {400, 23}, {23, 577}, {777, 577}, {400, 577}}
	for i, p := range table.Pockets {
		if p.ID != i || p.Radius != PocketRadius {
			t.Errorf("pocket %d: %+v", i, p)
		}
		if p.Position != want[i] {
			t.Errorf("pocket %d at %+v, want %+v", i, p.Position, want[i])
		}
		if !IsOverPocketArea(p.Position) {
			t.Errorf("pocket %d centre not inside its own pocket area", i)
		}
	}

	if IsOverPocketArea(NewVec2(TableWidth/2, TableHeight/2)) {
		t.Errorf("table centre reported as a pocket mouth")
	}
}

func TestStandardRack(t *testing.T) {
	balls := StandardRack()
	if len(balls) != NumBalls {
		t.Fatalf("rack has %d balls", len(balls))
	}
	if balls[0].Number != 0 || balls[0].Position != CueSpawn || balls[0].Type != BallCue {
		t.Errorf("cue ball wrong: %+v", balls[0])
	}

	for i, b := range balls {
		if b.Number != i {
			t.Errorf("ball at index %d has number %d", i, b.Number)
		}
		if b.Type != TypeForNumber(i) {
			t.Errorf("ball %d has type %s", i, b.Type)
		}
		if !b.Velocity.IsZero() || b.Pocketed {
			t.Errorf("ball %d not at rest: %+v", i, b)
		}
		const slack = 1e-9
		if b.Position.X-BallRadius < CushionWidth-slack || b.Position.X+BallRadius > TableWidth-CushionWidth+slack ||
			b.Position.Y-BallRadius < CushionWidth-slack || b.Position.Y+BallRadius > TableHeight-CushionWidth+slack {
			t.Errorf("ball %d racked into a cushion at %+v", i, b.Position)
		}
		for _, o := range balls[i+1:] {
			if d := b.Position.Distance(o.Position); d < 2*BallRadius {
				t.Errorf("balls %d and %d overlap (distance %.2f)", b.Number, o.Number, d)
			}
		}
	}
}

func TestTypeForNumber(t *testing.T) {
	tests := map[int]BallType{0: BallCue, 1: BallSolid, 7: BallSolid, 8: BallEight, 9: BallStriped, 15: BallStriped}
	for n, want := range tests {
		if got := TypeForNumber(n); got != want {
			t.Errorf("TypeForNumber(%d) = %s, want %s", n, got, want)
		}
	}
}
