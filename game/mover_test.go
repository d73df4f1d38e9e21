package game

import (
	"math"
	"testing"
)

func TestWallDeathIsImmediate(t *testing.T) {
	s := newTestSim(t)
	sn := placeSnake(s, "r", 1, Vec2{X: 1, Y: 500}, 10)
	sn.Dir = Vec2{X: -1}
	run(s, 1, nil)
	if sn.Alive || sn.Cause != CauseWall {
		t.Fatalf("snake should die on the wall, alive=%v cause=%v", sn.Alive, sn.Cause)
	}
	frozen := sn.Pos
	run(s, 5, nil)
	if sn.Pos != frozen {
		t.Fatalf("dead snake moved from %v to %v", frozen, sn.Pos)
	}
}

func TestDegenerateDirectionFallsBack(t *testing.T) {
	tests := []struct {
		name      string
		dir, last Vec2
		want      Vec2
	}{
		{"current", Vec2{X: 0, Y: 3}, Vec2{X: 1}, Vec2{Y: 1}},
		{"last input", Vec2{}, Vec2{X: 0, Y: -2}, Vec2{Y: -1}},
		{"default", Vec2{X: math.NaN()}, Vec2{}, defaultDir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sn := &Snake{Dir: tt.dir, lastInputDir: tt.last}
			got := effectiveDir(sn)
			if got.Dist(tt.want) > 1e-12 {
				t.Fatalf("effectiveDir = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoveUsesSpeedAndBoost(t *testing.T) {
	s := newTestSim(t)
	sn := placeSnake(s, "r", 1, Vec2{X: 1000, Y: 1000}, 10)
	s.move(sn, 0.5)
	if got := sn.Pos.X - 1000; math.Abs(got-90) > 1e-9 {
		t.Fatalf("moved %v, want 90", got)
	}
	sn.Boosting = true
	start := sn.Pos.X
	s.move(sn, 0.5)
	if got := sn.Pos.X - start; math.Abs(got-90*1.8) > 1e-9 {
		t.Fatalf("boosted move %v, want %v", got, 90*1.8)
	}
}

func TestTrailRecordsBySpacingAndTrims(t *testing.T) {
	s := newTestSim(t)
	sn := placeSnake(s, "r", 1, Vec2{X: 1000, Y: 1000}, 4)

	// 每步 3 个单位，间距 6：每两步记录一段
	for i := 0; i < 20; i++ {
		s.move(sn, 3.0/180)
		if len(sn.Segments) > sn.Length {
			t.Fatalf("segments %d exceed length %d", len(sn.Segments), sn.Length)
		}
	}
	if len(sn.Segments) != 4 {
		t.Fatalf("segments = %d, want 4", len(sn.Segments))
	}
	for i := 1; i < len(sn.Segments); i++ {
		if d := sn.Segments[i-1].Dist(sn.Segments[i]); d < 6-1e-9 {
			t.Fatalf("segments %d and %d only %v apart", i-1, i, d)
		}
	}
	if sn.Segments[0].X <= sn.Segments[1].X {
		t.Fatalf("newest segment must be first")
	}
}

func TestSegmentSpacingGrowsAndCaps(t *testing.T) {
	s := newTestSim(t)
	cases := map[int]float64{
		10:  6,
		30:  6,
		40:  6.5,
		500: 10,
	}
	for length, want := range cases {
		if got := s.segmentSpacing(length); math.Abs(got-want) > 1e-9 {
			t.Errorf("segmentSpacing(%d) = %v, want %v", length, got, want)
		}
	}
	if got := s.sizeMultiplier(10); got != 1 {
		t.Errorf("sizeMultiplier(10) = %v, want 1", got)
	}
	if got := s.sizeMultiplier(1000); math.Abs(got-1.6) > 1e-9 {
		t.Errorf("sizeMultiplier(1000) = %v, want 1.6", got)
	}
}

func TestNegativeLengthClamped(t *testing.T) {
	s := newTestSim(t)
	sn := placeSnake(s, "r", 1, Vec2{X: 1000, Y: 1000}, -3)
	s.move(sn, tickDt)
	if sn.Length != 1 || len(sn.Segments) != 1 {
		t.Fatalf("length=%d segments=%d, want 1 and 1", sn.Length, len(sn.Segments))
	}
}
