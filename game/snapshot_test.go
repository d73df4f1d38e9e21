package game

import (
	"testing"
)

type nameBook map[PlayerID]string

func (n nameBook) DisplayName(id PlayerID) (string, bool) {
	name, ok := n[id]
	return name, ok
}

func TestSnapshotOnlyAliveSnakes(t *testing.T) {
	s := newTestSim(t)
	a := placeSnake(s, "r", 1, Vec2{X: 500, Y: 500}, 10)
	b := placeSnake(s, "r", 2, Vec2{X: 900, Y: 900}, 10)
	s.kill(b, CauseWall, nil)

	snap, ok := s.BuildSnapshot("r")
	if !ok {
		t.Fatalf("room missing")
	}
	if len(snap.Snakes) != 1 || snap.Snakes[0].ID != a.ID {
		t.Fatalf("snapshot snakes = %+v, want only %d", snap.Snakes, a.ID)
	}
	if len(snap.Leaderboard) != 1 {
		t.Fatalf("dead snakes must not rank")
	}
	if len(snap.Food) == 0 {
		t.Fatalf("death food should be visible")
	}
	for _, f := range snap.Food {
		if f.Type != FoodDeath {
			t.Fatalf("unexpected food type %q", f.Type)
		}
	}
	if _, ok := s.BuildSnapshot("nope"); ok {
		t.Fatalf("unknown room should not build")
	}
}

func TestSnapshotLeaderboardOrder(t *testing.T) {
	s := newTestSim(t)
	a := placeSnake(s, "r", 1, Vec2{X: 500, Y: 500}, 10)
	b := placeSnake(s, "r", 2, Vec2{X: 900, Y: 900}, 10)
	c := placeSnake(s, "r", 3, Vec2{X: 1300, Y: 1300}, 10)
	d := placeSnake(s, "r", 4, Vec2{X: 1700, Y: 1700}, 10)
	a.Score, a.Kills = 10, 0
	b.Score, b.Kills = 30, 1
	c.Score, c.Kills = 10, 2
	d.Score, d.Kills = 10, 0

	snap, _ := s.BuildSnapshot("r")
	want := []SnakeID{b.ID, c.ID, a.ID, d.ID}
	for i, e := range snap.Leaderboard {
		if e.ID != want[i] {
			t.Fatalf("leaderboard[%d] = %d, want %d (%+v)", i, e.ID, want[i], snap.Leaderboard)
		}
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := newTestSim(t)
	sn := placeSnake(s, "r", 1, Vec2{X: 500, Y: 500}, 10)
	sn.Segments = []Vec2{{X: 500, Y: 500}, {X: 494, Y: 500}}
	skin := "neon"
	sn.Skin = &skin

	snap, _ := s.BuildSnapshot("r")
	sn.Segments[1] = Vec2{}
	*sn.Skin = "classic"

	v := snap.Snakes[0]
	if v.Segments[1] != (Vec2{X: 494, Y: 500}) {
		t.Fatalf("snapshot segments alias live state")
	}
	if v.Skin == nil || *v.Skin != "neon" {
		t.Fatalf("snapshot skin aliases live state")
	}
}

func TestSnapshotNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bots.Target = 0
	s := NewSim(cfg, Deps{Identity: nameBook{1: "alice"}})
	s.now = t0
	s.Submit(Join{Room: "r", Player: 1, Name: "ignored"})
	s.Submit(Join{Room: "r", Player: 2, Name: "bob"})
	s.Submit(Spawn{Player: 1})
	s.Submit(Spawn{Player: 2})
	s.Step(t0, tickDt)
	placeSnake(s, "r", 3, Vec2{X: 200, Y: 200}, 10)
	bot := placeSnake(s, "r", -2, Vec2{X: 2800, Y: 2800}, 10)

	snap, _ := s.BuildSnapshot("r")
	names := map[PlayerID]string{}
	for _, v := range snap.Snakes {
		sn, _ := s.store.Snake(v.ID)
		names[sn.Player] = v.Name
	}
	if names[1] != "alice" || names[2] != "bob" || names[3] != "player-3" {
		t.Fatalf("names = %v", names)
	}
	if names[bot.Player] != defaultBotNames[1] {
		t.Fatalf("bot name = %q", names[bot.Player])
	}
}
