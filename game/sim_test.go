package game

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const tickDt = 1.0 / 120

// newTestSim 独立的模拟上下文：固定种子，无机器人，无周期食物
func newTestSim(t *testing.T, mutate ...func(*Config)) *Sim {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Bots.Target = 0
	cfg.Food.Periodic = false
	for _, m := range mutate {
		m(&cfg)
	}
	s := NewSim(cfg, Deps{Rand: rand.New(rand.NewSource(1))})
	s.now = t0
	return s
}

// addRoom 创建一个早已过了启动保护期的房间
func addRoom(s *Sim, id RoomID) *Room {
	r, _ := s.store.EnsureRoom(id, t0.Add(-time.Hour))
	return r
}

// placeSnake 直接放置一条存活且过了出生保护期的蛇
func placeSnake(s *Sim, room RoomID, pl PlayerID, pos Vec2, length int) *Snake {
	addRoom(s, room)
	sn := s.store.NewSnake(room, pl)
	sn.Pos = pos
	sn.Dir = Vec2{X: 1}
	sn.lastInputDir = sn.Dir
	sn.Length = length
	sn.Segments = []Vec2{pos}
	sn.Alive = true
	sn.SpawnedAt = t0.Add(-time.Hour)
	return sn
}

// run 以固定 dt 推进 n 个 Tick，并在每个 Tick 后调用 check
func run(s *Sim, n int, check func()) {
	for i := 0; i < n; i++ {
		s.Step(s.now.Add(time.Second/120), tickDt)
		if check != nil {
			check()
		}
	}
}

func drainOut(s *Sim) []Outbound {
	var out []Outbound
	for {
		select {
		case m := <-s.out:
			out = append(out, m)
		default:
			return out
		}
	}
}

type failingRecorder struct {
	calls int
}

func (f *failingRecorder) RecordSession(SessionResult) error {
	f.calls++
	return errors.New("db unavailable")
}

func TestAliveDirectionsStayUnit(t *testing.T) {
	s := newTestSim(t, func(c *Config) {
		c.Bots.Target = 12
		c.Food.Periodic = true
		c.Food.RoomCap = 100
	})
	s.Submit(Join{Room: "r", Player: 1, Name: "alice"})
	s.Submit(Spawn{Player: 1})
	rng := rand.New(rand.NewSource(7))

	run(s, 600, func() {
		if rng.Intn(10) == 0 {
			s.Submit(Steer{Player: 1, Dir: Vec2{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1}, Boost: rng.Intn(2) == 0})
		}
		for _, sn := range s.store.AliveIn("r") {
			if l := sn.Dir.Len(); math.Abs(l-1) > 1e-9 {
				t.Fatalf("snake %d direction length %v", sn.ID, l)
			}
			if len(sn.Segments) > sn.Length {
				t.Fatalf("snake %d has %d segments, length %d", sn.ID, len(sn.Segments), sn.Length)
			}
		}
	})
}

func TestScoreNeverDecreasesWhileAlive(t *testing.T) {
	s := newTestSim(t, func(c *Config) {
		c.Bots.Target = 10
		c.Food.Periodic = true
		c.Food.RoomCap = 300
		c.Arena = ArenaConfig{Width: 1200, Height: 1200}
		c.Spawn.RingMin = 50
		c.Spawn.RingMax = 400
	})
	s.Submit(Join{Room: "r", Player: 1})
	s.Submit(Spawn{Player: 1})
	// 以 (id, 出生时间) 区分一条命，复用后的机器人重新计数
	type life struct {
		id   SnakeID
		born time.Time
	}
	last := map[life]int{}
	run(s, 1500, func() {
		for _, sn := range s.store.AliveIn("r") {
			k := life{sn.ID, sn.SpawnedAt}
			if prev, ok := last[k]; ok && sn.Score < prev {
				t.Fatalf("snake %d score dropped %d -> %d", sn.ID, prev, sn.Score)
			}
			last[k] = sn.Score
		}
	})
}

func TestRoomClosesWhenLastPlayerLeaves(t *testing.T) {
	s := newTestSim(t, func(c *Config) { c.Bots.Target = 3 })
	s.Submit(Join{Room: "r", Player: 1})
	s.Submit(Spawn{Player: 1})
	run(s, 2, nil)
	if _, ok := s.store.Room("r"); !ok {
		t.Fatalf("room not created")
	}
	if got := len(s.brains); got != 3 {
		t.Fatalf("want 3 bot memories, got %d", got)
	}
	drainOut(s)

	s.Submit(Leave{Player: 1})
	run(s, 1, nil)
	if _, ok := s.store.Room("r"); ok {
		t.Fatalf("room should be destroyed")
	}
	if _, snakes, food := s.store.Counts(); snakes != 0 || food != 0 {
		t.Fatalf("leftover entities: snakes=%d food=%d", snakes, food)
	}
	if len(s.brains) != 0 {
		t.Fatalf("bot memory not discarded")
	}
	closed := false
	for _, m := range drainOut(s) {
		if rc, ok := m.(RoomClosedMsg); ok && rc.Room == "r" {
			closed = true
		}
	}
	if !closed {
		t.Fatalf("expected RoomClosedMsg")
	}
}

func TestHumanDeadSnakeRemovedAfterGrace(t *testing.T) {
	s := newTestSim(t)
	s.Submit(Join{Room: "r", Player: 1})
	s.Submit(Spawn{Player: 1})
	run(s, 1, nil)
	sn := s.aliveSnakeOf(1)
	if sn == nil {
		t.Fatalf("no snake spawned")
	}
	s.kill(sn, CauseWall, nil)
	run(s, 120, nil)
	if _, ok := s.store.Snake(sn.ID); !ok {
		t.Fatalf("removed before grace period")
	}
	run(s, 3*120, nil)
	if _, ok := s.store.Snake(sn.ID); ok {
		t.Fatalf("dead human snake should be removed after grace period")
	}
}

func TestPersistenceFailureDoesNotBlockDeath(t *testing.T) {
	rec := &failingRecorder{}
	cfg := DefaultConfig()
	cfg.Bots.Target = 0
	s := NewSim(cfg, Deps{Rand: rand.New(rand.NewSource(3)), Recorder: rec})
	s.Submit(Join{Room: "r", Player: 1, Key: "k1"})
	s.Submit(Spawn{Player: 1})
	s.Step(t0, tickDt)
	sn := s.aliveSnakeOf(1)
	if sn == nil {
		t.Fatalf("no snake")
	}
	s.Submit(Disconnect{Player: 1})
	s.Step(t0.Add(time.Second), tickDt)
	if rec.calls != 1 {
		t.Fatalf("recorder calls = %d, want 1", rec.calls)
	}
	if sn.Alive || sn.Cause != CauseDisconnect {
		t.Fatalf("snake should be dead by disconnect, alive=%v cause=%v", sn.Alive, sn.Cause)
	}
	if _, ok := s.store.Snake(sn.ID); ok {
		t.Fatalf("disconnect should remove the entity")
	}
}
