package game

import (
	"math"
	"testing"
	"time"
)

func joinAndSpawn(t *testing.T, s *Sim, room RoomID, id PlayerID) *Snake {
	t.Helper()
	reply := make(chan SpawnResult, 1)
	s.Submit(Join{Room: room, Player: id, Key: "key", Name: "p"})
	s.Submit(Spawn{Player: id, Reply: reply})
	run(s, 1, nil)
	res := <-reply
	if !res.OK {
		t.Fatalf("spawn failed")
	}
	sn, ok := s.store.Snake(res.Snake)
	if !ok || !sn.Alive {
		t.Fatalf("spawned snake missing")
	}
	return sn
}

func TestSteerAppliesOnNextTick(t *testing.T) {
	s := newTestSim(t)
	sn := joinAndSpawn(t, s, "r", 1)
	before := sn.Dir

	s.Submit(Steer{Player: 1, Dir: Vec2{X: 0, Y: -5}, Boost: true})
	if sn.Dir != before || sn.Boosting {
		t.Fatalf("input applied before the tick")
	}
	run(s, 1, nil)
	if sn.Dir.Dist(Vec2{Y: -1}) > 1e-12 || !sn.Boosting {
		t.Fatalf("dir=%v boosting=%v after tick", sn.Dir, sn.Boosting)
	}
}

func TestLastSteerBeforeTickWins(t *testing.T) {
	s := newTestSim(t)
	sn := joinAndSpawn(t, s, "r", 1)
	s.Submit(Steer{Player: 1, Dir: Vec2{X: 1}})
	s.Submit(Steer{Player: 1, Dir: Vec2{X: -1}})
	run(s, 1, nil)
	if sn.Dir.Dist(Vec2{X: -1}) > 1e-12 {
		t.Fatalf("dir = %v, want last directive", sn.Dir)
	}
}

func TestDegenerateSteerKeepsDirection(t *testing.T) {
	s := newTestSim(t)
	sn := joinAndSpawn(t, s, "r", 1)
	s.Submit(Steer{Player: 1, Dir: Vec2{X: 0, Y: 1}})
	run(s, 1, nil)

	for _, bad := range []Vec2{{}, {X: math.NaN(), Y: 1}, {X: math.Inf(1)}} {
		s.Submit(Steer{Player: 1, Dir: bad, Boost: true})
		run(s, 1, nil)
		if sn.Dir.Dist(Vec2{Y: 1}) > 1e-12 {
			t.Fatalf("input %v changed direction to %v", bad, sn.Dir)
		}
		if !sn.Boosting {
			t.Fatalf("boost flag should still apply")
		}
	}
}

func TestStaleSeqSteerIgnored(t *testing.T) {
	s := newTestSim(t)
	sn := joinAndSpawn(t, s, "r", 1)
	s.Submit(Steer{Player: 1, Dir: Vec2{Y: 1}, Seq: 5})
	run(s, 1, nil)

	// 乱序到达的旧输入不能覆盖新方向
	s.Submit(Steer{Player: 1, Dir: Vec2{X: -1}, Seq: 4})
	s.Submit(Steer{Player: 1, Dir: Vec2{X: -1}, Seq: 5})
	run(s, 1, nil)
	if sn.Dir.Dist(Vec2{Y: 1}) > 1e-12 {
		t.Fatalf("stale seq changed direction to %v", sn.Dir)
	}
	if s.metrics.OldSeqIgnored != 2 {
		t.Fatalf("old seq ignored = %d, want 2", s.metrics.OldSeqIgnored)
	}

	// 不带序号的输入总是生效
	s.Submit(Steer{Player: 1, Dir: Vec2{X: 1}})
	run(s, 1, nil)
	if sn.Dir.Dist(Vec2{X: 1}) > 1e-12 {
		t.Fatalf("unsequenced steer ignored, dir %v", sn.Dir)
	}

	// 重连后序号重新计数
	s.Submit(Join{Room: "r", Player: 1, Name: "p"})
	s.Submit(Steer{Player: 1, Dir: Vec2{Y: -1}, Seq: 1})
	run(s, 1, nil)
	if sn.Dir.Dist(Vec2{Y: -1}) > 1e-12 {
		t.Fatalf("seq not reset on rejoin, dir %v", sn.Dir)
	}
}

func TestInputsRateLimitedPerPlayerPerTick(t *testing.T) {
	s := newTestSim(t, func(c *Config) { c.MaxInputsPerTick = 2 })
	a := joinAndSpawn(t, s, "r", 1)
	b := joinAndSpawn(t, s, "r", 2)

	s.Submit(Steer{Player: 1, Dir: Vec2{Y: 1}})
	s.Submit(Steer{Player: 1, Dir: Vec2{Y: -1}})
	s.Submit(Steer{Player: 1, Dir: Vec2{X: -1}})
	s.Submit(Steer{Player: 2, Dir: Vec2{X: -1}})
	// 生命周期指令不计入限流
	s.Submit(Join{Room: "r", Player: 1, Name: "renamed"})
	run(s, 1, nil)

	if a.Dir.Dist(Vec2{Y: -1}) > 1e-12 {
		t.Fatalf("player 1 dir = %v, want the last accepted input", a.Dir)
	}
	if b.Dir.Dist(Vec2{X: -1}) > 1e-12 {
		t.Fatalf("other players are not limited, dir %v", b.Dir)
	}
	if s.metrics.RateLimited != 1 {
		t.Fatalf("rate limited = %d, want 1", s.metrics.RateLimited)
	}

	// 计数每个 Tick 重置
	s.Submit(Steer{Player: 1, Dir: Vec2{X: -1}})
	run(s, 1, nil)
	if a.Dir.Dist(Vec2{X: -1}) > 1e-12 {
		t.Fatalf("limit carried into the next tick, dir %v", a.Dir)
	}
}

func TestUnknownPlayerIsNoop(t *testing.T) {
	s := newTestSim(t)
	s.Submit(Steer{Player: 99, Dir: Vec2{X: 1}})
	s.Submit(Spawn{Player: 99})
	s.Submit(Eat{Player: 99, Food: 1})
	s.Submit(Kill{Player: 99, Victim: 1})
	s.Submit(Leave{Player: 99})
	s.Submit(Disconnect{Player: 99})
	s.Submit(Join{Room: "r", Player: -4})
	run(s, 1, nil)
	if got := s.metrics.CommandsIgnored; got != 7 {
		t.Fatalf("ignored = %d, want 7", got)
	}
	if rooms, _, _ := s.store.Counts(); rooms != 0 {
		t.Fatalf("bot id must not join as a human")
	}
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	s := newTestSim(t, func(c *Config) { c.CommandQueue = 2 })
	for i := 0; i < 3; i++ {
		s.Submit(Steer{Player: 1})
	}
	if s.metrics.CommandsAccepted != 2 || s.metrics.CommandsDropped != 1 {
		t.Fatalf("accepted=%d dropped=%d", s.metrics.CommandsAccepted, s.metrics.CommandsDropped)
	}
}

func TestSpawnWhileAliveReturnsSameSnake(t *testing.T) {
	s := newTestSim(t)
	sn := joinAndSpawn(t, s, "r", 1)
	reply := make(chan SpawnResult, 1)
	s.Submit(Spawn{Player: 1, Reply: reply})
	run(s, 1, nil)
	if res := <-reply; res.Snake != sn.ID {
		t.Fatalf("respawn while alive created snake %d", res.Snake)
	}
}

func TestRespawnAfterDeathReplacesSnake(t *testing.T) {
	s := newTestSim(t)
	sn := joinAndSpawn(t, s, "r", 1)
	s.kill(sn, CauseWall, nil)
	skin := "tiger"
	reply := make(chan SpawnResult, 1)
	s.Submit(Spawn{Player: 1, Skin: &skin, Reply: reply})
	run(s, 1, nil)
	res := <-reply
	if res.Snake == sn.ID {
		t.Fatalf("dead snake reused for a human")
	}
	if _, ok := s.store.Snake(sn.ID); ok {
		t.Fatalf("old dead snake should be removed")
	}
	next, _ := s.store.Snake(res.Snake)
	if next.Skin == nil || *next.Skin != "tiger" {
		t.Fatalf("skin not applied")
	}
}

func TestEatHintNeedsServerGeometry(t *testing.T) {
	s := newTestSim(t, func(c *Config) { c.Snake.BaseSpeed = 0.0001 })
	sn := joinAndSpawn(t, s, "r", 1)
	near := s.store.AddFood(Food{Room: "r", Pos: sn.Pos.Add(Vec2{X: 30}), Value: 4, SpawnedAt: s.now})
	far := s.store.AddFood(Food{Room: "r", Pos: sn.Pos.Add(Vec2{X: 200}), Value: 4, SpawnedAt: s.now})

	s.Submit(Eat{Player: 1, Food: far.ID})
	s.Submit(Eat{Player: 1, Food: near.ID})
	s.Submit(Eat{Player: 1, Food: near.ID})
	run(s, 1, nil)

	if sn.Score != 4 {
		t.Fatalf("score = %d, want 4 (one accepted hint)", sn.Score)
	}
	if _, ok := s.store.Food(far.ID); !ok {
		t.Fatalf("far food must not be eaten on a client claim")
	}
}

func TestKillHintUsesCollisionRules(t *testing.T) {
	s := newTestSim(t, func(c *Config) { c.Snake.BaseSpeed = 0.0001 })
	me := joinAndSpawn(t, s, "r", 1)
	me.SpawnedAt = s.now.Add(-time.Hour)
	r, _ := s.store.Room("r")
	r.CreatedAt = s.now.Add(-time.Hour)
	me.Length = 20

	// 关于中心的镜像点，离自己至少两倍出生环内径
	far := placeSnake(s, "r", 2, Vec2{X: 3000 - me.Pos.X, Y: 3000 - me.Pos.Y}, 5)
	s.Submit(Kill{Player: 1, Victim: far.ID})
	run(s, 1, nil)
	if !far.Alive {
		t.Fatalf("kill claim without contact must be rejected")
	}

	near := placeSnake(s, "r", 3, me.Pos.Add(Vec2{X: 4}), 5)
	s.Submit(Kill{Player: 1, Victim: near.ID})
	run(s, 1, nil)
	if near.Alive || me.Kills != 1 {
		t.Fatalf("confirmed kill not applied: alive=%v kills=%d", near.Alive, me.Kills)
	}

	// 同一接触在冷却期内不会被再次结算
	near.Alive = true
	s.Submit(Kill{Player: 1, Victim: near.ID})
	run(s, 1, nil)
	if !near.Alive || me.Kills != 1 {
		t.Fatalf("kill resolved twice within cooldown")
	}
}

func TestTuneAppliesOnTick(t *testing.T) {
	s := newTestSim(t)
	s.Submit(Tune{Apply: func(c *Config) { c.Bots.Target = 7; c.Snake.BaseSpeed = -1 }})
	if s.CurrentConfig().Bots.Target != 0 {
		t.Fatalf("config changed outside the tick")
	}
	run(s, 1, nil)
	got := s.CurrentConfig()
	if got.Bots.Target != 7 {
		t.Fatalf("target = %d, want 7", got.Bots.Target)
	}
	if got.Snake.BaseSpeed != DefaultConfig().Snake.BaseSpeed {
		t.Fatalf("invalid speed not normalised: %v", got.Snake.BaseSpeed)
	}
}
