package game

import "time"

// pairKey 有序 id 对，a < b
type pairKey struct {
	a, b SnakeID
}

func makePair(x, y SnakeID) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// resolveCollisions 节流执行：先进食，再两两判定蛇与蛇
func (s *Sim) resolveCollisions() {
	s.expireCooldowns()
	for _, rid := range s.store.RoomIDs() {
		alive := s.store.AliveIn(rid)
		s.eatFood(rid, alive)
		for i := 0; i < len(alive); i++ {
			for j := i + 1; j < len(alive); j++ {
				s.resolvePair(alive[i], alive[j])
			}
		}
	}
}

func (s *Sim) eatFood(rid RoomID, alive []*Snake) {
	r2 := s.cfg.Collide.EatRadius * s.cfg.Collide.EatRadius
	food := s.store.FoodIn(rid)
	for _, sn := range alive {
		for _, f := range food {
			if _, ok := s.store.Food(f.ID); !ok {
				continue
			}
			if sn.Pos.DistSq(f.Pos) < r2 {
				s.consume(sn, f)
			}
		}
	}
}

// warmingUp 房间启动保护期内整房间不记录碰撞死亡
func (s *Sim) warmingUp(rid RoomID) bool {
	r, ok := s.store.Room(rid)
	if !ok {
		return true
	}
	return s.now.Sub(r.CreatedAt) < s.cfg.Collide.StartupProtection
}

// spawnProtected 出生保护期只豁免这条蛇自己，不豁免撞上它的对手
func (s *Sim) spawnProtected(sn *Snake) bool {
	return s.now.Sub(sn.SpawnedAt) < s.cfg.Collide.SpawnProtection
}

// resolvePair 判定一对蛇；结算后该 id 对进入冷却，冷却期内不会再次结算
func (s *Sim) resolvePair(a, b *Snake) bool {
	if a.ID == b.ID || !a.Alive || !b.Alive || a.Room != b.Room {
		return false
	}
	if s.warmingUp(a.Room) {
		return false
	}
	key := makePair(a.ID, b.ID)
	if until, ok := s.cooldowns[key]; ok && s.now.Before(until) {
		return false
	}
	victim, killer := s.judge(a, b)
	if victim == nil || s.spawnProtected(victim) {
		return false
	}
	s.kill(victim, CauseCollision, killer)
	s.cooldowns[key] = s.now.Add(s.cfg.Collide.KillCooldown)
	return true
}

// judge 头对头：短者死；仅一方撞上对方身体：撞者死；互相穿入：短者死
func (s *Sim) judge(a, b *Snake) (victim, killer *Snake) {
	hr := s.cfg.Collide.HeadRadius
	if a.Pos.DistSq(b.Pos) < hr*hr {
		return shorter(a, b)
	}
	aHit := s.hitsBody(a.Pos, b)
	bHit := s.hitsBody(b.Pos, a)
	switch {
	case aHit && bHit:
		return shorter(a, b)
	case aHit:
		return a, b
	case bHit:
		return b, a
	}
	return nil, nil
}

func (s *Sim) hitsBody(head Vec2, other *Snake) bool {
	r2 := s.cfg.Collide.Radius * s.cfg.Collide.Radius
	for _, seg := range other.Segments {
		if head.DistSq(seg) < r2 {
			return true
		}
	}
	return false
}

// shorter 长度相同时 id 较小者死亡
func shorter(a, b *Snake) (victim, killer *Snake) {
	switch {
	case a.Length < b.Length:
		return a, b
	case b.Length < a.Length:
		return b, a
	case a.ID < b.ID:
		return a, b
	default:
		return b, a
	}
}

func (s *Sim) expireCooldowns() {
	for k, until := range s.cooldowns {
		if !s.now.Before(until) {
			delete(s.cooldowns, k)
		}
	}
}

// onCooldown 测试与诊断用
func (s *Sim) onCooldown(a, b SnakeID, now time.Time) bool {
	until, ok := s.cooldowns[makePair(a, b)]
	return ok && now.Before(until)
}
