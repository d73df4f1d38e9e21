package game

import "math"

func angleVec(a float64) Vec2 {
	return Vec2{X: math.Cos(a), Y: math.Sin(a)}
}

// safeSpawnPoint 在中心圆环上随机采样，找离所有存活蛇头和墙都足够远的点；
// 尝试次数用尽后退回到中心附近的小范围抖动
func (s *Sim) safeSpawnPoint(rid RoomID) Vec2 {
	c := s.cfg.Spawn
	center := s.cfg.Center()
	alive := s.store.AliveIn(rid)
	for i := 0; i < c.Attempts; i++ {
		r := c.RingMin + s.rng.Float64()*(c.RingMax-c.RingMin)
		p := center.Add(angleVec(s.rng.Float64() * 2 * math.Pi).Scale(r))
		if !s.clearOfWalls(p, c.WallBuffer) {
			continue
		}
		if tooCloseToHeads(p, alive, c.SafeRadius) {
			continue
		}
		return p
	}
	return center.Add(Vec2{
		X: (s.rng.Float64()*2 - 1) * c.Jitter,
		Y: (s.rng.Float64()*2 - 1) * c.Jitter,
	})
}

func (s *Sim) clearOfWalls(p Vec2, buffer float64) bool {
	return p.X > buffer && p.Y > buffer &&
		p.X < s.cfg.Arena.Width-buffer && p.Y < s.cfg.Arena.Height-buffer
}

func tooCloseToHeads(p Vec2, alive []*Snake, radius float64) bool {
	r2 := radius * radius
	for _, o := range alive {
		if o.Pos.DistSq(p) <= r2 {
			return true
		}
	}
	return false
}

// resetSnake 新生成或复用：清空计分与轨迹，放到安全位置并给随机朝向
func (s *Sim) resetSnake(sn *Snake) {
	sn.Alive = false // 自身不参与安全距离判断
	sn.Pos = s.safeSpawnPoint(sn.Room)
	sn.Dir = s.randomUnit()
	sn.lastInputDir = sn.Dir
	sn.Length = s.cfg.Snake.InitialLength
	sn.Segments = []Vec2{sn.Pos}
	sn.Score = 0
	sn.Kills = 0
	sn.Boosting = false
	sn.FoodProgress = 0
	sn.SpawnedAt = s.now
	sn.DiedAt = nil
	sn.Cause = CauseNone
	sn.Alive = true
}

// randomSkin 从外观目录随机挑选；目录为空时没有外观
func (s *Sim) randomSkin() *string {
	if len(s.skins) == 0 {
		return nil
	}
	skin := s.skins[s.rng.Intn(len(s.skins))]
	return &skin
}
