package game

import (
	"math"
	"sort"
)

// foodColors 食物显示颜色
var foodColors = []string{
	"#e74c3c", "#3498db", "#2ecc71", "#f39c12", "#9b59b6",
	"#1abc9c", "#e67e22", "#e91e63", "#00bcd4", "#8bc34a",
	"#ff5722", "#ffeb3b",
}

// maintainFood 周期生成 → 死亡食物过期 → 容量裁剪
func (s *Sim) maintainFood() {
	for _, rid := range s.store.RoomIDs() {
		s.spawnPeriodic(rid)
		s.expireDeathFood(rid)
		s.trimFood(rid)
	}
}

func (s *Sim) spawnPeriodic(rid RoomID) {
	if !s.cfg.Food.Periodic {
		return
	}
	if last, ok := s.lastFoodSpawn[rid]; ok && s.now.Sub(last) < s.cfg.Food.SpawnEvery {
		return
	}
	s.lastFoodSpawn[rid] = s.now
	r, ok := s.store.Room(rid)
	if !ok || len(r.Food) >= s.cfg.Food.RoomCap {
		return
	}
	if len(s.store.AliveIn(rid)) == 0 {
		return
	}
	c := s.cfg.Food
	// 一批不超过剩余容量
	n := min(c.Batch, c.RoomCap-len(r.Food))
	for i := 0; i < n; i++ {
		s.store.AddFood(Food{
			Room:      rid,
			Pos:       s.randomInArena(c.WallMargin),
			Value:     c.ValueMin + s.rng.Intn(c.ValueMax-c.ValueMin+1),
			Size:      c.SizeMin + s.rng.Float64()*(c.SizeMax-c.SizeMin),
			Color:     foodColors[s.rng.Intn(len(foodColors))],
			SpawnedAt: s.now,
		})
	}
}

// consume 移除食物、加分；每累计 ProgressPerLen 个食物长度 +1
func (s *Sim) consume(sn *Snake, f *Food) {
	s.store.RemoveFood(f.ID)
	if f.Value > 0 {
		sn.Score += f.Value
	}
	sn.FoodProgress++
	if sn.FoodProgress >= s.cfg.Food.ProgressPerLen {
		sn.Length++
		sn.FoodProgress = 0
	}
	s.metrics.IncFoodEaten()
}

// spawnDeathFood 头部一颗，加上每隔 DeathEvery 个段一颗；位置向内收缩以保证可达
func (s *Sim) spawnDeathFood(sn *Snake) {
	c := s.cfg.Food
	points := make([]Vec2, 0, deathFoodCount(len(sn.Segments), c.DeathEvery))
	points = append(points, sn.Pos)
	for i := 0; i < len(sn.Segments); i += c.DeathEvery {
		points = append(points, sn.Segments[i])
	}
	color := foodColors[s.rng.Intn(len(foodColors))]
	for _, p := range points {
		s.store.AddFood(Food{
			Room:      sn.Room,
			Pos:       s.clampInward(p, c.WallMargin),
			Value:     c.DeathValue,
			Size:      c.SizeMax,
			Color:     color,
			FromDeath: true,
			SpawnedAt: s.now,
		})
	}
}

// deathFoodCount 一次死亡掉落的数量：1 + ceil(段数 / DeathEvery)
func deathFoodCount(segments, every int) int {
	return 1 + int(math.Ceil(float64(segments)/float64(every)))
}

func (s *Sim) expireDeathFood(rid RoomID) {
	for _, f := range s.store.FoodIn(rid) {
		if f.FromDeath && s.now.Sub(f.SpawnedAt) >= s.cfg.Food.DeathLifetime {
			s.store.RemoveFood(f.ID)
		}
	}
}

// trimFood 超过硬上限时按生成时间从旧到新裁剪到软上限
func (s *Sim) trimFood(rid RoomID) {
	r, ok := s.store.Room(rid)
	if !ok || len(r.Food) <= s.cfg.Food.HardCap {
		return
	}
	food := s.store.FoodIn(rid)
	sort.SliceStable(food, func(i, j int) bool {
		return food[i].SpawnedAt.Before(food[j].SpawnedAt)
	})
	excess := len(food) - s.cfg.Food.SoftCap
	for _, f := range food[:excess] {
		s.store.RemoveFood(f.ID)
	}
	s.metrics.AddFoodTrimmed(excess)
	s.log.Debugw("food trimmed", "room", rid, "removed", excess)
}

func (s *Sim) randomInArena(margin float64) Vec2 {
	w := s.cfg.Arena.Width - 2*margin
	h := s.cfg.Arena.Height - 2*margin
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Vec2{X: margin + s.rng.Float64()*w, Y: margin + s.rng.Float64()*h}
}

func (s *Sim) clampInward(p Vec2, margin float64) Vec2 {
	return Vec2{
		X: clamp(p.X, margin, s.cfg.Arena.Width-margin),
		Y: clamp(p.Y, margin, s.cfg.Arena.Height-margin),
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
