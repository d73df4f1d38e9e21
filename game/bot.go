package game

// 机器人是连续转向控制器：看见的食物 > 记忆中的食物 > 探索目标，严格按此优先级取目标

// thinkBots 为下一 Tick 产出每个存活机器人的方向与加速
func (s *Sim) thinkBots() {
	for _, rid := range s.store.RoomIDs() {
		var food []*Food
		for _, sn := range s.store.AliveIn(rid) {
			if !sn.IsBot() {
				continue
			}
			if food == nil {
				food = s.store.FoodIn(rid)
			}
			s.steerBot(sn, s.memoryFor(sn), food)
		}
	}
}

func (s *Sim) memoryFor(sn *Snake) *BotMemory {
	mem, ok := s.brains[sn.ID]
	if !ok {
		mem = s.newMemory()
		s.brains[sn.ID] = mem
	}
	return mem
}

// steerBot 感知 → 回忆 → 探索 → 合成方向 → 平滑转向 → 加速决策
func (s *Sim) steerBot(sn *Snake, mem *BotMemory, food []*Food) {
	c := s.cfg.Bots
	dt := s.now.Sub(mem.LastTick).Seconds()
	if dt <= 0 || dt > maxStepDt {
		dt = s.dt
		if dt <= 0 {
			dt = 1 / float64(s.cfg.TickRateHz)
		}
	}
	mem.LastTick = s.now

	visible := nearestFood(sn.Pos, food, c.VisionRadius)
	switch {
	case visible != nil:
		p := visible.Pos
		mem.LastFood = &p
		mem.LastFoodSeen = s.now
	case mem.LastFood != nil:
		expired := s.now.Sub(mem.LastFoodSeen) > c.MemoryDuration
		reached := sn.Pos.DistSq(*mem.LastFood) < s.cfg.Collide.EatRadius*s.cfg.Collide.EatRadius
		if expired || reached {
			mem.LastFood = nil
		}
	}

	var target Vec2
	var weight float64
	switch {
	case visible != nil:
		target = unit(visible.Pos.Sub(sn.Pos))
		weight = c.WeightVisible
	case mem.LastFood != nil:
		target = unit(mem.LastFood.Sub(sn.Pos)).Add(s.noise(c.NoiseRemembered))
		weight = c.WeightRemembered
	default:
		s.refreshExplore(sn, mem)
		target = unit(mem.Explore.Sub(sn.Pos)).Add(s.noise(c.NoiseExplore))
		weight = c.WeightExplore
	}

	if s.now.Sub(mem.LastWanderAt) >= c.WanderEvery {
		mem.LastWanderAt = s.now
		if s.rng.Float64() < c.WanderChance {
			mem.Wander = s.randomUnit()
		}
	}

	desired, ok := unit(target).Scale(weight).Add(mem.Wander.Scale(1 - weight)).Normalize()
	if !ok {
		desired = effectiveDir(sn)
	}
	sn.Dir = turnToward(effectiveDir(sn), desired, clamp(c.TurnRate*dt, 0, 1))
	sn.lastInputDir = sn.Dir

	chance := c.BoostChanceIdle
	if visible != nil {
		chance = c.BoostChanceSeen
	}
	sn.Boosting = s.rng.Float64() < chance
}

// refreshExplore 目标过期、到达或不存在时在场内随机挑一个新探索点
func (s *Sim) refreshExplore(sn *Snake, mem *BotMemory) {
	c := s.cfg.Bots
	if mem.Explore != nil &&
		s.now.Sub(mem.ExploreSince) < c.ExploreDuration &&
		sn.Pos.DistSq(*mem.Explore) >= s.cfg.Collide.EatRadius*s.cfg.Collide.EatRadius {
		return
	}
	p := s.randomInArena(c.ExploreMargin)
	mem.Explore = &p
	mem.ExploreSince = s.now
}

// turnToward 按比例 t 从 cur 插值到 want 并重新归一化；正好反向时转 90 度
func turnToward(cur, want Vec2, t float64) Vec2 {
	next, ok := cur.Add(want.Sub(cur).Scale(t)).Normalize()
	if ok {
		return next
	}
	if perp, ok := (Vec2{X: -cur.Y, Y: cur.X}).Normalize(); ok {
		return perp
	}
	return defaultDir
}

func nearestFood(pos Vec2, food []*Food, radius float64) *Food {
	var best *Food
	bestD := radius * radius
	for _, f := range food {
		if d := pos.DistSq(f.Pos); d <= bestD {
			best, bestD = f, d
		}
	}
	return best
}

func (s *Sim) noise(amount float64) Vec2 {
	if amount <= 0 {
		return Vec2{}
	}
	return Vec2{
		X: (s.rng.Float64()*2 - 1) * amount,
		Y: (s.rng.Float64()*2 - 1) * amount,
	}
}

func unit(v Vec2) Vec2 {
	n, _ := v.Normalize()
	return n
}
