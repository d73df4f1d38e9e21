package game

// defaultDir 方向完全退化时的兜底单位向量
var defaultDir = Vec2{X: 1, Y: 0}

// moveAll 推进所有存活的蛇；越界立即死亡，本 Tick 不再处理
func (s *Sim) moveAll(dt float64) {
	for _, rid := range s.store.RoomIDs() {
		for _, sn := range s.store.AliveIn(rid) {
			s.move(sn, dt)
		}
	}
}

func (s *Sim) move(sn *Snake, dt float64) {
	dir := effectiveDir(sn)
	sn.Dir = dir

	speed := s.cfg.Snake.BaseSpeed
	if sn.Boosting {
		speed *= s.cfg.Snake.BoostMultiplier
	}
	sn.Pos = sn.Pos.Add(dir.Scale(speed * dt))

	if !s.cfg.InBounds(sn.Pos) {
		s.kill(sn, CauseWall, nil)
		return
	}
	s.extendTrail(sn)
}

// effectiveDir 当前方向 → 最近一次输入方向 → 默认方向，保证不为零
func effectiveDir(sn *Snake) Vec2 {
	if d, ok := sn.Dir.Normalize(); ok {
		return d
	}
	if d, ok := sn.lastInputDir.Normalize(); ok {
		return d
	}
	return defaultDir
}

// extendTrail 头部离最近记录点达到间距才记录新段，然后从尾部裁剪到 Length
func (s *Sim) extendTrail(sn *Snake) {
	if sn.Length < 1 {
		sn.Length = 1
	}
	spacing := s.segmentSpacing(sn.Length)
	if len(sn.Segments) == 0 || sn.Pos.DistSq(sn.Segments[0]) >= spacing*spacing {
		sn.Segments = append(sn.Segments, Vec2{})
		copy(sn.Segments[1:], sn.Segments)
		sn.Segments[0] = sn.Pos
	}
	if len(sn.Segments) > sn.Length {
		sn.Segments = sn.Segments[:sn.Length]
	}
}

// segmentSpacing 长度超过阈值后间距增大，奖励部分封顶
func (s *Sim) segmentSpacing(length int) float64 {
	c := s.cfg.Snake
	over := length - c.SpacingThreshold
	if over <= 0 {
		return c.SegmentSpacing
	}
	bonus := float64(over) * c.SpacingPerLength
	if bonus > c.SpacingBonusMax {
		bonus = c.SpacingBonusMax
	}
	return c.SegmentSpacing + bonus
}

// sizeMultiplier 快照中的段尺寸倍率，长度过阈值后小幅增大
func (s *Sim) sizeMultiplier(length int) float64 {
	c := s.cfg.Snake
	over := length - c.SizeThreshold
	if over <= 0 {
		return 1
	}
	bonus := float64(over) * c.SizePerLength
	if bonus > c.SizeBonusMax {
		bonus = c.SizeBonusMax
	}
	return 1 + bonus
}
