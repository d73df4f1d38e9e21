package game

// Command 入站指令，只在 Tick 开始时由 Tick 线程执行
type Command interface {
	apply(s *Sim)
}

// Join 玩家加入房间（首次加入时创建房间）
type Join struct {
	Room   RoomID
	Player PlayerID
	Key    string // 持久化使用的账户键
	Name   string
}

// Leave 玩家离开房间：当前蛇以 disconnect 死亡并移除
type Leave struct {
	Player PlayerID
}

// Disconnect 连接断开，语义同 Leave
type Disconnect struct {
	Player PlayerID
}

// Spawn 为玩家生成一条蛇；Reply 为可选的带缓冲回执通道
type Spawn struct {
	Player PlayerID
	Skin   *string
	Reply  chan<- SpawnResult
}

// Steer 方向与加速意图；零向量或非法向量保留原方向。
// Seq 为客户端序列号，0 表示不带序号；不大于已处理序号的输入被忽略
type Steer struct {
	Player PlayerID
	Dir    Vec2
	Boost  bool
	Seq    int64
}

// Eat 客户端上报的进食，仅在服务端几何校验通过时生效
type Eat struct {
	Player PlayerID
	Food   FoodID
}

// Kill 客户端上报的击杀，按服务端碰撞规则立即判定这一对
type Kill struct {
	Player PlayerID
	Victim SnakeID
}

// Tune 管理接口的热更新，在 Tick 线程修改配置
type Tune struct {
	Apply func(*Config)
}

func (c Join) apply(s *Sim) {
	if c.Player <= 0 || c.Room == "" {
		s.ignore("join", c.Player)
		return
	}
	if p, ok := s.players[c.Player]; ok {
		if p.room == c.Room {
			// 重连后客户端序号从头开始
			p.name = c.Name
			p.lastSeq = 0
			return
		}
		s.leave(p)
	}
	r, created := s.store.EnsureRoom(c.Room, s.now)
	if created {
		s.log.Infow("room created", "room", c.Room)
	}
	r.Players[c.Player] = struct{}{}
	r.LastActive = s.now
	s.players[c.Player] = &player{id: c.Player, key: c.Key, name: c.Name, room: c.Room}
	s.log.Infow("player joined", "room", c.Room, "player", c.Player, "name", c.Name)
}

func (c Leave) apply(s *Sim) {
	p, ok := s.players[c.Player]
	if !ok {
		s.ignore("leave", c.Player)
		return
	}
	s.leave(p)
}

func (c Disconnect) apply(s *Sim) {
	p, ok := s.players[c.Player]
	if !ok {
		s.ignore("disconnect", c.Player)
		return
	}
	s.leave(p)
}

func (c Spawn) apply(s *Sim) {
	p, ok := s.players[c.Player]
	if !ok {
		s.ignore("spawn", c.Player)
		reply(c.Reply, SpawnResult{})
		return
	}
	if sn := s.snakeOf(p); sn != nil {
		if sn.Alive {
			reply(c.Reply, SpawnResult{Snake: sn.ID, OK: true})
			return
		}
		s.removeSnake(sn)
	}
	sn := s.store.NewSnake(p.room, p.id)
	if sn == nil {
		reply(c.Reply, SpawnResult{})
		return
	}
	if c.Skin != nil {
		skin := *c.Skin
		sn.Skin = &skin
	}
	s.resetSnake(sn)
	p.snake = sn.ID
	if r, ok := s.store.Room(p.room); ok {
		r.LastActive = s.now
	}
	reply(c.Reply, SpawnResult{Snake: sn.ID, OK: true})
	s.log.Infow("snake spawned", "room", p.room, "player", p.id, "snake", sn.ID)
}

func (c Steer) apply(s *Sim) {
	sn := s.aliveSnakeOf(c.Player)
	if sn == nil {
		s.ignore("steer", c.Player)
		return
	}
	if p := s.players[c.Player]; c.Seq > 0 {
		if c.Seq <= p.lastSeq {
			s.metrics.IncOldSeqIgnored()
			return
		}
		p.lastSeq = c.Seq
	}
	if d, ok := c.Dir.Normalize(); ok {
		sn.Dir = d
		sn.lastInputDir = d
	}
	sn.Boosting = c.Boost
}

func (c Eat) apply(s *Sim) {
	sn := s.aliveSnakeOf(c.Player)
	if sn == nil {
		s.ignore("eat", c.Player)
		return
	}
	f, ok := s.store.Food(c.Food)
	if !ok || f.Room != sn.Room {
		return
	}
	limit := s.cfg.Collide.EatRadius * s.cfg.Collide.ClientHintSlack
	if sn.Pos.DistSq(f.Pos) > limit*limit {
		s.log.Debugw("eat hint rejected", "snake", sn.ID, "food", f.ID)
		return
	}
	s.consume(sn, f)
}

func (c Kill) apply(s *Sim) {
	sn := s.aliveSnakeOf(c.Player)
	if sn == nil {
		s.ignore("kill", c.Player)
		return
	}
	victim, ok := s.store.Snake(c.Victim)
	if !ok || victim.Room != sn.Room {
		return
	}
	if !s.resolvePair(sn, victim) {
		s.log.Debugw("kill hint not confirmed", "snake", sn.ID, "victim", c.Victim)
	}
}

func (c Tune) apply(s *Sim) {
	if c.Apply == nil {
		return
	}
	c.Apply(&s.cfg)
	s.cfg.Normalize()
	s.publishConfig()
	s.log.Infow("config updated", "bots_target", s.cfg.Bots.Target, "base_speed", s.cfg.Snake.BaseSpeed)
}

// leave 移除玩家：活蛇按 disconnect 处理，房间无人时销毁
func (s *Sim) leave(p *player) {
	if sn := s.snakeOf(p); sn != nil {
		s.kill(sn, CauseDisconnect, nil)
		s.removeSnake(sn)
	}
	delete(s.players, p.id)
	r, ok := s.store.Room(p.room)
	if !ok {
		return
	}
	delete(r.Players, p.id)
	r.LastActive = s.now
	s.log.Infow("player left", "room", p.room, "player", p.id)
	if len(r.Players) == 0 {
		s.closeRoom(r.ID)
	}
}

// inputOf 客户端高频输入（受每 Tick 限流约束）所属的玩家
func inputOf(cmd Command) (PlayerID, bool) {
	switch c := cmd.(type) {
	case Steer:
		return c.Player, true
	case Eat:
		return c.Player, true
	case Kill:
		return c.Player, true
	}
	return 0, false
}

func (s *Sim) ignore(kind string, id PlayerID) {
	s.metrics.IncIgnored()
	s.log.Debugw("command ignored", "kind", kind, "player", id)
}

func reply(ch chan<- SpawnResult, res SpawnResult) {
	if ch == nil {
		return
	}
	select {
	case ch <- res:
	default:
	}
}
