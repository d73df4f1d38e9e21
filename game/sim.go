package game

import (
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Identity 外部玩家身份协作方：解析人类玩家的显示名
type Identity interface {
	DisplayName(id PlayerID) (string, bool)
}

// SessionRecorder 外部持久化协作方：记录一局结束时的分数与击杀
type SessionRecorder interface {
	RecordSession(res SessionResult) error
}

// SessionResult 人类玩家一条蛇的生命周期结算
type SessionResult struct {
	Key       string
	Name      string
	Room      RoomID
	Score     int
	Kills     int
	Cause     DeathCause
	StartedAt time.Time
	EndedAt   time.Time
}

// Deps 构造 Sim 时注入的协作方；零值字段使用安全默认值
type Deps struct {
	Log      *zap.SugaredLogger
	Rand     *rand.Rand
	Metrics  *Metrics
	Identity Identity
	Recorder SessionRecorder
	Skins    []string // 可选外观目录，机器人从中随机挑选
	BotNames []string
}

// player 人类玩家会话（引擎侧），连接映射由传输层维护
type player struct {
	id    PlayerID
	key   string
	name  string
	room  RoomID
	snake SnakeID

	lastSeq int64 // 最近一次生效的 steer 序号
}

// maxStepDt 单 Tick 积分的最大时间步，防止卡顿后一步穿墙
const maxStepDt = 0.25

// Sim 单一的模拟上下文：由循环驱动者独占写入，每个组件都以它为接收者
type Sim struct {
	cfg      Config
	cfgView  atomic.Pointer[Config]
	store    *Store
	rng      *rand.Rand
	log      *zap.SugaredLogger
	metrics  *Metrics
	identity Identity
	recorder SessionRecorder
	skins    []string
	botNames []string

	inbox  chan Command
	out    chan Outbound
	inputs map[PlayerID]int // 本 Tick 每个玩家已处理的输入数

	backlog []Outbound // 出站通道满时暂存的控制消息（死亡、房间销毁）

	tick uint64
	now  time.Time
	dt   float64

	players       map[PlayerID]*player
	brains        map[SnakeID]*BotMemory
	cooldowns     map[pairKey]time.Time
	lastFoodSpawn map[RoomID]time.Time
	lastMaintain  map[RoomID]time.Time
}

// NewSim 创建模拟上下文；每个进程一个，测试中每个用例一个
func NewSim(cfg Config, deps Deps) *Sim {
	cfg.Normalize()
	s := &Sim{
		cfg:           cfg,
		store:         NewStore(),
		rng:           deps.Rand,
		log:           deps.Log,
		metrics:       deps.Metrics,
		identity:      deps.Identity,
		recorder:      deps.Recorder,
		skins:         append([]string(nil), deps.Skins...),
		botNames:      deps.BotNames,
		inbox:         make(chan Command, cfg.CommandQueue),
		out:           make(chan Outbound, cfg.OutboundQueue),
		inputs:        make(map[PlayerID]int),
		players:       make(map[PlayerID]*player),
		brains:        make(map[SnakeID]*BotMemory),
		cooldowns:     make(map[pairKey]time.Time),
		lastFoodSpawn: make(map[RoomID]time.Time),
		lastMaintain:  make(map[RoomID]time.Time),
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	if s.metrics == nil {
		s.metrics = &Metrics{}
	}
	if len(s.botNames) == 0 {
		s.botNames = defaultBotNames
	}
	s.publishConfig()
	return s
}

// Submit 入站指令排队，下一 Tick 开始时生效；队列满时丢弃并返回 false
func (s *Sim) Submit(cmd Command) bool {
	select {
	case s.inbox <- cmd:
		s.metrics.IncAccepted()
		return true
	default:
		s.metrics.IncDropped()
		return false
	}
}

// Out 出站消息通道，由传输层消费
func (s *Sim) Out() <-chan Outbound { return s.out }

func (s *Sim) Metrics() *Metrics { return s.metrics }

// CurrentConfig 供其他 goroutine 读取的配置副本
func (s *Sim) CurrentConfig() Config { return *s.cfgView.Load() }

func (s *Sim) publishConfig() {
	c := s.cfg
	s.cfgView.Store(&c)
}

// Step 推进一个 Tick：指令 → 移动(含撞墙) → 碰撞(节流) → 食物 → 人口 → 机器人决策 → 回收
func (s *Sim) Step(now time.Time, dt float64) {
	s.tick++
	s.now = now
	if dt < 0 {
		dt = 0
	}
	if dt > maxStepDt {
		dt = maxStepDt
	}
	s.dt = dt

	s.flushBacklog()
	s.drainInbox()
	s.moveAll(dt)
	if s.tick%uint64(s.cfg.Collide.EveryTicks) == 0 {
		s.resolveCollisions()
	}
	s.maintainFood()
	s.maintainPopulation()
	s.thinkBots()
	s.reapDead()
}

// drainInbox 非阻塞取空指令队列；同一玩家本 Tick 超出上限的输入被限流
func (s *Sim) drainInbox() {
	clear(s.inputs)
	for {
		select {
		case cmd := <-s.inbox:
			if pid, ok := inputOf(cmd); ok {
				s.inputs[pid]++
				if s.inputs[pid] > s.cfg.MaxInputsPerTick {
					s.metrics.IncRateLimited()
					continue
				}
			}
			cmd.apply(s)
		default:
			return
		}
	}
}

// reapDead 人类的死蛇在宽限期后移除；机器人的死蛇保留等待复用
func (s *Sim) reapDead() {
	grace := s.cfg.Snake.RemovalGrace
	for _, rid := range s.store.RoomIDs() {
		for _, sn := range s.store.SnakesIn(rid) {
			if sn.Alive || sn.IsBot() || sn.DiedAt == nil {
				continue
			}
			if s.now.Sub(*sn.DiedAt) < grace {
				continue
			}
			s.removeSnake(sn)
		}
	}
}

func (s *Sim) removeSnake(sn *Snake) {
	if p, ok := s.players[sn.Player]; ok && p.snake == sn.ID {
		p.snake = 0
	}
	delete(s.brains, sn.ID)
	s.store.RemoveSnake(sn.ID)
}

// kill 进入 Dead 状态；重复调用无效，因此死亡掉落只触发一次
func (s *Sim) kill(sn *Snake, cause DeathCause, killer *Snake) {
	if !sn.Alive {
		return
	}
	sn.Alive = false
	t := s.now
	sn.DiedAt = &t
	sn.Cause = cause
	sn.Boosting = false
	s.metrics.IncDeath(cause)

	var killerID *SnakeID
	if killer != nil && killer.Alive && killer.ID != sn.ID {
		killer.Score += sn.Score
		killer.Kills++
		s.metrics.IncKills()
		id := killer.ID
		killerID = &id
	}

	s.spawnDeathFood(sn)
	delete(s.brains, sn.ID)
	if !sn.IsBot() {
		s.recordSession(sn)
	}

	s.emit(DeathMsg{
		Room:   sn.Room,
		Snake:  sn.ID,
		Player: sn.Player,
		Cause:  cause,
		Killer: killerID,
		Score:  sn.Score,
		Kills:  sn.Kills,
	})
	if killerID != nil {
		s.log.Infow("snake killed", "room", sn.Room, "snake", sn.ID, "killer", *killerID, "score", sn.Score)
	} else {
		s.log.Infow("snake died", "room", sn.Room, "snake", sn.ID, "cause", cause.String(), "score", sn.Score)
	}
}

// recordSession 持久化失败只记日志，状态迁移照常进行
func (s *Sim) recordSession(sn *Snake) {
	if s.recorder == nil {
		return
	}
	res := SessionResult{
		Room:      sn.Room,
		Score:     sn.Score,
		Kills:     sn.Kills,
		Cause:     sn.Cause,
		StartedAt: sn.SpawnedAt,
		EndedAt:   s.now,
	}
	if p, ok := s.players[sn.Player]; ok {
		res.Key = p.key
		res.Name = p.name
	}
	if err := s.recorder.RecordSession(res); err != nil {
		s.log.Warnw("record session failed", "player", sn.Player, "err", err)
	}
}

func (s *Sim) snakeOf(p *player) *Snake {
	if p == nil || p.snake == 0 {
		return nil
	}
	sn, ok := s.store.Snake(p.snake)
	if !ok {
		return nil
	}
	return sn
}

// aliveSnakeOf 玩家当前存活的蛇；未知玩家或已死亡返回 nil
func (s *Sim) aliveSnakeOf(id PlayerID) *Snake {
	sn := s.snakeOf(s.players[id])
	if sn == nil || !sn.Alive {
		return nil
	}
	return sn
}

// closeRoom 房间销毁：丢弃其中的机器人状态与定时记录
func (s *Sim) closeRoom(rid RoomID) {
	for _, sn := range s.store.SnakesIn(rid) {
		delete(s.brains, sn.ID)
	}
	for k := range s.cooldowns {
		if sn, ok := s.store.Snake(k.a); ok && sn.Room == rid {
			delete(s.cooldowns, k)
		}
	}
	delete(s.lastFoodSpawn, rid)
	delete(s.lastMaintain, rid)
	s.store.RemoveRoom(rid)
	s.emit(RoomClosedMsg{Room: rid})
	s.log.Infow("room closed", "room", rid)
}

func (s *Sim) randomUnit() Vec2 {
	return angleVec(s.rng.Float64() * 2 * math.Pi)
}
