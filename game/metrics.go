package game

import (
	"sync/atomic"
)

// Metrics 记录引擎运行期的关键指标；Tick 线程写，HTTP 线程读
type Metrics struct {
	TickCount        int64 // 统计的 Tick 次数
	TotalTickNs      int64 // Tick 累计耗时（纳秒）
	CommandsAccepted int64 // 入队成功的指令数
	CommandsDropped  int64 // 因队列满被丢弃的指令数
	CommandsIgnored  int64 // 未知会话/蛇 id 的指令数
	RateLimited      int64 // 因同帧限流被拒绝的输入数
	OldSeqIgnored    int64 // 因旧序列被忽略的输入数
	OutboundDropped  int64 // 因出站通道满被丢弃的消息数
	OutboundDeferred int64 // 通道满时暂存、下一 Tick 重发的控制消息数
	WallDeaths       int64
	CollisionDeaths  int64
	DisconnectDeaths int64
	Kills            int64
	FoodEaten        int64
	FoodTrimmed      int64
	BotsCreated      int64
	BotsRecycled     int64
}

func (m *Metrics) IncAccepted()         { atomic.AddInt64(&m.CommandsAccepted, 1) }
func (m *Metrics) IncDropped()          { atomic.AddInt64(&m.CommandsDropped, 1) }
func (m *Metrics) IncIgnored()          { atomic.AddInt64(&m.CommandsIgnored, 1) }
func (m *Metrics) IncRateLimited()      { atomic.AddInt64(&m.RateLimited, 1) }
func (m *Metrics) IncOldSeqIgnored()    { atomic.AddInt64(&m.OldSeqIgnored, 1) }
func (m *Metrics) IncOutboundDropped()  { atomic.AddInt64(&m.OutboundDropped, 1) }
func (m *Metrics) IncOutboundDeferred() { atomic.AddInt64(&m.OutboundDeferred, 1) }
func (m *Metrics) IncKills()            { atomic.AddInt64(&m.Kills, 1) }
func (m *Metrics) IncFoodEaten()        { atomic.AddInt64(&m.FoodEaten, 1) }
func (m *Metrics) AddFoodTrimmed(n int) { atomic.AddInt64(&m.FoodTrimmed, int64(n)) }
func (m *Metrics) IncBotsCreated()      { atomic.AddInt64(&m.BotsCreated, 1) }
func (m *Metrics) IncBotsRecycled()     { atomic.AddInt64(&m.BotsRecycled, 1) }

func (m *Metrics) IncDeath(c DeathCause) {
	switch c {
	case CauseWall:
		atomic.AddInt64(&m.WallDeaths, 1)
	case CauseCollision:
		atomic.AddInt64(&m.CollisionDeaths, 1)
	case CauseDisconnect:
		atomic.AddInt64(&m.DisconnectDeaths, 1)
	}
}

func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":        tick,
		"avg_tick_ms":       avgMs,
		"commands_accepted": atomic.LoadInt64(&m.CommandsAccepted),
		"commands_dropped":  atomic.LoadInt64(&m.CommandsDropped),
		"commands_ignored":  atomic.LoadInt64(&m.CommandsIgnored),
		"rate_limited":      atomic.LoadInt64(&m.RateLimited),
		"old_seq_ignored":   atomic.LoadInt64(&m.OldSeqIgnored),
		"outbound_dropped":  atomic.LoadInt64(&m.OutboundDropped),
		"outbound_deferred": atomic.LoadInt64(&m.OutboundDeferred),
		"deaths_wall":       atomic.LoadInt64(&m.WallDeaths),
		"deaths_collision":  atomic.LoadInt64(&m.CollisionDeaths),
		"deaths_disconnect": atomic.LoadInt64(&m.DisconnectDeaths),
		"kills":             atomic.LoadInt64(&m.Kills),
		"food_eaten":        atomic.LoadInt64(&m.FoodEaten),
		"food_trimmed":      atomic.LoadInt64(&m.FoodTrimmed),
		"bots_created":      atomic.LoadInt64(&m.BotsCreated),
		"bots_recycled":     atomic.LoadInt64(&m.BotsRecycled),
	}
}
