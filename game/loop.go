package game

import (
	"context"
	"time"
)

// Loop 固定频率驱动 Sim：每 Tick 推进世界，每 BroadcastEvery 个 Tick 广播
type Loop struct {
	sim *Sim
}

func NewLoop(sim *Sim) *Loop {
	return &Loop{sim: sim}
}

// Run 阻塞运行直到 ctx 结束；Tick 内没有任何阻塞步骤
func (l *Loop) Run(ctx context.Context) error {
	s := l.sim
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.log.Infow("simulation loop started", "tick_hz", s.cfg.TickRateHz, "broadcast_hz", s.cfg.BroadcastHz)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("simulation loop stopped", "ticks", s.tick)
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			l.RunTick(now, dt)
		}
	}
}

// RunTick 执行一个完整 Tick；广播放在 Tick 结束之后，读取的是完整状态
func (l *Loop) RunTick(now time.Time, dt float64) {
	s := l.sim
	start := time.Now()
	s.Step(now, dt)
	if s.tick%s.cfg.BroadcastEvery() == 0 {
		s.Broadcast()
	}
	s.metrics.AddTick(time.Since(start).Nanoseconds())
}
