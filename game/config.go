package game

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 引擎调参；从 YAML 文件覆盖到默认值之上
type Config struct {
	TickRateHz    int `yaml:"tick_rate_hz"`
	BroadcastHz   int `yaml:"broadcast_hz"`
	CommandQueue  int `yaml:"command_queue"`
	OutboundQueue int `yaml:"outbound_queue"`

	// 每个玩家每 Tick 最多处理的输入（steer/eat/kill），超出部分丢弃
	MaxInputsPerTick int `yaml:"max_inputs_per_tick"`

	Arena   ArenaConfig   `yaml:"arena"`
	Snake   SnakeConfig   `yaml:"snake"`
	Collide CollideConfig `yaml:"collision"`
	Food    FoodConfig    `yaml:"food"`
	Bots    BotConfig     `yaml:"bots"`
	Spawn   SpawnConfig   `yaml:"spawn"`
}

type ArenaConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type SnakeConfig struct {
	BaseSpeed       float64       `yaml:"base_speed"`
	BoostMultiplier float64       `yaml:"boost_multiplier"`
	InitialLength   int           `yaml:"initial_length"`
	RemovalGrace    time.Duration `yaml:"removal_grace"`

	// 段间距：长度超过阈值后逐步增大，封顶 SpacingBonusMax
	SegmentSpacing   float64 `yaml:"segment_spacing"`
	SpacingThreshold int     `yaml:"spacing_threshold"`
	SpacingPerLength float64 `yaml:"spacing_per_length"`
	SpacingBonusMax  float64 `yaml:"spacing_bonus_max"`

	// 快照中的段尺寸倍率
	SizeThreshold int     `yaml:"size_threshold"`
	SizePerLength float64 `yaml:"size_per_length"`
	SizeBonusMax  float64 `yaml:"size_bonus_max"`
}

type CollideConfig struct {
	EveryTicks        int           `yaml:"every_ticks"`
	Radius            float64       `yaml:"radius"`
	HeadRadius        float64       `yaml:"head_radius"`
	EatRadius         float64       `yaml:"eat_radius"`
	ClientHintSlack   float64       `yaml:"client_hint_slack"`
	SpawnProtection   time.Duration `yaml:"spawn_protection"`
	StartupProtection time.Duration `yaml:"startup_protection"`
	KillCooldown      time.Duration `yaml:"kill_cooldown"`
}

type FoodConfig struct {
	Periodic       bool          `yaml:"periodic"` // 关闭后只保留死亡食物
	SpawnEvery     time.Duration `yaml:"spawn_every"`
	Batch          int           `yaml:"batch"`
	RoomCap        int           `yaml:"room_cap"`
	HardCap        int           `yaml:"hard_cap"`
	SoftCap        int           `yaml:"soft_cap"`
	ValueMin       int           `yaml:"value_min"`
	ValueMax       int           `yaml:"value_max"`
	SizeMin        float64       `yaml:"size_min"`
	SizeMax        float64       `yaml:"size_max"`
	DeathValue     int           `yaml:"death_value"`
	DeathEvery     int           `yaml:"death_every"`
	DeathLifetime  time.Duration `yaml:"death_lifetime"`
	WallMargin     float64       `yaml:"wall_margin"`
	ProgressPerLen int           `yaml:"progress_per_length"`
}

type BotConfig struct {
	Target           int           `yaml:"target"`
	MaintainEvery    time.Duration `yaml:"maintain_every"`
	RespawnDelay     time.Duration `yaml:"respawn_delay"`
	VisionRadius     float64       `yaml:"vision_radius"`
	MemoryDuration   time.Duration `yaml:"memory_duration"`
	ExploreDuration  time.Duration `yaml:"explore_duration"`
	ExploreMargin    float64       `yaml:"explore_margin"`
	WanderEvery      time.Duration `yaml:"wander_every"`
	WanderChance     float64       `yaml:"wander_chance"`
	NoiseRemembered  float64       `yaml:"noise_remembered"`
	NoiseExplore     float64       `yaml:"noise_explore"`
	WeightVisible    float64       `yaml:"weight_visible"`
	WeightRemembered float64       `yaml:"weight_remembered"`
	WeightExplore    float64       `yaml:"weight_explore"`
	TurnRate         float64       `yaml:"turn_rate"`
	BoostChanceSeen  float64       `yaml:"boost_chance_seen"`
	BoostChanceIdle  float64       `yaml:"boost_chance_idle"`
}

type SpawnConfig struct {
	RingMin    float64 `yaml:"ring_min"`
	RingMax    float64 `yaml:"ring_max"`
	SafeRadius float64 `yaml:"safe_radius"`
	WallBuffer float64 `yaml:"wall_buffer"`
	Attempts   int     `yaml:"attempts"`
	Jitter     float64 `yaml:"jitter"`
}

// DefaultConfig 参考值：120 Hz 模拟，20 Hz 广播
func DefaultConfig() Config {
	return Config{
		TickRateHz:       120,
		BroadcastHz:      20,
		CommandQueue:     1024,
		OutboundQueue:    256,
		MaxInputsPerTick: 4,
		Arena:            ArenaConfig{Width: 3000, Height: 3000},
		Snake: SnakeConfig{
			BaseSpeed:        180,
			BoostMultiplier:  1.8,
			InitialLength:    10,
			RemovalGrace:     3 * time.Second,
			SegmentSpacing:   6,
			SpacingThreshold: 30,
			SpacingPerLength: 0.05,
			SpacingBonusMax:  4,
			SizeThreshold:    20,
			SizePerLength:    0.01,
			SizeBonusMax:     0.6,
		},
		Collide: CollideConfig{
			EveryTicks:        10,
			Radius:            12,
			HeadRadius:        9,
			EatRadius:         22,
			ClientHintSlack:   1.5,
			SpawnProtection:   2 * time.Second,
			StartupProtection: 3 * time.Second,
			KillCooldown:      time.Second,
		},
		Food: FoodConfig{
			Periodic:       true,
			SpawnEvery:     time.Second,
			Batch:          5,
			RoomCap:        200,
			HardCap:        400,
			SoftCap:        300,
			ValueMin:       1,
			ValueMax:       3,
			SizeMin:        0.8,
			SizeMax:        1.4,
			DeathValue:     5,
			DeathEvery:     3,
			DeathLifetime:  10 * time.Second,
			WallMargin:     20,
			ProgressPerLen: 3,
		},
		Bots: BotConfig{
			Target:           18,
			MaintainEvery:    time.Second,
			RespawnDelay:     5 * time.Second,
			VisionRadius:     350,
			MemoryDuration:   3 * time.Second,
			ExploreDuration:  4 * time.Second,
			ExploreMargin:    150,
			WanderEvery:      2 * time.Second,
			WanderChance:     0.5,
			NoiseRemembered:  0.2,
			NoiseExplore:     0.35,
			WeightVisible:    0.9,
			WeightRemembered: 0.75,
			WeightExplore:    0.6,
			TurnRate:         5,
			BoostChanceSeen:  0.15,
			BoostChanceIdle:  0.02,
		},
		Spawn: SpawnConfig{
			RingMin:    200,
			RingMax:    1200,
			SafeRadius: 150,
			WallBuffer: 100,
			Attempts:   30,
			Jitter:     40,
		},
	}
}

// LoadConfig 读取 YAML 调参文件；path 为空时返回默认配置
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("tuning %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize 把非法值拉回默认值，保证循环不会因配置停摆
func (c *Config) Normalize() {
	d := DefaultConfig()
	posInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	posF := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	posD := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	posInt(&c.TickRateHz, d.TickRateHz)
	posInt(&c.BroadcastHz, d.BroadcastHz)
	if c.BroadcastHz > c.TickRateHz {
		c.BroadcastHz = c.TickRateHz
	}
	posInt(&c.CommandQueue, d.CommandQueue)
	posInt(&c.OutboundQueue, d.OutboundQueue)
	posInt(&c.MaxInputsPerTick, d.MaxInputsPerTick)
	posF(&c.Arena.Width, d.Arena.Width)
	posF(&c.Arena.Height, d.Arena.Height)

	posF(&c.Snake.BaseSpeed, d.Snake.BaseSpeed)
	if c.Snake.BoostMultiplier < 1 {
		c.Snake.BoostMultiplier = 1
	}
	posInt(&c.Snake.InitialLength, d.Snake.InitialLength)
	posD(&c.Snake.RemovalGrace, d.Snake.RemovalGrace)
	posF(&c.Snake.SegmentSpacing, d.Snake.SegmentSpacing)

	posInt(&c.Collide.EveryTicks, d.Collide.EveryTicks)
	posF(&c.Collide.Radius, d.Collide.Radius)
	posF(&c.Collide.HeadRadius, d.Collide.HeadRadius)
	posF(&c.Collide.EatRadius, d.Collide.EatRadius)
	if c.Collide.ClientHintSlack < 1 {
		c.Collide.ClientHintSlack = 1
	}

	posD(&c.Food.SpawnEvery, d.Food.SpawnEvery)
	posInt(&c.Food.RoomCap, d.Food.RoomCap)
	posInt(&c.Food.Batch, d.Food.Batch)
	if c.Food.Batch > c.Food.RoomCap {
		c.Food.Batch = c.Food.RoomCap
	}
	posInt(&c.Food.HardCap, d.Food.HardCap)
	if c.Food.SoftCap <= 0 || c.Food.SoftCap > c.Food.HardCap {
		c.Food.SoftCap = c.Food.HardCap
	}
	if c.Food.ValueMax < c.Food.ValueMin {
		c.Food.ValueMax = c.Food.ValueMin
	}
	if c.Food.SizeMax < c.Food.SizeMin {
		c.Food.SizeMax = c.Food.SizeMin
	}
	posInt(&c.Food.DeathEvery, d.Food.DeathEvery)
	posD(&c.Food.DeathLifetime, d.Food.DeathLifetime)
	posInt(&c.Food.ProgressPerLen, d.Food.ProgressPerLen)

	if c.Bots.Target < 0 {
		c.Bots.Target = 0
	}
	posD(&c.Bots.MaintainEvery, d.Bots.MaintainEvery)
	posD(&c.Bots.WanderEvery, d.Bots.WanderEvery)
	posF(&c.Bots.TurnRate, d.Bots.TurnRate)

	posInt(&c.Spawn.Attempts, d.Spawn.Attempts)
	if c.Spawn.RingMax < c.Spawn.RingMin {
		c.Spawn.RingMax = c.Spawn.RingMin
	}
}

// BroadcastEvery 每多少个 Tick 广播一次
func (c *Config) BroadcastEvery() uint64 {
	n := c.TickRateHz / c.BroadcastHz
	if n <= 0 {
		n = 1
	}
	return uint64(n)
}

// Center 竞技场中心
func (c *Config) Center() Vec2 {
	return Vec2{c.Arena.Width / 2, c.Arena.Height / 2}
}

// InBounds 是否位于竞技场矩形内（边界本身视为场内）
func (c *Config) InBounds(p Vec2) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= c.Arena.Width && p.Y <= c.Arena.Height
}
