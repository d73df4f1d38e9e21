package game

import (
	"math"
	"time"
)

// SnakeID 由 EntityStore 发放的蛇实体标识
type SnakeID int64

// FoodID 由 EntityStore 发放的食物标识
type FoodID int64

// RoomID 房间标识（由传输层指定，如 "room-1"）
type RoomID string

// PlayerID 玩家标识：人类为正数，机器人为负数
type PlayerID int64

// IsBot 负数 id 表示机器人
func (p PlayerID) IsBot() bool { return p < 0 }

// Vec2 二维向量
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2       { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2       { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(k float64) Vec2  { return Vec2{v.X * k, v.Y * k} }
func (v Vec2) Dot(o Vec2) float64    { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Len() float64          { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64   { return v.Sub(o).Len() }
func (v Vec2) DistSq(o Vec2) float64 { d := v.Sub(o); return d.X*d.X + d.Y*d.Y }

const minDirLen = 1e-9

func (v Vec2) finite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Normalize 返回单位向量；零向量、NaN、Inf 返回 false
func (v Vec2) Normalize() (Vec2, bool) {
	if !v.finite() {
		return Vec2{}, false
	}
	l := v.Len()
	if l < minDirLen {
		return Vec2{}, false
	}
	return Vec2{v.X / l, v.Y / l}, true
}

// DeathCause 死亡原因
type DeathCause int

const (
	CauseNone DeathCause = iota
	CauseWall
	CauseCollision
	CauseDisconnect
)

func (c DeathCause) String() string {
	switch c {
	case CauseWall:
		return "wall"
	case CauseCollision:
		return "collision"
	case CauseDisconnect:
		return "disconnect"
	default:
		return "none"
	}
}

// Room 一个独立的模拟实例；对蛇与食物只持有 id
type Room struct {
	ID         RoomID
	Snakes     map[SnakeID]struct{}
	Food       map[FoodID]struct{}
	Players    map[PlayerID]struct{} // 已加入的人类玩家，为空时房间被销毁
	CreatedAt  time.Time
	LastActive time.Time
}

// Snake 权威蛇实体
type Snake struct {
	ID       SnakeID
	Player   PlayerID
	Room     RoomID
	Pos      Vec2
	Dir      Vec2
	Length   int
	Segments []Vec2 // 最新记录点在前，len(Segments) <= Length

	Score    int
	Kills    int
	Boosting bool
	Alive    bool

	SpawnedAt    time.Time
	DiedAt       *time.Time
	Cause        DeathCause
	FoodProgress int
	Skin         *string

	lastInputDir Vec2
}

// IsBot 是否由 BotBrain 控制
func (s *Snake) IsBot() bool { return s.Player.IsBot() }

// FoodKind 食物类型
type FoodKind string

const (
	FoodRegular FoodKind = "regular"
	FoodDeath   FoodKind = "death"
)

// Food 食物实体
type Food struct {
	ID        FoodID
	Room      RoomID
	Pos       Vec2
	Value     int
	Size      float64
	Color     string
	FromDeath bool
	SpawnedAt time.Time
}

// Kind 由 FromDeath 推导
func (f *Food) Kind() FoodKind {
	if f.FromDeath {
		return FoodDeath
	}
	return FoodRegular
}

// BotMemory 机器人的感知记忆，与机器人蛇同生命周期，死亡时清除
type BotMemory struct {
	LastFood     *Vec2
	LastFoodSeen time.Time
	Explore      *Vec2
	ExploreSince time.Time
	LastWanderAt time.Time
	Wander       Vec2
	LastTick     time.Time
}
