package game

import (
	"fmt"
	"sort"
)

// Snapshot 某房间在两个 Tick 之间的只读视图，可以安全地交给其他 goroutine
type Snapshot struct {
	Room        RoomID        `json:"room"`
	Tick        uint64        `json:"tick"`
	At          int64         `json:"at"` // unix 毫秒
	Snakes      []SnakeView   `json:"snakes"`
	Food        []FoodView    `json:"food"`
	Leaderboard []LeaderEntry `json:"leaderboard"`
}

type SnakeView struct {
	ID           SnakeID `json:"id"`
	Name         string  `json:"name"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Dir          Vec2    `json:"dir"`
	Length       int     `json:"length"`
	Score        int     `json:"score"`
	Kills        int     `json:"kills"`
	Bot          bool    `json:"bot"`
	Alive        bool    `json:"alive"`
	Boosting     bool    `json:"boosting"`
	Segments     []Vec2  `json:"segments"`
	FoodProgress int     `json:"foodProgress"`
	SizeMult     float64 `json:"sizeMult"`
	Skin         *string `json:"skin,omitempty"`
}

type FoodView struct {
	ID    FoodID   `json:"id"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Type  FoodKind `json:"type"`
	Value int      `json:"value"`
	Size  float64  `json:"size"`
	Color string   `json:"color"`
}

type LeaderEntry struct {
	ID    SnakeID `json:"id"`
	Name  string  `json:"name"`
	Score int     `json:"score"`
	Kills int     `json:"kills"`
	Bot   bool    `json:"bot"`
}

// Broadcast 为每个房间生成快照并投递；只在 Tick 之间调用
func (s *Sim) Broadcast() {
	for _, rid := range s.store.RoomIDs() {
		snap, ok := s.BuildSnapshot(rid)
		if !ok {
			continue
		}
		s.emit(SnapshotMsg{Room: rid, Snapshot: snap})
	}
}

// BuildSnapshot 深拷贝当前状态：存活的蛇、全部食物、排行榜
func (s *Sim) BuildSnapshot(rid RoomID) (Snapshot, bool) {
	if _, ok := s.store.Room(rid); !ok {
		return Snapshot{}, false
	}
	alive := s.store.AliveIn(rid)
	food := s.store.FoodIn(rid)
	snap := Snapshot{
		Room:        rid,
		Tick:        s.tick,
		At:          s.now.UnixMilli(),
		Snakes:      make([]SnakeView, 0, len(alive)),
		Food:        make([]FoodView, 0, len(food)),
		Leaderboard: make([]LeaderEntry, 0, len(alive)),
	}
	for _, sn := range alive {
		name := s.displayName(sn)
		v := SnakeView{
			ID:           sn.ID,
			Name:         name,
			X:            sn.Pos.X,
			Y:            sn.Pos.Y,
			Dir:          sn.Dir,
			Length:       sn.Length,
			Score:        sn.Score,
			Kills:        sn.Kills,
			Bot:          sn.IsBot(),
			Alive:        sn.Alive,
			Boosting:     sn.Boosting,
			Segments:     append([]Vec2(nil), sn.Segments...),
			FoodProgress: sn.FoodProgress,
			SizeMult:     s.sizeMultiplier(sn.Length),
		}
		if sn.Skin != nil {
			skin := *sn.Skin
			v.Skin = &skin
		}
		snap.Snakes = append(snap.Snakes, v)
		snap.Leaderboard = append(snap.Leaderboard, LeaderEntry{
			ID: sn.ID, Name: name, Score: sn.Score, Kills: sn.Kills, Bot: sn.IsBot(),
		})
	}
	for _, f := range food {
		snap.Food = append(snap.Food, FoodView{
			ID:    f.ID,
			X:     f.Pos.X,
			Y:     f.Pos.Y,
			Type:  f.Kind(),
			Value: f.Value,
			Size:  f.Size,
			Color: f.Color,
		})
	}
	rankLeaders(snap.Leaderboard)
	return snap, true
}

// rankLeaders 分数降序，其次击杀降序，最后 id 升序
func rankLeaders(lb []LeaderEntry) {
	sort.SliceStable(lb, func(i, j int) bool {
		if lb[i].Score != lb[j].Score {
			return lb[i].Score > lb[j].Score
		}
		if lb[i].Kills != lb[j].Kills {
			return lb[i].Kills > lb[j].Kills
		}
		return lb[i].ID < lb[j].ID
	})
}

func (s *Sim) displayName(sn *Snake) string {
	if sn.IsBot() {
		return s.botName(sn.Player)
	}
	if s.identity != nil {
		if name, ok := s.identity.DisplayName(sn.Player); ok && name != "" {
			return name
		}
	}
	if p, ok := s.players[sn.Player]; ok && p.name != "" {
		return p.name
	}
	return fmt.Sprintf("player-%d", sn.Player)
}
