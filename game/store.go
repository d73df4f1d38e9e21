package game

import (
	"sort"
	"time"
)

// Store 权威实体表：房间、蛇、食物均按 id 持有，实体之间只通过 id 引用
type Store struct {
	rooms  map[RoomID]*Room
	snakes map[SnakeID]*Snake
	food   map[FoodID]*Food

	nextSnake SnakeID
	nextFood  FoodID
	nextBot   PlayerID
}

// NewStore 创建空实体表
func NewStore() *Store {
	return &Store{
		rooms:  make(map[RoomID]*Room),
		snakes: make(map[SnakeID]*Snake),
		food:   make(map[FoodID]*Food),
	}
}

// Room 按 id 查找房间
func (s *Store) Room(id RoomID) (*Room, bool) {
	r, ok := s.rooms[id]
	return r, ok
}

// EnsureRoom 首次加入时创建房间
func (s *Store) EnsureRoom(id RoomID, now time.Time) (*Room, bool) {
	if r, ok := s.rooms[id]; ok {
		return r, false
	}
	r := &Room{
		ID:         id,
		Snakes:     make(map[SnakeID]struct{}),
		Food:       make(map[FoodID]struct{}),
		Players:    make(map[PlayerID]struct{}),
		CreatedAt:  now,
		LastActive: now,
	}
	s.rooms[id] = r
	return r, true
}

// RemoveRoom 销毁房间及其中所有实体
func (s *Store) RemoveRoom(id RoomID) {
	r, ok := s.rooms[id]
	if !ok {
		return
	}
	for sid := range r.Snakes {
		delete(s.snakes, sid)
	}
	for fid := range r.Food {
		delete(s.food, fid)
	}
	delete(s.rooms, id)
}

// RoomIDs 按字典序返回房间 id，保证遍历顺序稳定
func (s *Store) RoomIDs() []RoomID {
	ids := make([]RoomID, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NewSnake 分配 id 并登记到房间；房间不存在返回 nil
func (s *Store) NewSnake(room RoomID, player PlayerID) *Snake {
	r, ok := s.rooms[room]
	if !ok {
		return nil
	}
	s.nextSnake++
	sn := &Snake{ID: s.nextSnake, Player: player, Room: room}
	s.snakes[sn.ID] = sn
	r.Snakes[sn.ID] = struct{}{}
	return sn
}

// NextBotPlayer 发放新的机器人玩家 id（负数，单调递减）
func (s *Store) NextBotPlayer() PlayerID {
	s.nextBot--
	return s.nextBot
}

func (s *Store) Snake(id SnakeID) (*Snake, bool) {
	sn, ok := s.snakes[id]
	return sn, ok
}

func (s *Store) RemoveSnake(id SnakeID) {
	sn, ok := s.snakes[id]
	if !ok {
		return
	}
	if r, ok := s.rooms[sn.Room]; ok {
		delete(r.Snakes, id)
	}
	delete(s.snakes, id)
}

// SnakesIn 返回房间内所有蛇（含死亡），按 id 升序
func (s *Store) SnakesIn(room RoomID) []*Snake {
	r, ok := s.rooms[room]
	if !ok {
		return nil
	}
	out := make([]*Snake, 0, len(r.Snakes))
	for id := range r.Snakes {
		if sn, ok := s.snakes[id]; ok {
			out = append(out, sn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AliveIn 房间内存活的蛇，按 id 升序
func (s *Store) AliveIn(room RoomID) []*Snake {
	all := s.SnakesIn(room)
	out := all[:0]
	for _, sn := range all {
		if sn.Alive {
			out = append(out, sn)
		}
	}
	return out
}

// AddFood 分配 id 并登记；房间不存在返回 nil
func (s *Store) AddFood(f Food) *Food {
	r, ok := s.rooms[f.Room]
	if !ok {
		return nil
	}
	s.nextFood++
	f.ID = s.nextFood
	fp := &f
	s.food[fp.ID] = fp
	r.Food[fp.ID] = struct{}{}
	return fp
}

func (s *Store) Food(id FoodID) (*Food, bool) {
	f, ok := s.food[id]
	return f, ok
}

func (s *Store) RemoveFood(id FoodID) {
	f, ok := s.food[id]
	if !ok {
		return
	}
	if r, ok := s.rooms[f.Room]; ok {
		delete(r.Food, id)
	}
	delete(s.food, id)
}

// FoodIn 房间内食物，按 id 升序
func (s *Store) FoodIn(room RoomID) []*Food {
	r, ok := s.rooms[room]
	if !ok {
		return nil
	}
	out := make([]*Food, 0, len(r.Food))
	for id := range r.Food {
		if f, ok := s.food[id]; ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Counts 返回实体总数（用于指标与调试）
func (s *Store) Counts() (rooms, snakes, food int) {
	return len(s.rooms), len(s.snakes), len(s.food)
}
