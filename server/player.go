package server

import (
	"sync"

	"snakearena/game"
)

// session 连接侧的玩家会话：token 对应稳定的 PlayerID
type session struct {
	id    game.PlayerID
	token string
	name  string
	room  game.RoomID
	conn  *ClientConn
}

// Sessions 会话旁路表：token → PlayerID，PlayerID → 当前连接
// 引擎只通过 DisplayName 读取名字，其余字段由传输层维护
type Sessions struct {
	mu      sync.RWMutex
	next    game.PlayerID
	byToken map[string]game.PlayerID
	byID    map[game.PlayerID]*session
}

func NewSessions() *Sessions {
	return &Sessions{
		byToken: make(map[string]game.PlayerID),
		byID:    make(map[game.PlayerID]*session),
	}
}

// Attach 绑定连接；同一 token 重连沿用原 PlayerID，返回被顶掉的旧连接（可能为 nil）
// token 为空时分配一次性的匿名 id
func (s *Sessions) Attach(token, name string, room game.RoomID, conn *ClientConn) (game.PlayerID, *ClientConn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byToken[token]
	if token == "" || !ok {
		s.next++
		id = s.next
		if token != "" {
			s.byToken[token] = id
		}
	}
	var old *ClientConn
	if prev, ok := s.byID[id]; ok && prev.conn != conn {
		old = prev.conn
	}
	s.byID[id] = &session{id: id, token: token, name: name, room: room, conn: conn}
	return id, old
}

// Detach 仅当 conn 仍是该玩家的当前连接时解除绑定；被顶掉的旧连接返回 false
func (s *Sessions) Detach(id game.PlayerID, conn *ClientConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[id]
	if !ok || cur.conn != conn {
		return false
	}
	delete(s.byID, id)
	return true
}

// Conn 玩家当前连接
func (s *Sessions) Conn(id game.PlayerID) (*ClientConn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return cur.conn, true
}

// DisplayName 实现 game.Identity
func (s *Sessions) DisplayName(id game.PlayerID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.byID[id]
	if !ok || cur.name == "" {
		return "", false
	}
	return cur.name, true
}

// Online 当前在线会话数
func (s *Sessions) Online() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
