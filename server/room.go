package server

import (
	"snakearena/game"
)

// roomFanout 房间的广播集合：玩家 → 当前连接
// 世界状态在引擎里，这里只负责把已编码的帧发给房间内的连接
type roomFanout struct {
	id      game.RoomID
	clients map[game.PlayerID]*ClientConn
}

func newRoomFanout(id game.RoomID) *roomFanout {
	return &roomFanout{
		id:      id,
		clients: make(map[game.PlayerID]*ClientConn),
	}
}

func (r *roomFanout) add(pid game.PlayerID, c *ClientConn) {
	r.clients[pid] = c
}

// remove 仅当 c 仍是该玩家登记的连接时移除，避免旧连接退出时误删重连后的新连接
func (r *roomFanout) remove(pid game.PlayerID, c *ClientConn) bool {
	if cur, ok := r.clients[pid]; ok && cur == c {
		delete(r.clients, pid)
		return true
	}
	return false
}

// broadcast 非阻塞投递同一帧，返回因发送队列满而丢弃的数量
func (r *roomFanout) broadcast(frame []byte) (dropped int) {
	for _, c := range r.clients {
		if !c.Enqueue(frame) {
			dropped++
		}
	}
	return dropped
}

// 出站帧（WebSocket 文本消息）

type welcomeFrame struct {
	Type   string        `json:"type"`
	Player game.PlayerID `json:"player"`
	Room   game.RoomID   `json:"room"`
	Skins  []string      `json:"skins"`
}

type snapshotFrame struct {
	Type string `json:"type"`
	game.Snapshot
}

type spawnedFrame struct {
	Type  string       `json:"type"`
	OK    bool         `json:"ok"`
	Snake game.SnakeID `json:"snake,omitempty"`
	Skin  *string      `json:"skin,omitempty"`
}

type deathFrame struct {
	Type   string        `json:"type"`
	Snake  game.SnakeID  `json:"snake"`
	Cause  string        `json:"cause"`
	Killer *game.SnakeID `json:"killer,omitempty"`
	Score  int           `json:"score"`
	Kills  int           `json:"kills"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
