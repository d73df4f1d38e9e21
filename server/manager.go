package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"snakearena/game"
)

// SkinCatalog 皮肤解锁查询（由持久化层提供）
type SkinCatalog interface {
	IsUnlocked(ctx context.Context, key, skin string) (bool, error)
	Unlocked(ctx context.Context, key string) ([]string, error)
}

// SnapshotSink 快照录像；Forget 在房间销毁后释放该房间的采样状态
type SnapshotSink interface {
	Record(msg game.SnapshotMsg) error
	Forget(room game.RoomID)
}

// QueueStats 持久化写入队列的统计（丢弃、失败的写入）
type QueueStats interface {
	Stats() map[string]any
}

// HubOptions 可选协作方；零值表示不启用
type HubOptions struct {
	Skins     SkinCatalog
	Sink      SnapshotSink
	Stats     StatsSource
	Queue     QueueStats
	SendQueue int // 每个连接的发送队列长度
}

// Hub 传输层总线：接入连接、把输入交给引擎、把引擎输出分发给各房间
type Hub struct {
	sim      *game.Sim
	sessions *Sessions
	opts     HubOptions
	metrics  ConnMetrics
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[game.RoomID]*roomFanout
}

func NewHub(sim *game.Sim, sessions *Sessions, opts HubOptions) *Hub {
	if opts.SendQueue <= 0 {
		opts.SendQueue = 64
	}
	return &Hub{
		sim:      sim,
		sessions: sessions,
		opts:     opts,
		rooms:    make(map[game.RoomID]*roomFanout),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// 演示环境：允许所有来源（生产环境需严格限制）
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) Metrics() *ConnMetrics { return &h.metrics }

// Run 消费引擎出站通道直到 ctx 结束
func (h *Hub) Run(ctx context.Context) error {
	out := h.sim.Out()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-out:
			h.dispatch(m)
		}
	}
}

func (h *Hub) dispatch(m game.Outbound) {
	switch msg := m.(type) {
	case game.SnapshotMsg:
		h.fanoutSnapshot(msg)
	case game.DeathMsg:
		h.notifyDeath(msg)
	case game.RoomClosedMsg:
		h.closeRoom(msg.Room)
	}
}

// fanoutSnapshot 每个房间只编码一次，再投递给所有连接
func (h *Hub) fanoutSnapshot(msg game.SnapshotMsg) {
	frame, err := json.Marshal(snapshotFrame{Type: "snapshot", Snapshot: msg.Snapshot})
	if err != nil {
		Log.Errorw("encode snapshot failed", "room", msg.Room, "err", err)
		return
	}
	h.mu.RLock()
	fan, ok := h.rooms[msg.Room]
	dropped := 0
	if ok {
		dropped = fan.broadcast(frame)
	}
	h.mu.RUnlock()
	for i := 0; i < dropped; i++ {
		h.metrics.IncSendDropped()
	}

	if h.opts.Sink == nil {
		return
	}
	if err := h.opts.Sink.Record(msg); err != nil {
		h.metrics.IncRecordErrors()
		Log.Warnw("record snapshot failed", "room", msg.Room, "tick", msg.Snapshot.Tick, "err", err)
		return
	}
	h.metrics.IncRecorded()
}

// notifyDeath 死亡通知只发给蛇的主人；机器人没有连接
func (h *Hub) notifyDeath(msg game.DeathMsg) {
	if msg.Player.IsBot() {
		return
	}
	conn, ok := h.sessions.Conn(msg.Player)
	if !ok {
		return
	}
	h.send(conn, deathFrame{
		Type:   "death",
		Snake:  msg.Snake,
		Cause:  msg.Cause.String(),
		Killer: msg.Killer,
		Score:  msg.Score,
		Kills:  msg.Kills,
	})
}

// closeRoom 引擎销毁房间后丢弃空的广播集合；仍有连接（已排队的新 Join）时保留
func (h *Hub) closeRoom(id game.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fan, ok := h.rooms[id]; ok && len(fan.clients) == 0 {
		delete(h.rooms, id)
	}
	if h.opts.Sink != nil {
		h.opts.Sink.Forget(id)
	}
	Log.Infow("room closed", "room", id)
}

func (h *Hub) register(room game.RoomID, pid game.PlayerID, c *ClientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fan, ok := h.rooms[room]
	if !ok {
		fan = newRoomFanout(room)
		h.rooms[room] = fan
	}
	fan.add(pid, c)
}

func (h *Hub) unregister(room game.RoomID, pid game.PlayerID, c *ClientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fan, ok := h.rooms[room]; ok {
		fan.remove(pid, c)
	}
}

// send 编码并非阻塞投递单条帧
func (h *Hub) send(c *ClientConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		Log.Errorw("encode frame failed", "err", err)
		return
	}
	if !c.Enqueue(b) {
		h.metrics.IncSendDropped()
	}
}

// submit 指令入队；队列满时计数
func (h *Hub) submit(cmd game.Command) bool {
	if h.sim.Submit(cmd) {
		return true
	}
	h.metrics.IncSubmitDropped()
	return false
}
