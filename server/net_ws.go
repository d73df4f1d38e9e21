package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"snakearena/game"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingEvery    = 25 * time.Second
	spawnWait    = 2 * time.Second
	maxNameRunes = 24
	defaultRoom  = "room-1"
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewClientConn(ws *websocket.Conn, queue int) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, queue),
		done: make(chan struct{}),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃），不会阻塞引擎输出
func (c *ClientConn) Enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close 关闭底层连接并结束写协程；可重复调用
func (c *ClientConn) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (c *ClientConn) writePump() {
	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端输入，校验后转换为引擎指令
func (h *Hub) readPump(c *ClientConn, s *session) {
	defer func() {
		c.Close()
		h.unregister(s.room, s.id, c)
		h.metrics.DecConnections()
		// 读泵退出时，通知引擎在 Tick 线程中移除该玩家；被重连顶掉的旧连接不通知
		if h.sessions.Detach(s.id, c) {
			h.submit(game.Disconnect{Player: s.id})
		}
		Log.Infow("client disconnected", "room", s.room, "player", s.id)
	}()
	c.ws.SetReadLimit(4 << 10)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		im, err := DecodeInbound(payload)
		if err != nil {
			h.metrics.IncInvalid()
			Log.Debugw("invalid inbound message", "player", s.id, "err", err)
			h.send(c, errorFrame{Type: "error", Error: "invalid message"})
			continue
		}
		h.metrics.IncMessagesIn()
		if im.Type == "spawn" {
			h.spawn(c, s, im.Skin)
			continue
		}
		cmd, err := im.Command(s.id)
		if err != nil {
			continue
		}
		h.submit(cmd)
	}
}

// spawn 皮肤只有在持久化层确认已解锁时才会使用，否则按默认外观生成
func (h *Hub) spawn(c *ClientConn, s *session, skin *string) {
	ctx, cancel := context.WithTimeout(context.Background(), spawnWait)
	defer cancel()
	if skin != nil {
		ok := false
		if h.opts.Skins != nil && s.token != "" {
			unlocked, err := h.opts.Skins.IsUnlocked(ctx, s.token, *skin)
			if err != nil {
				Log.Warnw("skin lookup failed", "player", s.id, "skin", *skin, "err", err)
			}
			ok = unlocked
		}
		if !ok {
			skin = nil
		}
	}

	reply := make(chan game.SpawnResult, 1)
	if !h.submit(game.Spawn{Player: s.id, Skin: skin, Reply: reply}) {
		h.send(c, spawnedFrame{Type: "spawned"})
		return
	}
	select {
	case res := <-reply:
		h.send(c, spawnedFrame{Type: "spawned", OK: res.OK, Snake: res.Snake, Skin: skin})
	case <-ctx.Done():
		h.send(c, spawnedFrame{Type: "spawned"})
	case <-c.done:
	}
}

// HandleWS WebSocket 接入：/ws?room=room-1&name=alice&token=abc
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	room := game.RoomID(strings.TrimSpace(q.Get("room")))
	if room == "" {
		room = defaultRoom
	}
	name := cleanName(q.Get("name"))
	token := strings.TrimSpace(q.Get("token"))

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("upgrade failed", "err", err)
		return
	}
	c := NewClientConn(ws, h.opts.SendQueue)
	pid, old := h.sessions.Attach(token, name, room, c)
	if old != nil {
		Log.Infow("session replaced by reconnect", "player", pid)
		old.Close()
	}
	s := &session{id: pid, token: token, name: name, room: room, conn: c}
	h.register(room, pid, c)
	h.metrics.IncConnections()

	if !h.submit(game.Join{Room: room, Player: pid, Key: token, Name: name}) {
		Log.Warnw("join dropped, engine queue full", "room", room, "player", pid)
	}

	welcome := welcomeFrame{Type: "welcome", Player: pid, Room: room, Skins: []string{}}
	if h.opts.Skins != nil && token != "" {
		ctx, cancel := context.WithTimeout(r.Context(), spawnWait)
		if skins, err := h.opts.Skins.Unlocked(ctx, token); err == nil {
			welcome.Skins = skins
		} else {
			Log.Warnw("unlocked skins lookup failed", "player", pid, "err", err)
		}
		cancel()
	}
	h.send(c, welcome)
	Log.Infow("client connected", "room", room, "player", pid, "name", name)

	go c.writePump()
	go h.readPump(c, s)
}

// cleanName 去掉首尾空白并限制长度
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxNameRunes {
		name = string([]rune(name)[:maxNameRunes])
	}
	return name
}
