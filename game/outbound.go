package game

// Outbound 引擎发往传输层的类型化消息
type Outbound interface {
	outbound()
}

// SnapshotMsg 某房间在广播节拍上的只读视图
type SnapshotMsg struct {
	Room     RoomID
	Snapshot Snapshot
}

// DeathMsg 一条蛇进入 Dead 状态
type DeathMsg struct {
	Room   RoomID
	Snake  SnakeID
	Player PlayerID
	Cause  DeathCause
	Killer *SnakeID
	Score  int
	Kills  int
}

// RoomClosedMsg 房间因人类玩家为空而被销毁
type RoomClosedMsg struct {
	Room RoomID
}

// SpawnResult Spawn 指令的回执
type SpawnResult struct {
	Snake SnakeID
	OK    bool
}

func (SnapshotMsg) outbound()   {}
func (DeathMsg) outbound()      {}
func (RoomClosedMsg) outbound() {}

// emit 非阻塞投递，不会卡住 Tick。
// 通道满时快照直接丢弃（下一次广播会覆盖）；死亡与房间销毁通知进入积压队列，
// 在后续 Tick 按顺序重发，积压也满时才丢弃
func (s *Sim) emit(m Outbound) {
	if s.flushBacklog() {
		select {
		case s.out <- m:
			return
		default:
		}
	}
	if _, ok := m.(SnapshotMsg); ok {
		s.dropOutbound(m)
		return
	}
	if len(s.backlog) >= s.cfg.OutboundQueue {
		s.dropOutbound(m)
		return
	}
	s.backlog = append(s.backlog, m)
	s.metrics.IncOutboundDeferred()
}

// flushBacklog 尽量发出积压的控制消息；全部发出时返回 true
func (s *Sim) flushBacklog() bool {
	n := 0
	for _, m := range s.backlog {
		select {
		case s.out <- m:
			n++
			continue
		default:
		}
		break
	}
	if n > 0 {
		rest := copy(s.backlog, s.backlog[n:])
		clear(s.backlog[rest:])
		s.backlog = s.backlog[:rest]
	}
	return len(s.backlog) == 0
}

func (s *Sim) dropOutbound(m Outbound) {
	s.metrics.IncOutboundDropped()
	s.log.Debugw("outbound queue full, message dropped", "type", typeName(m))
}

func typeName(m Outbound) string {
	switch m.(type) {
	case SnapshotMsg:
		return "snapshot"
	case DeathMsg:
		return "death"
	case RoomClosedMsg:
		return "room_closed"
	default:
		return "unknown"
	}
}
