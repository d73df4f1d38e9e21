package server

import (
	"sync/atomic"
)

// ConnMetrics 记录传输层的关键指标（用于监控与调试）
type ConnMetrics struct {
	Connections     int64 // 当前在线连接数
	Accepted        int64 // 累计接入的连接数
	MessagesIn      int64 // 校验通过的入站消息数
	InvalidMessages int64 // JSON 或 schema 校验失败的入站消息数
	SubmitDropped   int64 // 引擎指令队列满被丢弃的消息数
	SendDropped     int64 // 客户端发送队列满被丢弃的出站帧数
	Recorded        int64 // 写入录像的快照数
	RecordErrors    int64
}

func (m *ConnMetrics) IncConnections() {
	atomic.AddInt64(&m.Connections, 1)
	atomic.AddInt64(&m.Accepted, 1)
}
func (m *ConnMetrics) DecConnections()   { atomic.AddInt64(&m.Connections, -1) }
func (m *ConnMetrics) IncMessagesIn()    { atomic.AddInt64(&m.MessagesIn, 1) }
func (m *ConnMetrics) IncInvalid()       { atomic.AddInt64(&m.InvalidMessages, 1) }
func (m *ConnMetrics) IncSubmitDropped() { atomic.AddInt64(&m.SubmitDropped, 1) }
func (m *ConnMetrics) IncSendDropped()   { atomic.AddInt64(&m.SendDropped, 1) }
func (m *ConnMetrics) IncRecorded()      { atomic.AddInt64(&m.Recorded, 1) }
func (m *ConnMetrics) IncRecordErrors()  { atomic.AddInt64(&m.RecordErrors, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *ConnMetrics) Snapshot() map[string]any {
	return map[string]any{
		"connections":      atomic.LoadInt64(&m.Connections),
		"accepted":         atomic.LoadInt64(&m.Accepted),
		"messages_in":      atomic.LoadInt64(&m.MessagesIn),
		"invalid_messages": atomic.LoadInt64(&m.InvalidMessages),
		"submit_dropped":   atomic.LoadInt64(&m.SubmitDropped),
		"send_dropped":     atomic.LoadInt64(&m.SendDropped),
		"recorded":         atomic.LoadInt64(&m.Recorded),
		"record_errors":    atomic.LoadInt64(&m.RecordErrors),
	}
}
