package server

import (
	"testing"
)

func TestSessionsReconnectKeepsID(t *testing.T) {
	s := NewSessions()
	c1 := NewClientConn(nil, 1)
	c2 := NewClientConn(nil, 1)

	id1, old := s.Attach("tok", "alice", "r", c1)
	if old != nil {
		t.Fatalf("first attach returned an old conn")
	}
	id2, old := s.Attach("tok", "alice2", "r", c2)
	if id2 != id1 {
		t.Fatalf("reconnect changed id %d -> %d", id1, id2)
	}
	if old != c1 {
		t.Fatalf("reconnect should return the replaced conn")
	}
	if s.Detach(id1, c1) {
		t.Fatalf("stale conn must not detach the new session")
	}
	if name, _ := s.DisplayName(id1); name != "alice2" {
		t.Fatalf("name = %q", name)
	}
	if !s.Detach(id1, c2) {
		t.Fatalf("current conn should detach")
	}
	if _, ok := s.Conn(id1); ok || s.Online() != 0 {
		t.Fatalf("session still online after detach")
	}

	// 断开后同一 token 再来仍是同一 id
	id3, _ := s.Attach("tok", "alice", "r", NewClientConn(nil, 1))
	if id3 != id1 {
		t.Fatalf("token lost its id after detach")
	}
}

func TestSessionsAnonymousGetFreshIDs(t *testing.T) {
	s := NewSessions()
	a, _ := s.Attach("", "", "r", NewClientConn(nil, 1))
	b, _ := s.Attach("", "", "r", NewClientConn(nil, 1))
	if a == b || a <= 0 || b <= 0 {
		t.Fatalf("anonymous ids %d, %d", a, b)
	}
	if _, ok := s.DisplayName(a); ok {
		t.Fatalf("empty name should fall back to the engine")
	}
	if len(s.byToken) != 0 {
		t.Fatalf("anonymous sessions must not be reachable by token")
	}
}

func TestClientConnEnqueueDropsWhenFullOrClosed(t *testing.T) {
	c := NewClientConn(nil, 1)
	if !c.Enqueue([]byte("a")) {
		t.Fatalf("first enqueue failed")
	}
	if c.Enqueue([]byte("b")) {
		t.Fatalf("full queue should drop")
	}
	c.Close()
	c.Close()
	if c.Enqueue([]byte("c")) {
		t.Fatalf("closed conn should drop")
	}
}
