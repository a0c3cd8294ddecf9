package session

import (
	"net"
	"testing"
	"time"

	"github.com/wfunc/stationhub/network"
)

// MockConnection records sent packets.
type MockConnection struct {
	Sent   []network.Packet
	Closed bool
}

func (c *MockConnection) Send(msgID uint16, data []byte) error {
	c.Sent = append(c.Sent, network.Packet{MsgID: msgID, Data: data})
	return nil
}

func (c *MockConnection) Close() error {
	c.Closed = true
	return nil
}

func (c *MockConnection) RemoteAddr() net.Addr { return nil }

func (c *MockConnection) SetHeartbeat(interval time.Duration) {}

func (c *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestSessionSendAndRoom(t *testing.T) {
	conn := &MockConnection{}
	s := NewSession("sess-1", conn)

	if s.GetID() != "sess-1" {
		t.Errorf("Expected session id sess-1, got %s", s.GetID())
	}
	if s.GetRoom() != "" {
		t.Error("A new session must not be in a room")
	}

	s.SetRoom("ROOM01")
	if s.GetRoom() != "ROOM01" {
		t.Errorf("Expected room ROOM01, got %s", s.GetRoom())
	}

	if err := s.Send(301, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(conn.Sent) != 1 || conn.Sent[0].MsgID != 301 {
		t.Errorf("Expected one packet with msg id 301, got %+v", conn.Sent)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !conn.Closed {
		t.Error("Close must close the connection")
	}
}

func TestManagerAddGetRemove(t *testing.T) {
	m := NewManager()

	s := NewSession("sess-1", &MockConnection{})
	m.Add(s)

	got, exists := m.Get("sess-1")
	if !exists || got != s {
		t.Fatal("Get must return the added session")
	}

	m.Remove("sess-1")
	if _, exists := m.Get("sess-1"); exists {
		t.Error("Removed session must be gone")
	}

	// Removing an unknown id is a no-op.
	m.Remove("sess-1")
}

func TestManagerGetByRoom(t *testing.T) {
	m := NewManager()

	a := NewSession("sess-a", &MockConnection{})
	a.SetRoom("ROOM01")
	b := NewSession("sess-b", &MockConnection{})
	b.SetRoom("ROOM01")
	c := NewSession("sess-c", &MockConnection{})
	c.SetRoom("ROOM02")
	d := NewSession("sess-d", &MockConnection{})

	m.Add(a)
	m.Add(b)
	m.Add(c)
	m.Add(d)

	members := m.GetByRoom("ROOM01")
	if len(members) != 2 {
		t.Errorf("Expected 2 members in ROOM01, got %d", len(members))
	}
	if len(m.GetByRoom("ROOM03")) != 0 {
		t.Error("An unknown room has no members")
	}
}

func TestManagerGetByClientID(t *testing.T) {
	m := NewManager()

	a := NewSession("sess-a", &MockConnection{})
	a.ClientID = "alice"
	b := NewSession("sess-b", &MockConnection{})
	b.ClientID = "alice" // reconnect overlap
	c := NewSession("sess-c", &MockConnection{})
	c.ClientID = "bob"

	m.Add(a)
	m.Add(b)
	m.Add(c)

	if got := m.GetByClientID("alice"); len(got) != 2 {
		t.Errorf("Expected 2 sessions for alice, got %d", len(got))
	}
	if got := m.GetByClientID("carol"); len(got) != 0 {
		t.Errorf("Expected no sessions for carol, got %d", len(got))
	}
}
