package broadcast

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/wfunc/stationhub/network"
	"github.com/wfunc/stationhub/session"
)

type MockConnection struct {
	Sent    []network.Packet
	SendErr error
}

func (c *MockConnection) Send(msgID uint16, data []byte) error {
	if c.SendErr != nil {
		return c.SendErr
	}
	c.Sent = append(c.Sent, network.Packet{MsgID: msgID, Data: data})
	return nil
}

func (c *MockConnection) Close() error { return nil }

func (c *MockConnection) RemoteAddr() net.Addr { return nil }

func (c *MockConnection) SetHeartbeat(interval time.Duration) {}

func (c *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func addSession(m *session.Manager, id, clientID, room string, conn network.Connection) {
	s := session.NewSession(id, conn)
	s.ClientID = clientID
	s.SetRoom(room)
	m.Add(s)
}

func TestBroadcastToRoom(t *testing.T) {
	sm := session.NewManager()
	a := &MockConnection{}
	b := &MockConnection{}
	other := &MockConnection{}
	addSession(sm, "s1", "alice", "ROOM01", a)
	addSession(sm, "s2", "bob", "ROOM01", b)
	addSession(sm, "s3", "carol", "ROOM02", other)

	bc := NewSessionBroadcaster(sm)
	if err := bc.BroadcastToRoom("ROOM01", 301, []byte(`{}`)); err != nil {
		t.Fatalf("BroadcastToRoom failed: %v", err)
	}

	if len(a.Sent) != 1 || a.Sent[0].MsgID != 301 {
		t.Errorf("Expected one packet to alice, got %+v", a.Sent)
	}
	if len(b.Sent) != 1 {
		t.Errorf("Expected one packet to bob, got %+v", b.Sent)
	}
	if len(other.Sent) != 0 {
		t.Error("Another room's session must not receive the broadcast")
	}
}

func TestBroadcastToRoomSkipsDeadConnections(t *testing.T) {
	sm := session.NewManager()
	dead := &MockConnection{SendErr: errors.New("connection reset")}
	alive := &MockConnection{}
	addSession(sm, "s1", "alice", "ROOM01", dead)
	addSession(sm, "s2", "bob", "ROOM01", alive)

	bc := NewSessionBroadcaster(sm)
	if err := bc.BroadcastToRoom("ROOM01", 301, []byte(`{}`)); err != nil {
		t.Fatalf("A dead member must not fail the broadcast: %v", err)
	}
	if len(alive.Sent) != 1 {
		t.Error("Live members must still receive the broadcast")
	}
}

func TestSendToClient(t *testing.T) {
	sm := session.NewManager()
	a1 := &MockConnection{}
	a2 := &MockConnection{}
	b := &MockConnection{}
	addSession(sm, "s1", "alice", "ROOM01", a1)
	addSession(sm, "s2", "alice", "ROOM01", a2) // reconnect overlap
	addSession(sm, "s3", "bob", "ROOM01", b)

	bc := NewSessionBroadcaster(sm)
	if err := bc.SendToClient("alice", 308, []byte(`{}`)); err != nil {
		t.Fatalf("SendToClient failed: %v", err)
	}

	if len(a1.Sent) != 1 || len(a2.Sent) != 1 {
		t.Error("Every session holding the client identity must receive targeted sends")
	}
	if len(b.Sent) != 0 {
		t.Error("Other clients must not receive targeted sends")
	}
}

func TestSendToUnknownClient(t *testing.T) {
	bc := NewSessionBroadcaster(session.NewManager())
	if err := bc.SendToClient("ghost", 308, []byte(`{}`)); err != nil {
		t.Errorf("Sending to an unknown client is a no-op, got %v", err)
	}
}
