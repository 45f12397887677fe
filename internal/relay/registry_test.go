package relay

import (
	"errors"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []frame
	err    error
}

type frame struct {
	messageType int
	data        []byte
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame{messageType, data})
	return c.err
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestSendRoutesToRegisteredConn(t *testing.T) {
	r := NewRegistry()
	c := &fakeConn{}
	r.Register("c1", c)

	r.SendText("c1", "hello")
	r.SendBinary("c1", []byte{1, 2, 3})

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) != 2 {
		t.Fatalf("frames=%d, want 2", len(c.frames))
	}
	if c.frames[0].messageType != websocket.TextMessage || string(c.frames[0].data) != "hello" {
		t.Fatalf("frame0=%+v", c.frames[0])
	}
	if c.frames[1].messageType != websocket.BinaryMessage {
		t.Fatalf("frame1=%+v", c.frames[1])
	}
}

func TestSendToUnknownClientIsSilent(t *testing.T) {
	r := NewRegistry()
	r.SendText("nobody", "hello")
	r.SendBinary("nobody", []byte{1})
}

func TestRegisterReplacesHandle(t *testing.T) {
	r := NewRegistry()
	old := &fakeConn{}
	fresh := &fakeConn{}
	r.Register("c1", old)
	r.Register("c1", fresh)

	r.SendText("c1", "hi")
	if old.count() != 0 {
		t.Fatalf("old handle received %d frames", old.count())
	}
	if fresh.count() != 1 {
		t.Fatalf("fresh handle received %d frames, want 1", fresh.count())
	}
	if r.Count() != 1 {
		t.Fatalf("count=%d, want 1", r.Count())
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", &fakeConn{})
	r.Unregister("c1")
	r.Unregister("c1")
	if r.Count() != 0 {
		t.Fatalf("count=%d, want 0", r.Count())
	}
	r.SendText("c1", "late")
}

func TestWriteErrorIsAbsorbed(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", &fakeConn{err: errors.New("broken pipe")})
	r.SendBinary("c1", []byte{1, 2})
}
