package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakePipeline struct {
	mu       sync.Mutex
	attached []string
	detached []string
	triggers []string
	accept   bool
	calls    chan string
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{accept: true, calls: make(chan string, 16)}
}

func (p *fakePipeline) Attach(clientID string) {
	p.mu.Lock()
	p.attached = append(p.attached, clientID)
	p.mu.Unlock()
	p.calls <- "attach:" + clientID
}

func (p *fakePipeline) Detach(clientID string) {
	p.mu.Lock()
	p.detached = append(p.detached, clientID)
	p.mu.Unlock()
	p.calls <- "detach:" + clientID
}

func (p *fakePipeline) Trigger(clientID string) bool {
	p.mu.Lock()
	p.triggers = append(p.triggers, clientID)
	p.mu.Unlock()
	p.calls <- "trigger:" + clientID
	return p.accept
}

func (p *fakePipeline) waitCall(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-p.calls:
		if got != want {
			t.Fatalf("call=%q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no %q call within 2s", want)
	}
}

func dial(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if messageType != websocket.TextMessage {
		t.Fatalf("messageType=%d, want text", messageType)
	}
	return string(data)
}

func TestConnectRegistersThenAttaches(t *testing.T) {
	reg := NewRegistry()
	pipe := newFakePipeline()
	ts := httptest.NewServer(NewServer(reg, pipe, nil).Routes())
	defer ts.Close()

	conn := dial(t, ts, "/ws/alice")
	defer conn.Close()

	pipe.waitCall(t, "attach:alice")
	if reg.Count() != 1 {
		t.Fatalf("count=%d, want 1", reg.Count())
	}
}

func TestTriggerIsRoutedToPipeline(t *testing.T) {
	reg := NewRegistry()
	pipe := newFakePipeline()
	ts := httptest.NewServer(NewServer(reg, pipe, nil).Routes())
	defer ts.Close()

	conn := dial(t, ts, "/ws/alice")
	defer conn.Close()
	pipe.waitCall(t, "attach:alice")

	err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"start_recording"}`))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	pipe.waitCall(t, "trigger:alice")
}

func TestMalformedMessageYieldsFormatNotice(t *testing.T) {
	reg := NewRegistry()
	pipe := newFakePipeline()
	ts := httptest.NewServer(NewServer(reg, pipe, nil).Routes())
	defer ts.Close()

	conn := dial(t, ts, "/ws/alice")
	defer conn.Close()
	pipe.waitCall(t, "attach:alice")

	conn.WriteMessage(websocket.TextMessage, []byte("definitely not json"))
	if got := readText(t, conn); got != noticeInvalidMessage {
		t.Fatalf("notice=%q, want %q", got, noticeInvalidMessage)
	}
}

func TestUnknownCommandYieldsCommandNotice(t *testing.T) {
	reg := NewRegistry()
	pipe := newFakePipeline()
	ts := httptest.NewServer(NewServer(reg, pipe, nil).Routes())
	defer ts.Close()

	conn := dial(t, ts, "/ws/alice")
	defer conn.Close()
	pipe.waitCall(t, "attach:alice")

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"stop_dancing"}`))
	if got := readText(t, conn); got != noticeUnknownCommand {
		t.Fatalf("notice=%q, want %q", got, noticeUnknownCommand)
	}
}

func TestDisconnectDetachesAndUnregisters(t *testing.T) {
	reg := NewRegistry()
	pipe := newFakePipeline()
	ts := httptest.NewServer(NewServer(reg, pipe, nil).Routes())
	defer ts.Close()

	conn := dial(t, ts, "/ws/alice")
	pipe.waitCall(t, "attach:alice")

	conn.Close()
	pipe.waitCall(t, "detach:alice")

	deadline := time.Now().Add(2 * time.Second)
	for reg.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("count=%d, want 0 after disconnect", reg.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMissingClientIDGetsGenerated(t *testing.T) {
	reg := NewRegistry()
	pipe := newFakePipeline()
	ts := httptest.NewServer(NewServer(reg, pipe, nil).Routes())
	defer ts.Close()

	conn := dial(t, ts, "/ws/")
	defer conn.Close()

	select {
	case got := <-pipe.calls:
		if !strings.HasPrefix(got, "attach:") || len(got) == len("attach:") {
			t.Fatalf("call=%q, want attach with generated id", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no attach within 2s")
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := httptest.NewServer(NewServer(NewRegistry(), newFakePipeline(), nil).Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body=%v, want status ok", body)
	}
}
