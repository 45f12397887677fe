package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Protocol notices, sent verbatim to clients.
const (
	noticeUnknownCommand = "不明なコマンドです。"
	noticeInvalidMessage = "無効なメッセージ形式です。"
)

// Pipeline is the per-client session lifecycle the transport drives.
type Pipeline interface {
	// Attach creates session state for a freshly connected client.
	Attach(clientID string)
	// Detach tears the session down. Safe to call once per connection.
	Detach(clientID string)
	// Trigger starts one pipeline run. Returns false when the client has no
	// session or a run is already active.
	Trigger(clientID string) bool
}

// Server upgrades websocket connections and runs one receive loop per
// client. Slow pipeline runs never block this loop; they execute in their
// own goroutines inside the Pipeline.
type Server struct {
	reg      *Registry
	pipe     Pipeline
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(reg *Registry, pipe Pipeline, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		reg:  reg,
		pipe: pipe,
		log:  log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes returns the HTTP mux: the websocket endpoint plus a health check.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHealth)
	mux.HandleFunc("/ws/", s.handleWS)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"message": "Welcome to Voice Chat API!",
	})
}

type controlMessage struct {
	Type string `json:"type"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	clientID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws/"), "/")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "client", clientID, "err", err)
		return
	}
	defer conn.Close()

	// Register before attach so the session can emit from its first run.
	s.reg.Register(clientID, conn)
	s.pipe.Attach(clientID)
	s.log.Info("client connected", "client", clientID, "total", s.reg.Count())

	defer func() {
		s.pipe.Detach(clientID)
		s.reg.Unregister(clientID)
		s.log.Info("client disconnected", "client", clientID, "total", s.reg.Count())
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				s.log.Warn("read failed", "client", clientID, "err", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("invalid control message", "client", clientID, "raw", string(data))
			s.reg.SendText(clientID, noticeInvalidMessage)
			continue
		}

		switch msg.Type {
		case "start_recording":
			if !s.pipe.Trigger(clientID) {
				s.log.Warn("trigger rejected", "client", clientID)
			}
		default:
			s.log.Warn("unknown command", "client", clientID, "type", msg.Type)
			s.reg.SendText(clientID, noticeUnknownCommand)
		}
	}
}
