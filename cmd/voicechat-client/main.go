package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"github.com/Kewton/voice-chat-app/pkg/audioconv"
	"github.com/Kewton/voice-chat-app/pkg/pcmplay"
)

// Replies arrive as raw 16-bit PCM at the synthesis backend's output rate.
const replyRate = 24000

func main() {
	url := cli.StringP("url", "u", "ws://localhost:5000", "Server base URL")
	clientID := cli.StringP("id", "i", "", "Client id (random when empty)")
	saveDir := cli.StringP("save", "s", "", "Also save received audio as WAV files here")
	mute := cli.BoolP("mute", "m", false, "Do not play received audio")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{Level: log.LevelInfo})))

	id := *clientID
	if id == "" {
		id = uuid.NewString()
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url+"/ws/"+id, nil)
	if err != nil {
		log.Error("failed to connect", "url", *url, "err", err)
		os.Exit(1)
	}
	defer conn.Close()
	log.Info("connected", "id", id)

	go func() {
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				log.Error("connection closed", "err", err)
				os.Exit(1)
			}
			switch messageType {
			case websocket.TextMessage:
				fmt.Printf("server: %s\n", data)
			case websocket.BinaryMessage:
				log.Info("audio received", "bytes", len(data))
				if *saveDir != "" {
					saveWAV(*saveDir, data)
				}
				if !*mute {
					if err := pcmplay.Play(data, replyRate); err != nil {
						log.Error("playback failed", "err", err)
					}
				}
			}
		}
	}()

	fmt.Println("Press Enter to talk, Ctrl-D to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"start_recording"}`))
		if err != nil {
			log.Error("failed to send trigger", "err", err)
			os.Exit(1)
		}
		log.Info("recording requested")
	}
}

func saveWAV(dir string, pcm []byte) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error("save dir", "err", err)
		return
	}
	name := fmt.Sprintf("reply_%s.wav", time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)
	samples := audioconv.PCM16ToFloat32(pcm)
	if err := audioconv.WriteWAVFile(path, samples, replyRate); err != nil {
		log.Error("save failed", "err", err)
		return
	}
	log.Info("saved", "path", path)
}
