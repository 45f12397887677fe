package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/genai"

	"github.com/Kewton/voice-chat-app/internal/capture"
	"github.com/Kewton/voice-chat-app/internal/config"
	"github.com/Kewton/voice-chat-app/internal/convo"
	"github.com/Kewton/voice-chat-app/internal/dialogue"
	"github.com/Kewton/voice-chat-app/internal/ipc"
	"github.com/Kewton/voice-chat-app/internal/proxy"
	"github.com/Kewton/voice-chat-app/internal/relay"
	"github.com/Kewton/voice-chat-app/internal/session"
	"github.com/Kewton/voice-chat-app/internal/stt"
	"github.com/Kewton/voice-chat-app/internal/synth"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	addr := cli.StringP("addr", "a", "", "Listen address (overrides VOICECHAT_ADDR)")
	proxyAddr := cli.StringP("proxy", "p", "", "SOCKS proxy address for API traffic")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	captureDir := cli.String("capture-dir", "", "Replay audio files from this directory instead of the microphone")
	whisperModel := cli.String("whisper-model", "", "Path to a local whisper.cpp model (hosted STT when empty)")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	cfg := config.Load()
	if *addr != "" {
		cfg.Addr = *addr
	}

	if cfg.OpenAIAPIKey == "" {
		log.Error("OPENAI_API_KEY not set")
		os.Exit(1)
	}

	apiOpts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if *proxyAddr != "" {
		httpClient, err := proxy.NewSocksClient(*proxyAddr)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
			os.Exit(1)
		}
		apiOpts = append(apiOpts, option.WithHTTPClient(httpClient))
		log.Debug("Loaded proxy")
	}
	client := openai.NewClient(apiOpts...)

	var src capture.Source
	if *captureDir != "" {
		src = capture.NewDirSource(*captureDir)
		log.Info("Using directory capture", "dir", *captureDir)
	} else {
		mic := capture.NewMic()
		if err := mic.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
			os.Exit(1)
		}
		defer mic.Close()
		src = mic
		log.Debug("Loaded recorder")
	}

	var transcriber stt.Transcriber
	if *whisperModel != "" {
		whisper, err := stt.NewWhisper(*whisperModel)
		if err != nil {
			log.Error("Failed to init whisper", "err", err)
			os.Exit(1)
		}
		defer whisper.Close()
		transcriber = whisper
		log.Debug("Loaded whisper")
	} else {
		transcriber = stt.NewOpenAI(client)
	}

	var backend dialogue.Backend
	if cfg.GoogleAPIKey != "" {
		gc, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: cfg.GoogleAPIKey})
		if err != nil {
			log.Error("Failed to init genai client", "err", err)
			os.Exit(1)
		}
		backend = dialogue.NewGemini(gc, dialogue.GeminiConfig{
			Model:           cfg.GeminiModel,
			Temperature:     cfg.GeminiTemperature,
			TopP:            cfg.GeminiTopP,
			TopK:            cfg.GeminiTopK,
			MaxOutputTokens: cfg.GeminiMaxTokens,
		})
		log.Debug("Loaded gemini backend", "model", cfg.GeminiModel)
	} else {
		backend = dialogue.NewOpenAI(client, cfg.ChatModel)
		log.Debug("Loaded openai chat backend", "model", cfg.ChatModel)
	}

	synthesizer := synth.NewOpenAI(client, synth.OpenAIConfig{
		Model:        cfg.TTSModel,
		Voice:        cfg.TTSVoice,
		Instructions: cfg.TTSInstructions,
		ChunkSize:    cfg.TTSChunkSize,
	})

	debugDir := ""
	if cfg.DebugMode {
		debugDir = cfg.AudioSavePath
	}

	store := convo.NewStore()
	registry := relay.NewRegistry()
	orch := session.NewOrchestrator(session.Config{
		ListenTimeout: cfg.ListenTimeout,
		PhraseLimit:   cfg.PhraseLimit,
		Language:      cfg.Language,
		PersonaPrompt: cfg.PersonaPrompt,
		DebugAudioDir: debugDir,
	}, store, registry, src, transcriber, backend, synthesizer, log.Default())

	server := relay.NewServer(registry, orch, log.Default())
	httpSrv := &http.Server{Addr: cfg.Addr, Handler: server.Routes()}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	if err := ipc.StartServer(func(req ipc.Request) ipc.Response {
		switch req.Cmd {
		case "stats":
			return ipc.Response{OK: true, Clients: registry.Count()}
		case "shutdown":
			quit <- syscall.SIGTERM
			return ipc.Response{OK: true, Clients: registry.Count()}
		default:
			log.Warn("Unknown command", "cmd", req.Cmd)
			return ipc.Response{Error: "unknown command: " + req.Cmd}
		}
	}); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	go func() {
		log.Info("Listening", "addr", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "err", err)
			quit <- syscall.SIGTERM
		}
	}()

	log.Info("Boot up - successful")
	<-quit

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("Shutdown failed", "err", err)
	}
}
