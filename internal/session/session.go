// Package session drives one client's interaction cycle: capture a phrase,
// transcribe it, ask the dialogue backend, synthesize the reply, deliver the
// audio. At most one run per client is ever in flight; runs for different
// clients proceed independently.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Kewton/voice-chat-app/internal/capture"
	"github.com/Kewton/voice-chat-app/internal/convo"
	"github.com/Kewton/voice-chat-app/internal/dialogue"
	"github.com/Kewton/voice-chat-app/internal/stt"
	"github.com/Kewton/voice-chat-app/internal/synth"
	"github.com/Kewton/voice-chat-app/pkg/audioconv"
)

// Notices sent verbatim to clients, one per pipeline run.
const (
	noticeTimeout       = "..."
	noticeUnrecognized  = "ごめんなさい、よく聞き取れませんでした。"
	noticeSpeechService = "音声認識サービスでエラーが発生しました。"
	noticeProcessing    = "処理中にエラーが発生しました。"
)

// State is the pipeline position of one client session.
type State int

const (
	Idle State = iota
	Listening
	Transcribing
	Conversing
	Synthesizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Transcribing:
		return "transcribing"
	case Conversing:
		return "conversing"
	case Synthesizing:
		return "synthesizing"
	}
	return "unknown"
}

// Sender delivers outbound events. Sends to departed clients must be
// silent no-ops.
type Sender interface {
	SendText(clientID, message string)
	SendBinary(clientID string, payload []byte)
}

type Config struct {
	ListenTimeout time.Duration
	PhraseLimit   time.Duration
	Language      string
	// PersonaPrompt is prepended to every recognized utterance before it is
	// committed to history and sent to the dialogue backend.
	PersonaPrompt string
	// DebugAudioDir, when non-empty, receives a WAV of every captured
	// utterance.
	DebugAudioDir string
}

type Orchestrator struct {
	cfg      Config
	store    *convo.Store
	sender   Sender
	capture  capture.Source
	stt      stt.Transcriber
	dialogue dialogue.Backend
	synth    synth.Synthesizer
	log      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*clientSession
}

type clientSession struct {
	state State
}

func NewOrchestrator(
	cfg Config,
	store *convo.Store,
	sender Sender,
	src capture.Source,
	tr stt.Transcriber,
	dlg dialogue.Backend,
	syn synth.Synthesizer,
	log *slog.Logger,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		sender:   sender,
		capture:  src,
		stt:      tr,
		dialogue: dlg,
		synth:    syn,
		log:      log,
		sessions: make(map[string]*clientSession),
	}
}

// Attach creates fresh session state for clientID. An existing session for
// the same id is replaced, never merged; its in-flight run, if any, finishes
// against empty history and delivers nothing.
func (o *Orchestrator) Attach(clientID string) {
	o.mu.Lock()
	o.sessions[clientID] = &clientSession{state: Idle}
	o.mu.Unlock()
	o.store.Create(clientID)
	o.log.Info("session attached", "client", clientID)
}

// Detach destroys the session and its history. Idempotent.
func (o *Orchestrator) Detach(clientID string) {
	o.mu.Lock()
	_, existed := o.sessions[clientID]
	delete(o.sessions, clientID)
	o.mu.Unlock()
	o.store.Destroy(clientID)
	if existed {
		o.log.Info("session detached", "client", clientID)
	}
}

// Trigger starts one pipeline run in its own goroutine. Returns false when
// no session exists or one is already running; a rejected trigger never
// interrupts or queues behind the active run.
func (o *Orchestrator) Trigger(clientID string) bool {
	o.mu.Lock()
	sess, ok := o.sessions[clientID]
	if !ok || sess.state != Idle {
		o.mu.Unlock()
		return false
	}
	sess.state = Listening
	o.mu.Unlock()

	go o.run(clientID, sess)
	return true
}

func (o *Orchestrator) state(clientID string) (State, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess, ok := o.sessions[clientID]
	if !ok {
		return Idle, false
	}
	return sess.state, true
}

func (o *Orchestrator) setState(sess *clientSession, s State) {
	o.mu.Lock()
	sess.state = s
	o.mu.Unlock()
}

// owns reports whether sess is still the registered session for clientID.
// False after a detach or a replacing attach; a stale run must stop writing
// history at that point.
func (o *Orchestrator) owns(clientID string, sess *clientSession) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessions[clientID] == sess
}

// run executes one full pipeline. It emits exactly one client-visible event
// per run and returns the session to Idle unconditionally. Every failure is
// absorbed here; nothing propagates to the transport loop.
func (o *Orchestrator) run(clientID string, sess *clientSession) {
	delivered := false
	emit := func(message string) {
		delivered = true
		o.sender.SendText(clientID, message)
	}
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("pipeline panic", "client", clientID, "panic", r)
			if !delivered {
				o.sender.SendText(clientID, noticeProcessing)
			}
		}
		o.setState(sess, Idle)
	}()

	ctx := context.Background()

	o.log.Info("listening", "client", clientID,
		"timeout", o.cfg.ListenTimeout, "limit", o.cfg.PhraseLimit)
	clip, err := o.capture.Listen(ctx, o.cfg.ListenTimeout, o.cfg.PhraseLimit)
	if errors.Is(err, capture.ErrTimedOut) {
		o.log.Warn("listening timed out", "client", clientID)
		emit(noticeTimeout)
		return
	}
	if err != nil {
		o.log.Error("capture failed", "client", clientID, "err", err)
		emit(noticeProcessing)
		return
	}
	o.log.Info("captured", "client", clientID, "duration", clip.Duration())

	o.setState(sess, Transcribing)
	o.saveDebugAudio(clientID, clip)

	text, err := o.stt.Transcribe(ctx, clip, o.cfg.Language)
	if errors.Is(err, stt.ErrUnrecognized) {
		o.log.Warn("speech not understood", "client", clientID)
		emit(noticeUnrecognized)
		return
	}
	if err != nil {
		o.log.Error("transcription failed", "client", clientID, "err", err)
		emit(noticeSpeechService)
		return
	}
	o.log.Info("transcribed", "client", clientID, "text", text)

	prompt := o.cfg.PersonaPrompt + text

	// Prior context is snapshotted before the new turn is committed: the
	// dialogue backend takes history and the new message separately.
	if !o.owns(clientID, sess) {
		o.log.Debug("session replaced mid-run", "client", clientID)
		return
	}
	prior, err := o.store.Snapshot(clientID)
	if err != nil {
		o.log.Debug("session gone before dialogue", "client", clientID)
		return
	}
	if err := o.store.Append(clientID, convo.Turn{Role: convo.RoleUser, Content: prompt}); err != nil {
		o.log.Debug("session gone before dialogue", "client", clientID)
		return
	}

	o.setState(sess, Conversing)
	reply, err := o.dialogue.Reply(ctx, prior, prompt)
	if err != nil {
		// Roll the user turn back so history never holds an unanswered turn.
		o.store.PopLastIf(clientID, func(t convo.Turn) bool {
			return t.Role == convo.RoleUser && t.Content == prompt
		})
		o.log.Error("dialogue failed", "client", clientID, "err", err)
		emit(noticeProcessing)
		return
	}
	o.log.Info("reply", "client", clientID, "text", reply)

	// The client may have disconnected or reconnected mid-run; a late
	// assistant turn must not land in a session this run no longer owns.
	// The send below becomes a no-op in the registry either way.
	if o.owns(clientID, sess) {
		if err := o.store.Append(clientID, convo.Turn{Role: convo.RoleAssistant, Content: reply}); err != nil {
			o.log.Debug("session gone before synthesis", "client", clientID)
		}
	}

	o.setState(sess, Synthesizing)
	audio, err := o.synth.Synthesize(ctx, reply)
	if err != nil {
		// The textual exchange succeeded; committed history stays.
		o.log.Error("synthesis failed", "client", clientID, "err", err)
		emit(noticeProcessing)
		return
	}

	delivered = true
	o.sender.SendBinary(clientID, audio)
}

func (o *Orchestrator) saveDebugAudio(clientID string, clip capture.Clip) {
	if o.cfg.DebugAudioDir == "" {
		return
	}
	if err := os.MkdirAll(o.cfg.DebugAudioDir, 0o755); err != nil {
		o.log.Error("debug audio dir", "err", err)
		return
	}
	now := time.Now()
	name := fmt.Sprintf("audio_%s_%s_%06d.wav",
		clientID, now.Format("20060102_150405"), now.Nanosecond()/1000)
	path := filepath.Join(o.cfg.DebugAudioDir, name)
	if err := audioconv.WriteWAVFile(path, clip.Samples, clip.Rate); err != nil {
		o.log.Error("debug audio save failed", "client", clientID, "err", err)
		return
	}
	o.log.Info("debug audio saved", "path", path)
}
