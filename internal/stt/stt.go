// Package stt turns captured audio into text.
package stt

import (
	"context"
	"errors"
	"strings"

	"github.com/Kewton/voice-chat-app/internal/capture"
)

// ErrUnrecognized reports that the audio contained no recognizable speech.
var ErrUnrecognized = errors.New("stt: could not understand audio")

// ErrUnavailable reports that the recognition backend failed or is down.
var ErrUnavailable = errors.New("stt: recognition service unavailable")

// Transcriber converts one utterance into text. language is a BCP-47 tag
// such as "ja-JP"; implementations narrow it as their backend requires.
type Transcriber interface {
	Transcribe(ctx context.Context, clip capture.Clip, language string) (string, error)
}

// primarySubtag reduces "ja-JP" to "ja". Empty input maps to "auto".
func primarySubtag(language string) string {
	lang, _, _ := strings.Cut(language, "-")
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "auto"
	}
	return strings.ToLower(lang)
}
