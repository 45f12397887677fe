// Package dialogue produces an assistant reply from conversation context.
// Backends are stateless per call: prior turns travel separately from the
// new utterance because the hosted chat APIs distinguish the two.
package dialogue

import (
	"context"
	"errors"

	"github.com/Kewton/voice-chat-app/internal/convo"
)

// ErrBackend reports that the language-model call failed.
var ErrBackend = errors.New("dialogue: backend call failed")

type Backend interface {
	// Reply generates a reply to prompt given the committed prior history.
	// history must not include prompt itself.
	Reply(ctx context.Context, history []convo.Turn, prompt string) (string, error)
}
