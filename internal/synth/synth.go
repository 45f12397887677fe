// Package synth renders reply text as audio.
package synth

import (
	"context"
	"errors"
)

// ErrBackend reports that the synthesis call failed.
var ErrBackend = errors.New("synth: backend call failed")

// Synthesizer converts text to one fully-assembled audio payload. The
// output format is whatever the backend was configured for; this service
// uses 16-bit linear PCM, mono, 24 kHz.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
