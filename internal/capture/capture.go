// Package capture acquires one spoken utterance per call. The daemon runs on
// the machine that owns the microphone, so capture is a server-side concern;
// a directory-backed source exists for machines without audio hardware.
package capture

import (
	"context"
	"errors"
	"time"
)

// ErrTimedOut reports that no speech started within the configured wait.
var ErrTimedOut = errors.New("capture: listening timed out")

// Clip is one captured utterance as mono float32 samples.
type Clip struct {
	Samples []float32
	Rate    int
}

func (c Clip) Duration() time.Duration {
	if c.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.Rate) * float64(time.Second))
}

// Source captures a single phrase. Listen blocks the calling goroutine up to
// timeout waiting for speech to start and caps the phrase at phraseLimit.
// It returns ErrTimedOut when nothing was spoken in time.
type Source interface {
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) (Clip, error)
}
