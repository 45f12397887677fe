package capture

import (
	"context"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	micRate       = 16000
	micFrameSize  = 320 // 20ms
	silenceRMS    = 0.015
	silenceWindow = 600 * time.Millisecond
)

// Mic records from the default input device via portaudio.
type Mic struct{}

func NewMic() *Mic { return &Mic{} }

func (m *Mic) Init() error {
	return portaudio.Initialize()
}

func (m *Mic) Close() {
	portaudio.Terminate()
}

// Listen waits up to timeout for the RMS level to cross the speech
// threshold, then records until silenceWindow of quiet or phraseLimit,
// whichever comes first.
func (m *Mic) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (Clip, error) {
	buf := make([]float32, micFrameSize)
	out := make([]float32, 0, micRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, micRate, len(buf), buf)
	if err != nil {
		return Clip{}, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return Clip{}, err
	}
	defer stream.Stop()

	const frameDur = time.Duration(micFrameSize) * time.Second / micRate

	var (
		speaking  bool
		silentFor time.Duration
		waited    time.Duration
		spokenFor time.Duration
	)

	for {
		select {
		case <-ctx.Done():
			return Clip{}, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return Clip{}, err
		}

		if frameRMS(buf) > silenceRMS {
			speaking = true
			silentFor = 0
			out = append(out, buf...)
			spokenFor += frameDur
		} else if speaking {
			silentFor += frameDur
			if silentFor >= silenceWindow {
				break
			}
			out = append(out, buf...)
			spokenFor += frameDur
		} else {
			waited += frameDur
			if waited >= timeout {
				return Clip{}, ErrTimedOut
			}
		}

		if speaking && spokenFor >= phraseLimit {
			break
		}
	}

	return Clip{Samples: out, Rate: micRate}, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
