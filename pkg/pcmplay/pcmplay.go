// Package pcmplay plays raw 16-bit mono PCM through the default output
// device. Used by the terminal client to voice server replies.
package pcmplay

import (
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"github.com/Kewton/voice-chat-app/pkg/audioconv"
)

var (
	initOnce sync.Once
	initErr  error
)

// Play blocks until the payload has been played out.
func Play(pcm []byte, rate int) error {
	samples := audioconv.PCM16ToFloat32(pcm)
	if len(samples) == 0 {
		return nil
	}

	sr := beep.SampleRate(rate)
	initOnce.Do(func() {
		initErr = speaker.Init(sr, sr.N(time.Second/10))
	})
	if initErr != nil {
		return initErr
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(&monoStreamer{samples: samples}, beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}

type monoStreamer struct {
	samples []float32
	pos     int
}

func (m *monoStreamer) Stream(out [][2]float64) (int, bool) {
	if m.pos >= len(m.samples) {
		return 0, false
	}
	n := 0
	for i := range out {
		if m.pos >= len(m.samples) {
			break
		}
		v := float64(m.samples[m.pos])
		out[i][0] = v
		out[i][1] = v
		m.pos++
		n++
	}
	return n, true
}

func (m *monoStreamer) Err() error { return nil }
