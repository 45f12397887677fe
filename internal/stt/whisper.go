package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/Kewton/voice-chat-app/internal/capture"
	"github.com/Kewton/voice-chat-app/pkg/audioconv"
)

// Whisper transcribes locally through whisper.cpp. Lets the daemon run
// without a hosted recognition service.
type Whisper struct {
	model whisper.Model
}

func NewWhisper(modelPath string) (*Whisper, error) {
	if modelPath == "" {
		return nil, errors.New("stt: empty whisper model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("stt: load whisper model: %w", err)
	}
	return &Whisper{model: m}, nil
}

func (w *Whisper) Close() error {
	if w.model == nil {
		return nil
	}
	return w.model.Close()
}

func (w *Whisper) Transcribe(ctx context.Context, clip capture.Clip, language string) (string, error) {
	if len(clip.Samples) == 0 {
		return "", ErrUnrecognized
	}

	samples := clip.Samples
	if clip.Rate != audioconv.TargetRate && clip.Rate > 0 {
		samples = audioconv.ResampleLinear(samples, clip.Rate, audioconv.TargetRate)
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("%w: new context: %v", ErrUnavailable, err)
	}

	if err := wctx.SetLanguage(primarySubtag(language)); err != nil {
		return "", fmt.Errorf("stt: set language: %w", err)
	}
	wctx.SetThreads(uint(runtime.NumCPU()))

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("%w: process: %v", ErrUnavailable, err)
	}

	var parts []string
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: next segment: %v", ErrUnavailable, err)
		}
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return "", ErrUnrecognized
	}
	return text, nil
}
