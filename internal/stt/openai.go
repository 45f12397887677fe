package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"

	"github.com/Kewton/voice-chat-app/internal/capture"
	"github.com/Kewton/voice-chat-app/pkg/audioconv"
)

// OpenAI transcribes through the hosted whisper-1 endpoint. The clip is
// shipped as an in-memory WAV blob.
type OpenAI struct {
	client openai.Client
}

func NewOpenAI(client openai.Client) *OpenAI {
	return &OpenAI{client: client}
}

func (o *OpenAI) Transcribe(ctx context.Context, clip capture.Clip, language string) (string, error) {
	if len(clip.Samples) == 0 {
		return "", ErrUnrecognized
	}

	blob := audioconv.WAVBytes(clip.Samples, clip.Rate)

	params := openai.AudioTranscriptionNewParams{
		Model: openai.AudioModelWhisper1,
		File:  openai.File(bytes.NewReader(blob), "utterance.wav", "audio/wav"),
	}
	if lang := primarySubtag(language); lang != "auto" {
		params.Language = openai.String(lang)
	}

	res, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", ErrUnrecognized
	}
	return text, nil
}
