package synth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	openai "github.com/openai/openai-go/v3"
)

type OpenAIConfig struct {
	Model        string
	Voice        string
	Instructions string
	ChunkSize    int
}

// OpenAI streams PCM from the hosted TTS endpoint and accumulates it into a
// single payload. Streaming is internal buffering only; callers always get
// the complete audio.
type OpenAI struct {
	client openai.Client
	cfg    OpenAIConfig
}

func NewOpenAI(client openai.Client, cfg OpenAIConfig) *OpenAI {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1024
	}
	return &OpenAI{client: client, cfg: cfg}
}

func (o *OpenAI) Synthesize(ctx context.Context, text string) ([]byte, error) {
	start := time.Now()

	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(o.cfg.Model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.cfg.Voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	}
	if o.cfg.Instructions != "" {
		params.Instructions = openai.String(o.cfg.Instructions)
	}

	resp, err := o.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	var (
		out   []byte
		buf   = make([]byte, o.cfg.ChunkSize)
		first = true
	)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if first {
				slog.Debug("tts first byte", "elapsed", time.Since(start))
				first = false
			}
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read stream: %v", ErrBackend, err)
		}
	}

	slog.Info("tts synthesis done", "elapsed", time.Since(start), "bytes", len(out))
	return out, nil
}
