// Package config reads service settings from the environment. Call
// godotenv.Load first if an env file should participate.
package config

import (
	"os"
	"strconv"
	"time"
)

// personaPrompt wraps every recognized utterance before it reaches the
// dialogue backend. The reply style of the whole service lives here.
const personaPrompt = `あなたはてぃ先生です。保育士のプロです。
質問に対し3~4歳児向けに回答し、150~200文字程度に要約し端的に回答してください。質問は次です。
`

type Config struct {
	Addr string

	OpenAIAPIKey string
	GoogleAPIKey string

	ListenTimeout time.Duration
	PhraseLimit   time.Duration
	Language      string

	GeminiModel       string
	GeminiTemperature float32
	GeminiTopP        float32
	GeminiTopK        float32
	GeminiMaxTokens   int32

	ChatModel string

	TTSModel        string
	TTSVoice        string
	TTSInstructions string
	TTSChunkSize    int

	DebugMode     bool
	AudioSavePath string

	PersonaPrompt string
}

func Load() Config {
	return Config{
		Addr: envStr("VOICECHAT_ADDR", ":5000"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),

		ListenTimeout: envSeconds("SR_TIMEOUT", 5),
		PhraseLimit:   envSeconds("SR_PHRASE_TIME_LIMIT", 8),
		Language:      envStr("SR_LANGUAGE", "ja-JP"),

		GeminiModel:       envStr("GEMINI_MODEL_NAME", "gemini-1.5-flash"),
		GeminiTemperature: envFloat32("GEMINI_TEMPERATURE", 0.9),
		GeminiTopP:        envFloat32("GEMINI_TOP_P", 1.0),
		GeminiTopK:        envFloat32("GEMINI_TOP_K", 1),
		GeminiMaxTokens:   int32(envInt("GEMINI_MAX_OUTPUT_TOKENS", 2048)),

		ChatModel: envStr("CHAT_MODEL_NAME", "gpt-5-nano"),

		TTSModel:        envStr("TTS_MODEL_NAME", "gpt-4o-mini-tts"),
		TTSVoice:        envStr("TTS_VOICE", "coral"),
		TTSInstructions: envStr("TTS_INSTRUCTIONS", "Speak in a cheerful and positive tone."),
		TTSChunkSize:    envInt("TTS_CHUNK_SIZE", 1024),

		DebugMode:     envBool("DEBUG_MODE", false),
		AudioSavePath: envStr("AUDIO_SAVE_PATH", "tmp"),

		PersonaPrompt: envStr("PERSONA_PROMPT", personaPrompt),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envSeconds(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Second
}

func envFloat32(key string, def float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
