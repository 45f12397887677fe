package dialogue

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Kewton/voice-chat-app/internal/convo"
)

type GeminiConfig struct {
	Model           string
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32
}

// Gemini talks to the Google GenAI API.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
}

func NewGemini(client *genai.Client, cfg GeminiConfig) *Gemini {
	return &Gemini{client: client, cfg: cfg}
}

func (g *Gemini) Reply(ctx context.Context, history []convo.Turn, prompt string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		role := genai.RoleUser
		if t.Role == convo.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(t.Content)},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{genai.NewPartFromText(prompt)},
	})

	cfg := &genai.GenerateContentConfig{
		Temperature:     &g.cfg.Temperature,
		TopP:            &g.cfg.TopP,
		TopK:            &g.cfg.TopK,
		MaxOutputTokens: g.cfg.MaxOutputTokens,
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", ErrBackend)
	}
	return reply, nil
}
