package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/aidyn-m/qazexam/config"
)

// Transcriber converts a speaking recording into plain text for keyword
// grading.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type geminiTranscriber struct {
	model *genai.GenerativeModel
}

func NewGeminiTranscriber(cfg *config.Config) (Transcriber, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. Transcription will be non-functional.")
		return &geminiTranscriber{model: nil}, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return &geminiTranscriber{model: client.GenerativeModel("gemini-1.5-flash")}, nil
}

func (t *geminiTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if t.model == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("audio payload is empty")
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	prompt := "Transcribe this audio recording verbatim. " +
		"Return only the spoken words as plain text, with no commentary, labels or formatting."

	parts := []genai.Part{
		genai.Blob{MIMEType: mimeType, Data: audio},
		genai.Text(prompt),
	}

	resp, err := t.model.GenerateContent(ctx, parts...)
	if err != nil {
		log.Error().Err(err).Str("mimeType", mimeType).Msg("Transcription request failed")
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("transcription returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
