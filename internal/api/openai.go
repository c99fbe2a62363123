package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"guild-battle-tracker/internal/config"
	"guild-battle-tracker/internal/constants"
	"strings"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// transcriptionPrompt asks for the CSV layout analysis.ParseTranscriptCSV reads.
const transcriptionPrompt = `You are reading a guild battle leaderboard screenshot.
Return ONLY CSV with this exact header and one row per player:
Rank,Player Name,RVD Damage,RVD Unit,RVD Battles,AoD Damage,AoD Unit,AoD Battles,LA Damage,LA Unit,LA Battles,Guild Rank
Damage is the number as shown, Unit is the word or letter after it (Billion, Million, B, M, K) or empty.
Battles is the ticket count without the leading x. Use N/A when a boss has no entry.
Guild Rank is Leader, Officer or Member when shown, otherwise empty. Do not invent players.`

// OpenAIClient transcribes screenshots with a vision capable chat model.
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *httpClient
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func NewOpenAIClient(cfg *config.Config, logger zerolog.Logger) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  cfg.OpenAIAPIKey,
		model:   cfg.OpenAIModel,
		baseURL: strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		http:    newHTTPClient("openai", constants.TranscriptionTimeout, logger),
	}
}

// TranscribeCSV returns the model's CSV transcription of one screenshot.
func (c *OpenAIClient) TranscribeCSV(ctx context.Context, image []byte, mimeType string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("openai: %w", ErrNotConfigured)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: transcriptionPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: "Transcribe this leaderboard."},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			}},
		},
		Temperature: 0,
		MaxTokens:   4096,
	}

	resp, err := doRequest[chatResponse](ctx, c.http, request{
		method:  fasthttp.MethodPost,
		url:     c.baseURL + "/v1/chat/completions",
		headers: map[string]string{"Authorization": "Bearer " + c.apiKey},
		body:    body,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
