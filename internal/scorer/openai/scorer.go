package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"news_curator/internal/ranker"
)

const systemPrompt = "You rate news articles for a legal-tech audience. " +
	"Given a title and text, answer with a single number from 0 to 10 " +
	"for how important the article is. Answer with the number only."

// numberRe pulls the first numeric token out of a chatty completion.
var numberRe = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

// Config holds the chat-completions endpoint configuration. BaseURL
// points at an OpenAI-compatible API root.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Scorer rates articles through an OpenAI-compatible chat endpoint.
type Scorer struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Scorer {
	return &Scorer{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		logger:  logger.With("component", "scorer"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Score asks the model for an importance rating. A response that is not
// a number comes back wrapped in ranker.ErrUnparseable so the caller can
// fall back to the neutral default instead of the minimum.
func (s *Scorer) Score(ctx context.Context, title, bodyExcerpt, sourceName string) (float64, error) {
	userPrompt := fmt.Sprintf("Source: %s\nTitle: %s\n\n%s", sourceName, title, bodyExcerpt)

	payload, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return 0, fmt.Errorf("empty choices: %w", ranker.ErrUnparseable)
	}

	return parseScore(chatResp.Choices[0].Message.Content)
}

func parseScore(content string) (float64, error) {
	content = strings.TrimSpace(content)

	if value, err := strconv.ParseFloat(strings.ReplaceAll(content, ",", "."), 64); err == nil {
		return value, nil
	}

	// Models sometimes wrap the number in prose despite the prompt.
	if match := numberRe.FindString(content); match != "" {
		if value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64); err == nil {
			return value, nil
		}
	}

	return 0, fmt.Errorf("no numeric score in %q: %w", content, ranker.ErrUnparseable)
}
