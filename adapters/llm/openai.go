package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain/repositories"
)

// OpenAIConfig holds configuration for an OpenAI compatible chat completions API
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAILLM implements the LanguageModel interface against /chat/completions
type OpenAILLM struct {
	config     OpenAIConfig
	httpClient *http.Client
	logger     *zap.Logger
}

type openAIChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// NewOpenAILLM creates a new OpenAI compatible client
func NewOpenAILLM(config OpenAIConfig, logger *zap.Logger) (*OpenAILLM, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &OpenAILLM{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// Chat sends one stateless system+user turn
func (o *OpenAILLM) Chat(ctx context.Context, req repositories.ChatRequest) (string, error) {
	body, err := json.Marshal(openAIChatRequest{
		Model: o.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserText},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(o.config.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.config.APIKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("failed to read openai response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		o.logger.Warn("OpenAI returned non-OK status",
			zap.Int("status", resp.StatusCode),
			zap.String("model", o.config.Model))
		return "", fmt.Errorf("openai returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	reply, err := ExtractReply(respBody)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	return reply, nil
}
