package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain/repositories"
)

// maxResponseBody bounds how much of a model response is read
const maxResponseBody = 4 << 20

// OllamaConfig holds configuration for a local Ollama server
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OllamaLLM implements the LanguageModel interface against Ollama's /api/chat
type OllamaLLM struct {
	config     OllamaConfig
	httpClient *http.Client
	logger     *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// NewOllamaLLM creates a new Ollama client
func NewOllamaLLM(config OllamaConfig, logger *zap.Logger) *OllamaLLM {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &OllamaLLM{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// Chat sends one stateless system+user turn
func (o *OllamaLLM) Chat(ctx context.Context, req repositories.ChatRequest) (string, error) {
	payload := ollamaChatRequest{
		Model: o.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserText},
		},
		Stream: false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(o.config.BaseURL, "/") + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	o.logger.Debug("Sending chat request to Ollama",
		zap.String("model", o.config.Model),
		zap.Int("userTextLength", len(req.UserText)))

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("failed to read ollama response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	reply, err := ExtractReply(respBody)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	return reply, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
