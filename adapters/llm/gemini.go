package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/rolecall/domain/repositories"
)

const (
	defaultGeminiModel = "gemini-2.5-flash"
	geminiAttempts     = 3
)

// GeminiConfig holds configuration for the Gemini API
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return errors.New("Google AI API key is required")
	}

	// Validate temperature is in the valid range
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", config.MaxOutputTokens)
	}

	return nil
}

// GeminiLLM implements the LanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client *genai.Client
	logger *zap.Logger
	config GeminiConfig
}

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}
	if config.Model == "" {
		config.Model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", config.Model))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiLLM{
		client: client,
		logger: logger,
		config: config,
	}, nil
}

// Chat sends one stateless turn with the role prompt as system instruction
func (g *GeminiLLM) Chat(ctx context.Context, req repositories.ChatRequest) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(req.UserText, genai.RoleUser)}

	config := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if g.config.Temperature > 0 {
		config.Temperature = genai.Ptr(g.config.Temperature)
	}
	if g.config.MaxOutputTokens > 0 {
		config.MaxOutputTokens = g.config.MaxOutputTokens
	}

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < geminiAttempts; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.config.Model, contents, config)
		if err == nil {
			break
		}

		g.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < geminiAttempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := responseText(response)
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrNoReply)
	}
	return text, nil
}

// responseText joins the text parts of the first candidate
func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
