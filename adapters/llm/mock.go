package llm

import (
	"context"
	"fmt"

	"github.com/satriahrh/rolecall/domain/repositories"
)

// MockLLM is a deterministic offline language model for development and tests
type MockLLM struct{}

// NewMockLLM creates a new mock language model
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Chat implements repositories.LanguageModel
func (m *MockLLM) Chat(ctx context.Context, req repositories.ChatRequest) (string, error) {
	if req.UserText == "" {
		return "Hello! What would you like to talk about today?", nil
	}
	return fmt.Sprintf("You said '%s'. What makes you say that?", req.UserText), nil
}
