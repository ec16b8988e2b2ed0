package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBackend is returned for backend selectors outside the supported set
var ErrUnknownBackend = errors.New("unknown language model backend")

// Backend selects which language model provider answers a turn
type Backend string

const (
	BackendOllama Backend = "ollama"
	BackendOpenAI Backend = "openai"
	BackendGemini Backend = "gemini"
	BackendMock   Backend = "mock"
)

// Backends lists every supported backend
var Backends = []Backend{BackendOllama, BackendOpenAI, BackendGemini, BackendMock}

// ParseBackend validates a client supplied backend selector
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Backends {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}

// ChatRequest is a single stateless turn sent to a language model
type ChatRequest struct {
	Backend      Backend
	SystemPrompt string
	UserText     string
}

// LanguageModel abstracts any chat/LLM provider
type LanguageModel interface {
	// Chat returns the model's reply for one turn
	Chat(ctx context.Context, req ChatRequest) (string, error)
}
