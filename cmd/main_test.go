package main

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/rolecall/domain/repositories"
	"github.com/satriahrh/rolecall/internal/config"
)

func TestNewLanguageModelRouter(t *testing.T) {
	tests := []struct {
		name           string
		defaultBackend string
		wantMock       bool
		wantOllama     bool
	}{
		{name: "ollama default", defaultBackend: "ollama", wantMock: false, wantOllama: true},
		{name: "openai default without key", defaultBackend: "openai", wantMock: false, wantOllama: true},
		{name: "mock default", defaultBackend: "mock", wantMock: true, wantOllama: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				LLMDefaultBackend: tt.defaultBackend,
				OllamaURL:         "http://localhost:11434",
				OllamaModel:       "mistral",
				LLMTimeout:        time.Second,
			}

			router := newLanguageModelRouter(context.Background(), cfg, zaptest.NewLogger(t))

			if got := router.Has(repositories.BackendMock); got != tt.wantMock {
				t.Errorf("Has(mock) = %v, want %v", got, tt.wantMock)
			}
			if got := router.Has(repositories.BackendOllama); got != tt.wantOllama {
				t.Errorf("Has(ollama) = %v, want %v", got, tt.wantOllama)
			}
			if router.Has(repositories.BackendOpenAI) || router.Has(repositories.BackendGemini) {
				t.Error("backends without credentials must not be registered")
			}
		})
	}
}
