package tts

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/internal/audio"
)

// MockTextToSpeech produces silent WAV audio whose length follows the text
type MockTextToSpeech struct {
	logger *zap.Logger
}

// NewMockTextToSpeech creates a new mock synthesizer
func NewMockTextToSpeech(logger *zap.Logger) *MockTextToSpeech {
	return &MockTextToSpeech{logger: logger}
}

// Synthesize implements repositories.TextToSpeech
func (m *MockTextToSpeech) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text cannot be empty")
	}

	// 50ms of 16 kHz silence per character
	samples := len(text) * 800
	m.logger.Info("Mock speech synthesis", zap.Int("textLength", len(text)), zap.String("voice", voice))
	return audio.EncodeWAV(make([]byte, samples*2), audio.SpeechFormat), nil
}
