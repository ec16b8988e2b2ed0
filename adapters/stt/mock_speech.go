package stt

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain/repositories"
)

// MockSpeechToText is a placeholder implementation for speech recognition
type MockSpeechToText struct {
	logger     *zap.Logger
	transcript string
}

// NewMockSpeechToText creates a new mock speech-to-text service that
// always hears the given transcript
func NewMockSpeechToText(transcript string, logger *zap.Logger) *MockSpeechToText {
	if transcript == "" {
		transcript = "Hello, who are you?"
	}
	return &MockSpeechToText{logger: logger, transcript: transcript}
}

// TranscribeAudio implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	s.logger.Info("Mock transcription",
		zap.Int("size", len(audioData)),
		zap.Int("sampleRate", config.SampleRate))

	if len(audioData) == 0 {
		return "", nil
	}
	return s.transcript, nil
}
