package tts

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain/repositories"
	"github.com/satriahrh/rolecall/internal/audio"
)

// FallbackTTS wraps a synthesizer so that every call yields playable audio:
// failures and unusable output are replaced by the fallback tone
type FallbackTTS struct {
	inner  repositories.TextToSpeech
	logger *zap.Logger
}

var _ repositories.TextToSpeech = (*FallbackTTS)(nil)

// WithFallback wraps inner with the fallback tone guarantee
func WithFallback(inner repositories.TextToSpeech, logger *zap.Logger) *FallbackTTS {
	return &FallbackTTS{inner: inner, logger: logger}
}

// Synthesize never returns an error
func (f *FallbackTTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	wav, err := f.inner.Synthesize(ctx, text, voice)
	if err != nil {
		f.logger.Error("Speech synthesis failed, using fallback tone",
			zap.String("voice", voice),
			zap.Error(err))
		return audio.FallbackTone(), nil
	}
	if _, pcm, decodeErr := audio.DecodeWAV(wav); decodeErr != nil || len(pcm) == 0 {
		f.logger.Error("Speech synthesis returned unusable audio, using fallback tone",
			zap.String("voice", voice),
			zap.Int("bytes", len(wav)))
		return audio.FallbackTone(), nil
	}
	return wav, nil
}
