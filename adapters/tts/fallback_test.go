package tts

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/rolecall/internal/audio"
)

type stubTTS struct {
	wav []byte
	err error
}

func (s stubTTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	return s.wav, s.err
}

func TestWithFallback(t *testing.T) {
	good := audio.EncodeWAV([]byte{9, 0}, audio.SpeechFormat)

	tests := []struct {
		name  string
		inner stubTTS
		want  []byte
	}{
		{"passes through valid audio", stubTTS{wav: good}, good},
		{"engine failure", stubTTS{err: errors.New("piper exited 1")}, audio.FallbackTone()},
		{"not a wav", stubTTS{wav: []byte("garbage")}, audio.FallbackTone()},
		{"empty wav", stubTTS{wav: audio.EncodeWAV(nil, audio.SpeechFormat)}, audio.FallbackTone()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WithFallback(tt.inner, zaptest.NewLogger(t)).Synthesize(context.Background(), "Hello", "en_US-libritts-high.onnx")
			if err != nil {
				t.Fatalf("Fallback synthesizer must not fail, got %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Unexpected audio (%d bytes)", len(got))
			}
		})
	}
}

func TestMockTextToSpeech(t *testing.T) {
	m := NewMockTextToSpeech(zaptest.NewLogger(t))
	wav, err := m.Synthesize(context.Background(), "hi", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, pcm, err := audio.DecodeWAV(wav); err != nil || len(pcm) == 0 {
		t.Errorf("Expected non-empty WAV, got %v", err)
	}
}
