package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain/repositories"
	"github.com/satriahrh/rolecall/internal/audio"
	"github.com/satriahrh/rolecall/internal/engine"
)

// PiperConfig holds settings for the piper CLI
type PiperConfig struct {
	Bin          string
	VoicesDir    string
	DefaultVoice string
	Timeout      time.Duration
	ScratchDir   string
}

// PiperTTS implements TextToSpeech by running the piper CLI
type PiperTTS struct {
	config PiperConfig
	logger *zap.Logger
}

var _ repositories.TextToSpeech = (*PiperTTS)(nil)

// NewPiperTTS creates a new piper synthesizer
func NewPiperTTS(config PiperConfig, logger *zap.Logger) *PiperTTS {
	if config.Bin == "" {
		config.Bin = "piper"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &PiperTTS{config: config, logger: logger}
}

// ModelPath resolves a role voice to a model file in the voices directory
func (p *PiperTTS) ModelPath(voice string) (string, error) {
	voice = strings.TrimSpace(voice)
	if voice == "" {
		voice = p.config.DefaultVoice
	}
	if voice == "" {
		return "", errors.New("no voice configured")
	}
	// Voices are file names inside VoicesDir, never paths
	if voice != filepath.Base(voice) {
		return "", fmt.Errorf("invalid voice name %q", voice)
	}
	if !strings.HasSuffix(voice, ".onnx") {
		voice += ".onnx"
	}
	return filepath.Join(p.config.VoicesDir, voice), nil
}

// Synthesize pipes text into piper and returns the WAV it writes
func (p *PiperTTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text cannot be empty")
	}

	model, err := p.ModelPath(voice)
	if err != nil {
		return nil, engine.Wrap("piper", "resolve voice", err)
	}
	if _, err := os.Stat(model); err != nil {
		return nil, engine.Wrap("piper", "resolve voice", err)
	}

	scratch, err := engine.NewScratch(p.config.ScratchDir, "piper")
	if err != nil {
		return nil, engine.Wrap("piper", "scratch", err)
	}
	defer scratch.Close()

	outPath := scratch.Path("reply.wav")
	start := time.Now()
	if _, err := engine.Run(ctx, engine.Command{
		Engine:  "piper",
		Path:    p.config.Bin,
		Args:    []string{"--model", model, "--output_file", outPath},
		Stdin:   strings.NewReader(text),
		Timeout: p.config.Timeout,
	}); err != nil {
		return nil, err
	}

	wav, err := os.ReadFile(outPath)
	if err != nil {
		return nil, engine.Wrap("piper", "read output", err)
	}
	if _, pcm, err := audio.DecodeWAV(wav); err != nil || len(pcm) == 0 {
		return nil, engine.Wrap("piper", "read output", errors.New("output is not a non-empty WAV"))
	}

	p.logger.Info("Piper synthesis finished",
		zap.String("voice", filepath.Base(model)),
		zap.Int("bytes", len(wav)),
		zap.Duration("took", time.Since(start)))
	return wav, nil
}
