package stt

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain/repositories"
	"github.com/satriahrh/rolecall/internal/audio"
	"github.com/satriahrh/rolecall/internal/engine"
)

// WhisperConfig holds whisper.cpp CLI settings
type WhisperConfig struct {
	Bin        string
	Model      string
	Language   string
	Timeout    time.Duration
	ScratchDir string
}

// WhisperSpeechToText implements SpeechToText by running the whisper.cpp CLI
type WhisperSpeechToText struct {
	config WhisperConfig
	logger *zap.Logger
}

// NewWhisperSpeechToText creates a new whisper.cpp transcriber
func NewWhisperSpeechToText(config WhisperConfig, logger *zap.Logger) *WhisperSpeechToText {
	if config.Bin == "" {
		config.Bin = "whisper-cli"
	}
	if config.Language == "" {
		config.Language = "auto"
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	return &WhisperSpeechToText{config: config, logger: logger}
}

// TranscribeAudio writes the PCM as WAV into a scratch dir, runs whisper and
// reads back its .txt output. A run without an output file yields "".
func (w *WhisperSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", nil
	}

	format := audio.SpeechFormat
	if config.SampleRate > 0 {
		format.SampleRate = config.SampleRate
	}
	language := w.config.Language
	if config.Language != "" {
		language = config.Language
	}

	scratch, err := engine.NewScratch(w.config.ScratchDir, "whisper")
	if err != nil {
		return "", engine.Wrap("whisper", "scratch", err)
	}
	defer scratch.Close()

	wavPath, err := scratch.WriteFile("speech.wav", audio.EncodeWAV(audioData, format))
	if err != nil {
		return "", engine.Wrap("whisper", "write input", err)
	}
	outPrefix := scratch.Path("transcript")

	start := time.Now()
	_, runErr := engine.Run(ctx, engine.Command{
		Engine: "whisper",
		Path:   w.config.Bin,
		Args: []string{
			"-m", w.config.Model,
			"-l", language,
			"-np",
			"-nt",
			"-otxt",
			"-of", outPrefix,
			"-f", wavPath,
		},
		Timeout: w.config.Timeout,
	})
	if runErr != nil {
		// A non-zero exit may still leave a usable transcript behind
		if !engine.IsExit(runErr) {
			return "", runErr
		}
		w.logger.Warn("Whisper exited with error, checking for output", zap.Error(runErr))
	}

	b, err := os.ReadFile(outPrefix + ".txt")
	if errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("Whisper produced no transcript file", zap.Duration("took", time.Since(start)))
		return "", nil
	}
	if err != nil {
		return "", engine.Wrap("whisper", "read output", err)
	}

	text := strings.TrimSpace(string(b))
	w.logger.Info("Whisper transcription finished",
		zap.Int("bytes", len(audioData)),
		zap.Int("textLength", len(text)),
		zap.Duration("took", time.Since(start)))
	return text, nil
}
