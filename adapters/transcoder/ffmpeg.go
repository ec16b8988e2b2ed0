package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/internal/audio"
	"github.com/satriahrh/rolecall/internal/engine"
)

// Mode selects how audio is handed to ffmpeg
type Mode string

const (
	// ModeFile writes the input to a scratch file; works for every container
	ModeFile Mode = "file"
	// ModePipe streams through stdin/stdout; containers that need seeking fail
	ModePipe Mode = "pipe"
)

// ErrEmptyInput is returned when there is no audio to transcode
var ErrEmptyInput = errors.New("empty audio input")

// Config holds ffmpeg settings
type Config struct {
	Bin        string
	Mode       Mode
	Timeout    time.Duration
	ScratchDir string
}

// FFmpeg implements repositories.AudioTranscoder by shelling out to ffmpeg
type FFmpeg struct {
	config Config
	logger *zap.Logger
}

// NewFFmpeg creates a new ffmpeg transcoder
func NewFFmpeg(config Config, logger *zap.Logger) *FFmpeg {
	if config.Bin == "" {
		config.Bin = "ffmpeg"
	}
	if config.Mode == "" {
		config.Mode = ModeFile
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &FFmpeg{config: config, logger: logger}
}

// Transcode converts any container/codec ffmpeg understands into
// 16 kHz mono s16le PCM
func (f *FFmpeg) Transcode(ctx context.Context, input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, ErrEmptyInput
	}

	// Already in the target format, nothing to do
	if audio.IsWAV(input) {
		if format, pcm, err := audio.DecodeWAV(input); err == nil && format == audio.SpeechFormat {
			f.logger.Debug("Input already 16k mono WAV, skipping ffmpeg", zap.Int("bytes", len(pcm)))
			return pcm, nil
		}
	}

	start := time.Now()
	var pcm []byte
	var err error
	if f.config.Mode == ModePipe {
		pcm, err = f.transcodePipe(ctx, input)
	} else {
		pcm, err = f.transcodeFile(ctx, input)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("Audio transcoded",
		zap.String("mode", string(f.config.Mode)),
		zap.Int("inputBytes", len(input)),
		zap.Int("outputBytes", len(pcm)),
		zap.Duration("took", time.Since(start)))
	return pcm, nil
}

func outputArgs() []string {
	return []string{"-ar", "16000", "-ac", "1", "-c:a", "pcm_s16le", "-f", "s16le"}
}

func (f *FFmpeg) transcodeFile(ctx context.Context, input []byte) ([]byte, error) {
	scratch, err := engine.NewScratch(f.config.ScratchDir, "ffmpeg")
	if err != nil {
		return nil, engine.Wrap("ffmpeg", "scratch", err)
	}
	defer scratch.Close()

	inPath, err := scratch.WriteFile("input", input)
	if err != nil {
		return nil, engine.Wrap("ffmpeg", "write input", err)
	}
	outPath := scratch.Path("output.pcm")

	args := append([]string{"-hide_banner", "-loglevel", "error", "-y", "-i", inPath}, outputArgs()...)
	args = append(args, outPath)

	if _, err := engine.Run(ctx, engine.Command{
		Engine:  "ffmpeg",
		Path:    f.config.Bin,
		Args:    args,
		Timeout: f.config.Timeout,
	}); err != nil {
		return nil, err
	}

	pcm, err := os.ReadFile(outPath)
	if err != nil {
		return nil, engine.Wrap("ffmpeg", "read output", err)
	}
	if len(pcm) == 0 {
		return nil, engine.Wrap("ffmpeg", "read output", fmt.Errorf("no audio decoded"))
	}
	return pcm, nil
}

func (f *FFmpeg) transcodePipe(ctx context.Context, input []byte) ([]byte, error) {
	args := append([]string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0"}, outputArgs()...)
	args = append(args, "pipe:1")

	pcm, err := engine.Run(ctx, engine.Command{
		Engine:  "ffmpeg",
		Path:    f.config.Bin,
		Args:    args,
		Stdin:   bytes.NewReader(input),
		Timeout: f.config.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, engine.Wrap("ffmpeg", "read output", fmt.Errorf("no audio decoded"))
	}
	return pcm, nil
}
