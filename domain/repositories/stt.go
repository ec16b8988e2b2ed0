package repositories

import "context"

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// TranscribeAudio converts a finished PCM buffer to text
	TranscribeAudio(ctx context.Context, audioData []byte, config AudioConfig) (string, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// AudioTranscoder normalizes arbitrary client audio into
// 16 kHz mono signed 16-bit little endian PCM
type AudioTranscoder interface {
	Transcode(ctx context.Context, input []byte) ([]byte, error)
}
