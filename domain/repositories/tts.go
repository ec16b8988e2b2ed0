package repositories

import "context"

// TextToSpeech converts reply text into a playable audio file (WAV)
type TextToSpeech interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}
