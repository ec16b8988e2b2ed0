package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain/repositories"
)

// streamChunkSize keeps each streaming request under the API's per-message limit
const streamChunkSize = 16 * 1024

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client   *speech.Client
	language string
	logger   *zap.Logger
}

// NewGoogleSpeechToText creates a Cloud Speech client using application default credentials
func NewGoogleSpeechToText(ctx context.Context, language string, logger *zap.Logger) (*GoogleSpeechToText, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	if language == "" {
		language = "en-US"
	}
	return &GoogleSpeechToText{client: client, language: language, logger: logger}, nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

// TranscribeAudio streams a finished PCM buffer and collects the final results
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", errors.New("no audio data received")
	}

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return "", err
	}
	language := config.Language
	if language == "" || language == "auto" {
		language = g.language
	}

	stream, err := g.client.StreamingRecognize(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	// Send initial configuration
	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   encoding,
					SampleRateHertz:            int32(config.SampleRate),
					LanguageCode:               language,
					EnableAutomaticPunctuation: true,
				},
				InterimResults: false, // We only want final results
			},
		},
	}); err != nil {
		stream.CloseSend()
		return "", fmt.Errorf("failed to send streaming config: %w", err)
	}

	results := make(chan recognizeResult, 1)
	go receiveResults(stream, results)

	for offset := 0; offset < len(audioData); offset += streamChunkSize {
		end := min(offset+streamChunkSize, len(audioData))
		if err := stream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
				AudioContent: audioData[offset:end],
			},
		}); err != nil {
			return "", fmt.Errorf("failed to send audio data: %w", err)
		}
	}

	// Close the send stream to signal end of audio
	if err := stream.CloseSend(); err != nil {
		return "", fmt.Errorf("failed to close send stream: %w", err)
	}

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled while waiting for result: %w", ctx.Err())
	case res := <-results:
		if res.err != nil {
			return "", res.err
		}
		g.logger.Debug("Google transcription finished",
			zap.Int("bytes", len(audioData)),
			zap.Int("textLength", len(res.text)))
		return res.text, nil
	}
}

type recognizeResult struct {
	text string
	err  error
}

func receiveResults(stream speechpb.Speech_StreamingRecognizeClient, out chan<- recognizeResult) {
	var parts []string
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			// Stream ended normally
			out <- recognizeResult{text: strings.TrimSpace(strings.Join(parts, " "))}
			return
		}
		if err != nil {
			out <- recognizeResult{err: fmt.Errorf("failed to receive response: %w", err)}
			return
		}

		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				// Take the best alternative
				parts = append(parts, strings.TrimSpace(result.Alternatives[0].Transcript))
			}
		}
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "", "WAV", "LINEAR16", "PCM_S16LE":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
