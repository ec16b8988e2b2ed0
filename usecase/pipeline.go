package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain/entities"
	"github.com/satriahrh/rolecall/domain/repositories"
	"github.com/satriahrh/rolecall/internal/audio"
	"github.com/satriahrh/rolecall/internal/engine"
)

// TranscriptPlaceholder replaces a transcript that cannot be shown to the user
const TranscriptPlaceholder = "[Speech recognition failed, please try again]"

// englishOnlyInstruction is appended to the system prompt of roles with an English voice
const englishOnlyInstruction = "\n\nImportant: always answer in English only, whatever language the user writes in. " +
	"Your reply will be read aloud by an English voice."

var (
	// ErrEmptyAudio is returned when a turn carries no audio
	ErrEmptyAudio = errors.New("no audio captured")
	// ErrTranscriptLeak is returned when a transcript looks like it contains internal file paths
	ErrTranscriptLeak = errors.New("transcript contains internal path")
)

var (
	windowsPathPattern = regexp.MustCompile(`[A-Za-z]:\\`)
	unixPathPattern    = regexp.MustCompile(`(^|[\s"'(=])/(tmp|var/tmp|var/folders|private/var|home|root|Users)/`)
)

var interviewTemplate = template.Must(template.New("interview").Parse(
	`You are {{.RoleName}}, conducting a spoken mock interview with a candidate.
{{- if eq .Index 0}}
Open the interview with a short greeting in character, then ask the first question.
{{- else}}
The candidate has answered the previous question. Acknowledge it in one short sentence, then ask question number {{.Number}}.
{{- end}}
Ask only this question, in your own words, and then wait for the answer:
{{.Question}}`))

type interviewData struct {
	RoleName string
	Question string
	Index    int
	Number   int
}

// Pipeline runs the stages of one conversation turn:
// transcode, transcribe, reply and speak
type Pipeline struct {
	transcoder    repositories.AudioTranscoder
	speechToText  repositories.SpeechToText
	languageModel repositories.LanguageModel
	textToSpeech  repositories.TextToSpeech
	scratchRoot   string
	logger        *zap.Logger
}

// NewPipeline creates a new pipeline. scratchRoot is the directory the
// subprocess adapters write their scratch files to; transcripts mentioning
// it are never forwarded.
func NewPipeline(
	transcoder repositories.AudioTranscoder,
	stt repositories.SpeechToText,
	llm repositories.LanguageModel,
	tts repositories.TextToSpeech,
	scratchRoot string,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		transcoder:    transcoder,
		speechToText:  stt,
		languageModel: llm,
		textToSpeech:  tts,
		scratchRoot:   scratchRoot,
		logger:        logger,
	}
}

// Transcribe converts captured client audio to text. An empty transcript is
// a valid result.
func (p *Pipeline) Transcribe(ctx context.Context, captured []byte) (string, error) {
	if len(captured) == 0 {
		return "", ErrEmptyAudio
	}

	pcm, err := p.transcoder.Transcode(ctx, captured)
	if err != nil {
		return "", fmt.Errorf("transcode: %w", err)
	}

	text, err := p.speechToText.TranscribeAudio(ctx, pcm, repositories.AudioConfig{
		SampleRate: audio.SpeechFormat.SampleRate,
		Encoding:   "LINEAR16",
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)

	if p.LeaksInternalPath(text) {
		p.logger.Error("Transcript contains internal path, discarding",
			zap.Int("length", len(text)))
		return "", ErrTranscriptLeak
	}

	p.logger.Info("Transcription completed",
		zap.Int("inputBytes", len(captured)),
		zap.Int("pcmBytes", len(pcm)),
		zap.Int("length", len(text)))
	return text, nil
}

// LeaksInternalPath reports whether text mentions a scratch file or another
// server-side path
func (p *Pipeline) LeaksInternalPath(text string) bool {
	if text == "" {
		return false
	}
	if strings.Contains(text, engine.ScratchPrefix) {
		return true
	}
	if p.scratchRoot != "" && strings.Contains(text, p.scratchRoot) {
		return true
	}
	return windowsPathPattern.MatchString(text) || unixPathPattern.MatchString(text)
}

// SystemPrompt returns the role's prompt, extended with an English-only
// instruction when the role speaks through an English voice
func SystemPrompt(role *entities.Role) string {
	if role.IsEnglishVoice() {
		return role.SystemPrompt + englishOnlyInstruction
	}
	return role.SystemPrompt
}

// Reply asks the language model to answer userText in character
func (p *Pipeline) Reply(ctx context.Context, role *entities.Role, backend repositories.Backend, userText string) (string, error) {
	reply, err := p.languageModel.Chat(ctx, repositories.ChatRequest{
		Backend:      backend,
		SystemPrompt: SystemPrompt(role),
		UserText:     userText,
	})
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}

	p.logger.Info("Reply generated",
		zap.Int64("roleID", role.ID),
		zap.String("backend", string(backend)),
		zap.Int("length", len(reply)))
	return reply, nil
}

// Speak synthesizes text with the given voice and returns base64 encoded
// audio. It always returns playable audio.
func (p *Pipeline) Speak(ctx context.Context, text, voice string) string {
	wav, err := p.textToSpeech.Synthesize(ctx, text, voice)
	if err != nil || len(wav) == 0 {
		p.logger.Error("Speech synthesis failed, using fallback tone",
			zap.String("voice", voice),
			zap.Error(err))
		wav = audio.FallbackTone()
	}
	return base64.StdEncoding.EncodeToString(wav)
}

// InterviewPrompt renders the user message that makes the role ask an
// interview question. index is zero based.
func InterviewPrompt(roleName, question string, index int) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.New("interview question is required")
	}
	if index < 0 {
		index = 0
	}

	var buf bytes.Buffer
	err := interviewTemplate.Execute(&buf, interviewData{
		RoleName: strings.TrimSpace(roleName),
		Question: strings.TrimSpace(question),
		Index:    index,
		Number:   index + 1,
	})
	if err != nil {
		return "", fmt.Errorf("render interview prompt: %w", err)
	}
	return buf.String(), nil
}
