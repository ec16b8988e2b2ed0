package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/rolecall/domain/entities"
	"github.com/satriahrh/rolecall/domain/repositories"
	"github.com/satriahrh/rolecall/internal/audio"
)

type fakeTranscoder struct {
	got []byte
	err error
}

func (f *fakeTranscoder) Transcode(ctx context.Context, input []byte) ([]byte, error) {
	f.got = append([]byte(nil), input...)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("pcm:" + string(input)), nil
}

type fakeSTT struct {
	text string
	err  error
	got  []byte
	cfg  repositories.AudioConfig
}

func (f *fakeSTT) TranscribeAudio(ctx context.Context, data []byte, cfg repositories.AudioConfig) (string, error) {
	f.got = data
	f.cfg = cfg
	return f.text, f.err
}

type fakeLLM struct {
	reply string
	err   error
	req   repositories.ChatRequest
}

func (f *fakeLLM) Chat(ctx context.Context, req repositories.ChatRequest) (string, error) {
	f.req = req
	return f.reply, f.err
}

type fakeTTS struct {
	wav   []byte
	err   error
	voice string
}

func (f *fakeTTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	f.voice = voice
	return f.wav, f.err
}

func newTestPipeline(t *testing.T, stt *fakeSTT, llm *fakeLLM, tts *fakeTTS) (*Pipeline, *fakeTranscoder) {
	t.Helper()
	tc := &fakeTranscoder{}
	return NewPipeline(tc, stt, llm, tts, "/srv/rolecall/scratch", zaptest.NewLogger(t)), tc
}

func TestPipelineTranscribe(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		sttText  string
		sttErr   error
		tcErr    error
		wantText string
		wantErr  error
	}{
		{name: "plain transcript", input: []byte("abc"), sttText: "  hello there \n", wantText: "hello there"},
		{name: "empty transcript is valid", input: []byte("abc"), sttText: ""},
		{name: "no audio", input: nil, wantErr: ErrEmptyAudio},
		{name: "transcoder failure", input: []byte("abc"), tcErr: errors.New("boom")},
		{name: "engine failure", input: []byte("abc"), sttErr: errors.New("boom")},
		{name: "scratch path leak", input: []byte("abc"), sttText: "reading rolecall-whisper-123/input.wav", wantErr: ErrTranscriptLeak},
		{name: "windows path leak", input: []byte("abc"), sttText: `D:\tmp_recv\a.webm`, wantErr: ErrTranscriptLeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stt := &fakeSTT{text: tt.sttText, err: tt.sttErr}
			p, tc := newTestPipeline(t, stt, &fakeLLM{}, &fakeTTS{})
			tc.err = tt.tcErr

			text, err := p.Transcribe(context.Background(), tt.input)
			failing := tt.wantErr != nil || tt.tcErr != nil || tt.sttErr != nil
			if failing {
				if err == nil {
					t.Fatalf("expected error, got text %q", text)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if text != tt.wantText {
				t.Errorf("expected %q, got %q", tt.wantText, text)
			}
			if !bytes.Equal(tc.got, tt.input) {
				t.Errorf("transcoder got %q, want %q", tc.got, tt.input)
			}
			if string(stt.got) != "pcm:"+string(tt.input) {
				t.Errorf("engine got %q", stt.got)
			}
			if stt.cfg.SampleRate != 16000 || stt.cfg.Encoding != "LINEAR16" || stt.cfg.Language != "" {
				t.Errorf("unexpected audio config %+v", stt.cfg)
			}
		})
	}
}

func TestLeaksInternalPath(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeSTT{}, &fakeLLM{}, &fakeTTS{})

	tests := []struct {
		text string
		want bool
	}{
		{"", false},
		{"What is the meaning of life?", false},
		{"I walked down the path to the river", false},
		{"one/two/three", false},
		{"rolecall-transcode-1700000000-abcd1234", true},
		{"see /srv/rolecall/scratch/x", true},
		{`C:\Users\me\recording.wav`, true},
		{"file /tmp/audio.wav", true},
		{"/home/user/model.bin", true},
	}

	for _, tt := range tests {
		if got := p.LeaksInternalPath(tt.text); got != tt.want {
			t.Errorf("LeaksInternalPath(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	english := &entities.Role{SystemPrompt: "Be Socrates.", VoiceModel: "en_US-libritts-high.onnx"}
	got := SystemPrompt(english)
	if !strings.HasPrefix(got, "Be Socrates.") {
		t.Errorf("original prompt must be kept, got %q", got)
	}
	if !strings.Contains(got, "English only") {
		t.Errorf("expected English instruction, got %q", got)
	}

	other := &entities.Role{SystemPrompt: "Sei Sokrates.", VoiceModel: "de_DE-thorsten-high"}
	if got := SystemPrompt(other); got != "Sei Sokrates." {
		t.Errorf("expected prompt unchanged, got %q", got)
	}
}

func TestPipelineReply(t *testing.T) {
	llm := &fakeLLM{reply: "Why do you ask?"}
	p, _ := newTestPipeline(t, &fakeSTT{}, llm, &fakeTTS{})
	role := &entities.Role{ID: 1, SystemPrompt: "Be Socrates.", VoiceModel: "en_US-x"}

	reply, err := p.Reply(context.Background(), role, repositories.BackendOpenAI, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Why do you ask?" {
		t.Errorf("unexpected reply %q", reply)
	}
	if llm.req.Backend != repositories.BackendOpenAI || llm.req.UserText != "hello" {
		t.Errorf("unexpected request %+v", llm.req)
	}
	if llm.req.SystemPrompt != SystemPrompt(role) {
		t.Errorf("expected augmented system prompt, got %q", llm.req.SystemPrompt)
	}

	llm.err = errors.New("unreachable")
	if _, err := p.Reply(context.Background(), role, "", "hello"); err == nil {
		t.Error("expected error to propagate")
	}
}

func TestPipelineSpeak(t *testing.T) {
	voiced := audio.EncodeWAV([]byte{1, 2, 3, 4}, audio.SpeechFormat)

	tests := []struct {
		name string
		tts  *fakeTTS
		want []byte
	}{
		{name: "synthesized audio", tts: &fakeTTS{wav: voiced}, want: voiced},
		{name: "engine failure", tts: &fakeTTS{err: errors.New("piper missing")}, want: audio.FallbackTone()},
		{name: "empty output", tts: &fakeTTS{}, want: audio.FallbackTone()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPipeline(t, &fakeSTT{}, &fakeLLM{}, tt.tts)
			encoded := p.Speak(context.Background(), "hi", "en_US-voice")
			got, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				t.Fatalf("invalid base64: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("unexpected audio of %d bytes", len(got))
			}
			if tt.tts.voice != "en_US-voice" {
				t.Errorf("voice not forwarded: %q", tt.tts.voice)
			}
		})
	}
}

func TestInterviewPrompt(t *testing.T) {
	first, err := InterviewPrompt("Socrates", "What is virtue?", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Socrates", "What is virtue?", "greeting"} {
		if !strings.Contains(first, want) {
			t.Errorf("first prompt missing %q:\n%s", want, first)
		}
	}

	next, err := InterviewPrompt("Socrates", "Can virtue be taught?", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(next, "question number 3") {
		t.Errorf("expected one based question number:\n%s", next)
	}

	if _, err := InterviewPrompt("Socrates", "  ", 0); err == nil {
		t.Error("expected error for empty question")
	}
}
