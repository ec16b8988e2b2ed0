package entities

import (
	"bytes"
	"testing"
)

func TestSessionCreation(t *testing.T) {
	session := NewSession("conn-123", "ollama")

	if session.ID != "conn-123" {
		t.Errorf("Expected session ID conn-123, got %s", session.ID)
	}

	if session.State() != SessionStateUnconfigured {
		t.Errorf("Expected state %s, got %s", SessionStateUnconfigured, session.State())
	}

	if session.Playback() != PlaybackIdle {
		t.Errorf("Expected playback %s, got %s", PlaybackIdle, session.Playback())
	}

	if session.Backend() != "ollama" {
		t.Errorf("Expected backend ollama, got %s", session.Backend())
	}
}

func TestSessionStateTransitions(t *testing.T) {
	session := NewSession("conn", "mock")

	session.SetRole(&Role{ID: 1, Name: "Socrates", SystemPrompt: "ask"})
	if session.State() != SessionStateReady {
		t.Errorf("Expected ready after config, got %s", session.State())
	}

	session.AppendChunk([]byte{1, 2})
	if session.State() != SessionStateCapturing {
		t.Errorf("Expected capturing after chunk, got %s", session.State())
	}

	session.TakeCapture()
	session.JobQueued()
	if session.State() != SessionStateProcessing {
		t.Errorf("Expected processing with job in flight, got %s", session.State())
	}

	session.JobDone()
	session.JobDone()
	if session.State() != SessionStateReady {
		t.Errorf("Expected ready after job, got %s", session.State())
	}
}

func TestCaptureBuffer(t *testing.T) {
	session := NewSession("conn", "mock")

	session.AppendChunk([]byte("ab"))
	session.AppendChunk([]byte("cd"))
	session.AppendChunk([]byte("e"))

	size, chunks := session.CaptureSize()
	if size != 5 || chunks != 3 {
		t.Errorf("Expected 5 bytes in 3 chunks, got %d bytes in %d chunks", size, chunks)
	}

	audio := session.TakeCapture()
	if !bytes.Equal(audio, []byte("abcde")) {
		t.Errorf("Expected chunks concatenated in order, got %q", audio)
	}

	if size, _ := session.CaptureSize(); size != 0 {
		t.Errorf("Expected empty buffer after take, got %d bytes", size)
	}

	// Buffer reuse must not alias the handed out slice
	session.AppendChunk([]byte("zz"))
	if string(audio) != "abcde" {
		t.Errorf("Taken capture was modified: %q", audio)
	}

	session.BeginCapture()
	if size, chunks := session.CaptureSize(); size != 0 || chunks != 0 {
		t.Errorf("Expected begin capture to clear buffer, got %d bytes", size)
	}
}

func TestOfferAudio(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(s *Session)
		wantEmit    bool
		wantState   PlaybackState
		wantPending string
	}{
		{
			name:      "idle emits",
			setup:     func(s *Session) {},
			wantEmit:  true,
			wantState: PlaybackPlaying,
		},
		{
			name:      "playing drops duplicate",
			setup:     func(s *Session) { s.OfferAudio("first") },
			wantEmit:  false,
			wantState: PlaybackPlaying,
		},
		{
			name:        "paused retains",
			setup:       func(s *Session) { s.Pause() },
			wantEmit:    false,
			wantState:   PlaybackPaused,
			wantPending: "reply",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := NewSession("conn", "mock")
			tt.setup(session)

			if got := session.OfferAudio("reply"); got != tt.wantEmit {
				t.Errorf("OfferAudio() = %v, want %v", got, tt.wantEmit)
			}
			if session.Playback() != tt.wantState {
				t.Errorf("Expected playback %s, got %s", tt.wantState, session.Playback())
			}
			if session.PendingAudio() != tt.wantPending {
				t.Errorf("Expected pending %q, got %q", tt.wantPending, session.PendingAudio())
			}
		})
	}
}

func TestPauseResume(t *testing.T) {
	session := NewSession("conn", "mock")

	session.Pause()
	session.OfferAudio("retained")

	audio, ok := session.Resume()
	if !ok || audio != "retained" {
		t.Fatalf("Expected retained audio on resume, got %q, %v", audio, ok)
	}
	if session.Playback() != PlaybackPlaying {
		t.Errorf("Expected playing after resume with audio, got %s", session.Playback())
	}

	// Second resume has nothing left
	if _, ok := session.Resume(); ok {
		t.Error("Expected no audio on second resume")
	}
	if session.Playback() != PlaybackIdle {
		t.Errorf("Expected idle after empty resume, got %s", session.Playback())
	}
}

func TestSupersedePlayback(t *testing.T) {
	session := NewSession("conn", "mock")
	session.Pause()
	session.OfferAudio("stale")

	session.SupersedePlayback()
	if session.PendingAudio() != "" {
		t.Error("Expected stale audio to be dropped")
	}
	if session.Playback() != PlaybackPaused {
		t.Errorf("Expected to stay paused, got %s", session.Playback())
	}

	session.Resume()
	session.OfferAudio("now")
	session.SupersedePlayback()
	if session.Playback() != PlaybackIdle {
		t.Errorf("Expected playing to reset to idle, got %s", session.Playback())
	}
}

func TestResetIdle(t *testing.T) {
	session := NewSession("conn", "mock")
	session.AppendChunk([]byte("x"))
	session.Pause()
	session.OfferAudio("pending")

	session.ResetIdle()

	if size, _ := session.CaptureSize(); size != 0 {
		t.Errorf("Expected empty capture, got %d", size)
	}
	if session.Playback() != PlaybackIdle || session.PendingAudio() != "" {
		t.Errorf("Expected idle with no pending audio, got %s / %q", session.Playback(), session.PendingAudio())
	}
}

func TestUtteranceHistory(t *testing.T) {
	session := NewSession("conn", "mock")

	if _, ok := session.LastUtterance(); ok {
		t.Error("Expected no utterance on new session")
	}

	for i := 0; i < maxUtterances+5; i++ {
		session.RememberUtterance("hello")
	}
	session.RememberUtterance("latest")

	last, ok := session.LastUtterance()
	if !ok || last != "latest" {
		t.Errorf("Expected latest utterance, got %q", last)
	}
	if len(session.utterances) != maxUtterances {
		t.Errorf("Expected history bounded to %d, got %d", maxUtterances, len(session.utterances))
	}
}
