package entities

import (
	"bytes"
	"time"
)

// SessionState is the coarse state of a conversation session
type SessionState string

const (
	SessionStateUnconfigured SessionState = "unconfigured"
	SessionStateReady        SessionState = "ready"
	SessionStateCapturing    SessionState = "capturing"
	SessionStateProcessing   SessionState = "processing"
)

// PlaybackState tracks whether reply audio is being played by the client
type PlaybackState string

const (
	PlaybackIdle    PlaybackState = "idle"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
)

// maxUtterances bounds the utterance history kept for regenerate requests.
const maxUtterances = 20

// Session is the live state of one connected client.
// It is not safe for concurrent use; the owner serializes access.
type Session struct {
	ID          string
	ConnectedAt time.Time

	role         *Role
	backend      string
	capture      bytes.Buffer
	chunkCount   int
	capturing    bool
	playback     PlaybackState
	pendingAudio string
	jobs         int
	utterances   []string
}

// NewSession creates a new unconfigured session using the given default backend
func NewSession(id, defaultBackend string) *Session {
	return &Session{
		ID:          id,
		ConnectedAt: time.Now(),
		backend:     defaultBackend,
		playback:    PlaybackIdle,
	}
}

// State derives the coarse session state
func (s *Session) State() SessionState {
	switch {
	case s.jobs > 0:
		return SessionStateProcessing
	case s.capturing:
		return SessionStateCapturing
	case s.role != nil:
		return SessionStateReady
	default:
		return SessionStateUnconfigured
	}
}

// Role returns the selected role, nil until the client configures one
func (s *Session) Role() *Role {
	return s.role
}

// SetRole selects the active role
func (s *Session) SetRole(role *Role) {
	s.role = role
}

// Backend returns the language-model backend chosen by the client
func (s *Session) Backend() string {
	return s.backend
}

// SetBackend records the client's language-model backend choice
func (s *Session) SetBackend(backend string) {
	s.backend = backend
}

// BeginCapture clears the capture buffer and starts a new capture
func (s *Session) BeginCapture() {
	s.capture.Reset()
	s.chunkCount = 0
	s.capturing = true
}

// AppendChunk appends a decoded audio fragment in arrival order
func (s *Session) AppendChunk(chunk []byte) {
	s.capture.Write(chunk)
	s.chunkCount++
	s.capturing = true
}

// CaptureSize returns the number of buffered bytes and chunks
func (s *Session) CaptureSize() (bytes int, chunks int) {
	return s.capture.Len(), s.chunkCount
}

// TakeCapture hands over the whole capture buffer and empties it.
// The returned slice is owned by the caller.
func (s *Session) TakeCapture() []byte {
	audio := make([]byte, s.capture.Len())
	copy(audio, s.capture.Bytes())
	s.capture.Reset()
	s.chunkCount = 0
	s.capturing = false
	return audio
}

// JobQueued marks one more pipeline job as queued or running
func (s *Session) JobQueued() {
	s.jobs++
}

// JobDone marks a pipeline job as finished
func (s *Session) JobDone() {
	if s.jobs > 0 {
		s.jobs--
	}
}

// Playback returns the playback sub-state
func (s *Session) Playback() PlaybackState {
	return s.playback
}

// PendingAudio returns the retained reply audio, empty when none
func (s *Session) PendingAudio() string {
	return s.pendingAudio
}

// SupersedePlayback drops retained audio so a stale reply cannot be resumed
// into a new turn. A paused session stays paused.
func (s *Session) SupersedePlayback() {
	s.pendingAudio = ""
	if s.playback == PlaybackPlaying {
		s.playback = PlaybackIdle
	}
}

// OfferAudio decides what happens to a freshly synthesized reply.
// It returns true when the audio must be emitted now; while paused the audio
// is retained for resume, while already playing it is dropped as a duplicate.
func (s *Session) OfferAudio(audio string) bool {
	switch s.playback {
	case PlaybackPaused:
		s.pendingAudio = audio
		return false
	case PlaybackPlaying:
		return false
	}
	s.playback = PlaybackPlaying
	return true
}

// Pause suspends playback
func (s *Session) Pause() {
	s.playback = PlaybackPaused
}

// Resume leaves the paused state and returns the retained audio, if any
func (s *Session) Resume() (string, bool) {
	audio := s.pendingAudio
	s.pendingAudio = ""
	if audio == "" {
		s.playback = PlaybackIdle
		return "", false
	}
	s.playback = PlaybackPlaying
	return audio, true
}

// ResetIdle restores a consistent idle state after an unexpected failure
func (s *Session) ResetIdle() {
	s.capture.Reset()
	s.chunkCount = 0
	s.capturing = false
	s.playback = PlaybackIdle
	s.pendingAudio = ""
}

// RememberUtterance records a user utterance for later regenerate requests
func (s *Session) RememberUtterance(text string) {
	s.utterances = append(s.utterances, text)
	if len(s.utterances) > maxUtterances {
		s.utterances = s.utterances[len(s.utterances)-maxUtterances:]
	}
}

// LastUtterance returns the most recent user utterance
func (s *Session) LastUtterance() (string, bool) {
	if len(s.utterances) == 0 {
		return "", false
	}
	return s.utterances[len(s.utterances)-1], true
}
