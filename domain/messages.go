package domain

// EventType names an outbound protocol message
type EventType string

// Outbound event types
const (
	EventInfo       EventType = "info"
	EventError      EventType = "error"
	EventUserText   EventType = "user-text"
	EventReplyText  EventType = "reply-text"
	EventReplyAudio EventType = "reply-audio"
	EventPauseAck   EventType = "pause-ack"
	EventResumeAck  EventType = "resume-ack"
)

// Event represents a message sent to the client
type Event struct {
	Type     EventType `json:"type"`
	Msg      string    `json:"msg,omitempty"`
	Text     string    `json:"text,omitempty"`
	Audio    string    `json:"audio,omitempty"` // base64 encoded
	IsPaused *bool     `json:"isPaused,omitempty"`
}

// InfoEvent creates an informational event
func InfoEvent(msg string) Event {
	return Event{Type: EventInfo, Msg: msg}
}

// ErrorEvent creates a user-facing error event
func ErrorEvent(msg string) Event {
	return Event{Type: EventError, Msg: msg}
}

// UserTextEvent echoes the resolved user utterance
func UserTextEvent(text string) Event {
	return Event{Type: EventUserText, Text: text}
}

// ReplyTextEvent carries the language model reply
func ReplyTextEvent(text string) Event {
	return Event{Type: EventReplyText, Text: text}
}

// ReplyAudioEvent carries synthesized reply audio
func ReplyAudioEvent(audio string, paused bool) Event {
	return Event{Type: EventReplyAudio, Audio: audio, IsPaused: &paused}
}

func PauseAckEvent() Event {
	return Event{Type: EventPauseAck}
}

func ResumeAckEvent() Event {
	return Event{Type: EventResumeAck}
}
