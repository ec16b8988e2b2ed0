package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MessageType defines the type of an inbound WebSocket message
type MessageType string

// Supported inbound message types
const (
	MessageTypeConfig            MessageType = "config"
	MessageTypeStart             MessageType = "start"
	MessageTypeAudioChunk        MessageType = "audio-chunk"
	MessageTypeStop              MessageType = "stop"
	MessageTypeText              MessageType = "text"
	MessageTypeRegenerate        MessageType = "regenerate"
	MessageTypePause             MessageType = "pause"
	MessageTypeResume            MessageType = "resume"
	MessageTypeInterviewStart    MessageType = "interview-start"
	MessageTypeInterviewQuestion MessageType = "interview-question"
)

// BaseMessage defines the common structure for all inbound messages
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ErrInvalidConfig marks a config message whose role id cannot be read
var ErrInvalidConfig = errors.New("invalid config message")

// RoleID accepts a role identifier sent either as a JSON number or a string
type RoleID int64

// UnmarshalJSON implements json.Unmarshaler
func (id *RoleID) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(data, `"`))
	if raw == "" || raw == "null" {
		return errors.New("roleId is required")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("roleId must be an integer: %w", err)
	}
	*id = RoleID(v)
	return nil
}

// ConfigMessage selects the active role
type ConfigMessage struct {
	BaseMessage
	RoleID RoleID `json:"roleId"`
}

// AudioChunkMessage carries one base64 encoded audio fragment
type AudioChunkMessage struct {
	BaseMessage
	Chunk string `json:"chunk"`
}

// TextMessage is a typed user turn, optionally selecting the language model backend
type TextMessage struct {
	BaseMessage
	Text    string `json:"text"`
	Backend string `json:"backend,omitempty"`
}

// RegenerateMessage asks for a new reply to a previous user utterance
type RegenerateMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// InterviewMessage asks the role to pose an interview question
type InterviewMessage struct {
	BaseMessage
	Question      string `json:"question"`
	QuestionIndex int    `json:"questionIndex"`
	RoleName      string `json:"roleName,omitempty"`
}

// ControlMessage is a message without payload (start, stop, pause, resume)
type ControlMessage struct {
	BaseMessage
}

// MessageValidator parses and validates inbound messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses an inbound message into its typed form
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	// First parse as base message to get type
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeConfig:
		var msg ConfigMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		return &msg, nil

	case MessageTypeAudioChunk:
		var msg AudioChunkMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid audio chunk message: %w", err)
		}
		if msg.Chunk == "" {
			return nil, errors.New("chunk is required")
		}
		return &msg, nil

	case MessageTypeText:
		var msg TextMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid text message: %w", err)
		}
		return &msg, nil

	case MessageTypeRegenerate:
		var msg RegenerateMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid regenerate message: %w", err)
		}
		return &msg, nil

	case MessageTypeInterviewStart, MessageTypeInterviewQuestion:
		var msg InterviewMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid interview message: %w", err)
		}
		if msg.QuestionIndex < 0 {
			return nil, errors.New("questionIndex must not be negative")
		}
		if base.Type == MessageTypeInterviewStart {
			msg.QuestionIndex = 0
		}
		return &msg, nil

	case MessageTypeStart, MessageTypeStop, MessageTypePause, MessageTypeResume:
		return &ControlMessage{BaseMessage: base}, nil

	case "":
		return nil, errors.New("message missing type field")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", strings.TrimSpace(string(base.Type)))
	}
}
