package entities

import (
	"errors"
	"strings"
)

// englishVoicePrefix marks voice identifiers whose synthesis language is English,
// e.g. "en_US-libritts-high.onnx" or "en_GB-alan-medium".
const englishVoicePrefix = "en_"

// Role represents a persona the client can talk to
type Role struct {
	ID           int64    `json:"id" bson:"_id" db:"id"`
	Name         string   `json:"name" bson:"name" db:"name"`
	SystemPrompt string   `json:"system_prompt" bson:"system_prompt" db:"system_prompt"`
	VoiceModel   string   `json:"voice_model" bson:"voice_model" db:"voice_model"`
	Features     []string `json:"features,omitempty" bson:"features,omitempty" db:"features"`
}

// IsEnglishVoice reports whether the role speaks through an English voice,
// which in turn requires English replies from the language model.
func (r *Role) IsEnglishVoice() bool {
	return strings.HasPrefix(r.VoiceModel, englishVoicePrefix)
}

// Domain validation methods
func (r *Role) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(r.SystemPrompt) == "" {
		return errors.New("system prompt is required")
	}
	return nil
}
