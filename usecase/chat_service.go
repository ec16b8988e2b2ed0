package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain/entities"
	"github.com/satriahrh/rolecall/domain/repositories"
)

var (
	// ErrEmptyMessage is returned for a text turn without content
	ErrEmptyMessage = errors.New("message is empty")
	// ErrTranscriptionFailed wraps every failure to turn uploaded audio into text
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// TurnResult is the outcome of one request/response conversation turn
type TurnResult struct {
	UserText  string `json:"userText"`
	ReplyText string `json:"replyText"`
	Audio     string `json:"audio"` // base64 encoded WAV
}

// ChatService handles non-streaming conversation turns on top of a Pipeline
type ChatService struct {
	roles    repositories.RoleRepository
	pipeline *Pipeline
	logger   *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(roles repositories.RoleRepository, pipeline *Pipeline, logger *zap.Logger) *ChatService {
	return &ChatService{roles: roles, pipeline: pipeline, logger: logger}
}

// ChatText answers a typed message as the given role
func (s *ChatService) ChatText(ctx context.Context, roleID int64, message, backend string) (*TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	role, selected, err := s.prepare(ctx, roleID, backend)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, role, selected, message)
}

// ChatVoice transcribes uploaded audio and answers it as the given role
func (s *ChatService) ChatVoice(ctx context.Context, roleID int64, upload []byte, backend string) (*TurnResult, error) {
	role, selected, err := s.prepare(ctx, roleID, backend)
	if err != nil {
		return nil, err
	}

	text, err := s.pipeline.Transcribe(ctx, upload)
	if err != nil {
		s.logger.Error("Voice chat transcription failed",
			zap.Int64("roleID", roleID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}
	return s.respond(ctx, role, selected, text)
}

func (s *ChatService) prepare(ctx context.Context, roleID int64, backend string) (*entities.Role, repositories.Backend, error) {
	var selected repositories.Backend
	if strings.TrimSpace(backend) != "" {
		parsed, err := repositories.ParseBackend(backend)
		if err != nil {
			return nil, "", err
		}
		selected = parsed
	}

	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, "", fmt.Errorf("get role %d: %w", roleID, err)
	}
	return role, selected, nil
}

func (s *ChatService) respond(ctx context.Context, role *entities.Role, backend repositories.Backend, userText string) (*TurnResult, error) {
	reply, err := s.pipeline.Reply(ctx, role, backend, userText)
	if err != nil {
		return nil, err
	}

	return &TurnResult{
		UserText:  userText,
		ReplyText: reply,
		Audio:     s.pipeline.Speak(ctx, reply, role.VoiceModel),
	}, nil
}
