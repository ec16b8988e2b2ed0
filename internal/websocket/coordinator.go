package websocket

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain"
	"github.com/satriahrh/rolecall/domain/entities"
	"github.com/satriahrh/rolecall/domain/repositories"
	"github.com/satriahrh/rolecall/usecase"
)

// roleLookupTimeout bounds the role store query made for a config message
const roleLookupTimeout = 5 * time.Second

// User facing messages
const (
	msgRoleNotFound       = "Role not found"
	msgRoleLookupFailed   = "Failed to load role, please try again"
	msgSelectRole         = "Please select a role first"
	msgNoAudio            = "No audio received"
	msgTranscribeFailed   = "Speech recognition failed, please try again"
	msgTranscriptRejected = "Speech recognition returned an invalid result, please try again"
	msgQuestionRequired   = "Interview question is required"
	msgInternal           = "Something went wrong, please try again"
)

// Emitter delivers an outbound event to the client
type Emitter func(domain.Event)

type jobKind string

const (
	jobAudio      jobKind = "audio"
	jobText       jobKind = "text"
	jobRegenerate jobKind = "regenerate"
	jobInterview  jobKind = "interview"
)

// job is one queued user turn
type job struct {
	kind     jobKind
	audio    []byte
	text     string
	question string
	index    int
	roleName string
}

// Coordinator owns one connection's session. Handle must be called from a
// single goroutine in message arrival order; pipeline jobs run one at a
// time on the coordinator's worker.
type Coordinator struct {
	mu      sync.Mutex
	session *entities.Session

	roles     repositories.RoleRepository
	pipeline  *usecase.Pipeline
	validator *MessageValidator
	queue     *jobQueue
	emit      Emitter
	logger    *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewCoordinator creates a coordinator for a new session
func NewCoordinator(
	session *entities.Session,
	roles repositories.RoleRepository,
	pipeline *usecase.Pipeline,
	emit Emitter,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		session:   session,
		roles:     roles,
		pipeline:  pipeline,
		validator: NewMessageValidator(),
		queue:     newJobQueue(),
		emit:      emit,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start launches the job worker
func (c *Coordinator) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.work(ctx)
}

// Close stops the worker and waits for it. A job in flight observes a
// cancelled context; queued jobs are discarded.
func (c *Coordinator) Close() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

// State returns the coarse session state
func (c *Coordinator) State() entities.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.State()
}

// withSession runs fn while holding the session lock
func (c *Coordinator) withSession(fn func(s *entities.Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.session)
}

// Handle processes one raw inbound message
func (c *Coordinator) Handle(ctx context.Context, raw []byte) {
	parsed, err := c.validator.ValidateMessage(raw)
	if err != nil {
		if errors.Is(err, ErrInvalidConfig) {
			c.logger.Warn("Unreadable role id in config", zap.Error(err))
			c.emit(domain.ErrorEvent(msgRoleNotFound))
			return
		}
		c.logger.Warn("Ignoring invalid message", zap.Error(err))
		return
	}

	switch msg := parsed.(type) {
	case *ConfigMessage:
		c.configure(ctx, int64(msg.RoleID))
	case *AudioChunkMessage:
		c.appendChunk(msg.Chunk)
	case *TextMessage:
		c.submitText(msg)
	case *RegenerateMessage:
		c.regenerate(msg.Text)
	case *InterviewMessage:
		c.interview(msg)
	case *ControlMessage:
		switch msg.Type {
		case MessageTypeStart:
			c.beginCapture()
		case MessageTypeStop:
			c.endCapture()
		case MessageTypePause:
			c.pause()
		case MessageTypeResume:
			c.resume()
		}
	}
}

func (c *Coordinator) configure(ctx context.Context, roleID int64) {
	ctx, cancel := context.WithTimeout(ctx, roleLookupTimeout)
	defer cancel()

	role, err := c.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoleNotFound) {
			c.logger.Warn("Unknown role requested", zap.Int64("roleID", roleID))
			c.emit(domain.ErrorEvent(msgRoleNotFound))
			return
		}
		c.logger.Error("Failed to load role", zap.Int64("roleID", roleID), zap.Error(err))
		c.emit(domain.ErrorEvent(msgRoleLookupFailed))
		return
	}

	c.withSession(func(s *entities.Session) { s.SetRole(role) })
	c.logger.Info("Role selected",
		zap.Int64("roleID", role.ID),
		zap.String("roleName", role.Name),
		zap.String("voice", role.VoiceModel))
	c.emit(domain.InfoEvent(fmt.Sprintf("Role switched: %s", role.Name)))
}

func (c *Coordinator) beginCapture() {
	c.withSession(func(s *entities.Session) {
		if s.Role() == nil {
			c.logger.Warn("Capture started before a role was selected")
		}
		s.BeginCapture()
	})
}

func (c *Coordinator) appendChunk(chunk string) {
	data, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		c.logger.Warn("Ignoring audio chunk with invalid base64", zap.Error(err))
		return
	}

	c.withSession(func(s *entities.Session) {
		if s.Role() == nil {
			c.logger.Warn("Audio chunk received before a role was selected", zap.Int("bytes", len(data)))
		}
		s.AppendChunk(data)
	})
}

func (c *Coordinator) endCapture() {
	var captured []byte
	var chunks int
	c.withSession(func(s *entities.Session) {
		_, chunks = s.CaptureSize()
		captured = s.TakeCapture()
		if len(captured) > 0 {
			s.JobQueued()
		}
	})

	if len(captured) == 0 {
		c.logger.Warn("Stop received without captured audio")
		c.emit(domain.ErrorEvent(msgNoAudio))
		return
	}

	c.logger.Info("Capture finished",
		zap.Int("bytes", len(captured)),
		zap.Int("chunks", chunks))
	c.queue.push(job{kind: jobAudio, audio: captured})
}

func (c *Coordinator) submitText(msg *TextMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	var backend repositories.Backend
	if msg.Backend != "" {
		parsed, err := repositories.ParseBackend(msg.Backend)
		if err != nil {
			c.logger.Warn("Unknown backend requested", zap.String("backend", msg.Backend))
			c.emit(domain.ErrorEvent(fmt.Sprintf("Unknown backend: %s", msg.Backend)))
			return
		}
		backend = parsed
	}

	c.withSession(func(s *entities.Session) {
		if backend != "" {
			s.SetBackend(string(backend))
		}
		s.RememberUtterance(text)
		s.JobQueued()
	})
	c.queue.push(job{kind: jobText, text: text})
}

func (c *Coordinator) regenerate(text string) {
	text = strings.TrimSpace(text)

	queued := false
	c.withSession(func(s *entities.Session) {
		if text == "" {
			text, _ = s.LastUtterance()
		}
		if text != "" {
			s.JobQueued()
			queued = true
		}
	})
	if !queued {
		c.logger.Debug("Nothing to regenerate")
		return
	}
	c.queue.push(job{kind: jobRegenerate, text: text})
}

func (c *Coordinator) interview(msg *InterviewMessage) {
	question := strings.TrimSpace(msg.Question)
	if question == "" {
		c.emit(domain.ErrorEvent(msgQuestionRequired))
		return
	}

	c.withSession(func(s *entities.Session) { s.JobQueued() })
	c.queue.push(job{
		kind:     jobInterview,
		question: question,
		index:    msg.QuestionIndex,
		roleName: msg.RoleName,
	})
}

// pause and resume emit while holding the session lock so an audio offer
// from the worker cannot slip between the state change and the ack
func (c *Coordinator) pause() {
	c.withSession(func(s *entities.Session) {
		s.Pause()
		c.emit(domain.PauseAckEvent())
	})
	c.logger.Debug("Playback paused")
}

func (c *Coordinator) resume() {
	c.withSession(func(s *entities.Session) {
		if audio, ok := s.Resume(); ok {
			c.emit(domain.ReplyAudioEvent(audio, false))
		}
		c.emit(domain.ResumeAckEvent())
	})
	c.logger.Debug("Playback resumed")
}

func (c *Coordinator) work(ctx context.Context) {
	defer close(c.done)
	for {
		j, ok := c.queue.pop(ctx)
		if !ok {
			return
		}
		c.run(ctx, j)
	}
}

// run executes one job. Every failure is reported to the client and the
// session stays usable.
func (c *Coordinator) run(ctx context.Context, j job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Pipeline job panicked",
				zap.String("kind", string(j.kind)),
				zap.Any("panic", r),
				zap.Stack("stack"))
			c.withSession(func(s *entities.Session) { s.ResetIdle() })
			c.emit(domain.ErrorEvent(msgInternal))
		}
		c.withSession(func(s *entities.Session) { s.JobDone() })
		c.logger.Info("Pipeline job finished",
			zap.String("kind", string(j.kind)),
			zap.Duration("duration", time.Since(start)))
	}()

	userText := j.text
	switch j.kind {
	case jobAudio:
		text, err := c.pipeline.Transcribe(ctx, j.audio)
		if err != nil {
			if errors.Is(err, usecase.ErrTranscriptLeak) {
				c.emit(domain.UserTextEvent(usecase.TranscriptPlaceholder))
				c.emit(domain.ErrorEvent(msgTranscriptRejected))
				return
			}
			c.logger.Error("Transcription failed", zap.Error(err))
			c.emit(domain.ErrorEvent(msgTranscribeFailed))
			return
		}
		userText = text
		if text != "" {
			c.withSession(func(s *entities.Session) { s.RememberUtterance(text) })
		}
		c.emit(domain.UserTextEvent(userText))
	case jobText:
		c.emit(domain.UserTextEvent(userText))
	case jobInterview:
		c.emit(domain.UserTextEvent(j.question))
	}

	var role *entities.Role
	var backend repositories.Backend
	c.withSession(func(s *entities.Session) {
		s.SupersedePlayback()
		role = s.Role()
		backend = repositories.Backend(s.Backend())
	})

	if role == nil {
		c.emit(domain.ErrorEvent(msgSelectRole))
		return
	}

	if j.kind == jobInterview {
		roleName := j.roleName
		if roleName == "" {
			roleName = role.Name
		}
		prompt, err := usecase.InterviewPrompt(roleName, j.question, j.index)
		if err != nil {
			c.logger.Error("Failed to build interview prompt", zap.Error(err))
			c.emit(domain.ErrorEvent(msgInternal))
			return
		}
		userText = prompt
	}

	reply, err := c.pipeline.Reply(ctx, role, backend, userText)
	if err != nil {
		c.logger.Error("Reply failed", zap.Error(err))
		c.emit(domain.ErrorEvent(msgInternal))
		return
	}
	c.emit(domain.ReplyTextEvent(reply))

	audio := c.pipeline.Speak(ctx, reply, role.VoiceModel)
	c.withSession(func(s *entities.Session) {
		if s.OfferAudio(audio) {
			c.emit(domain.ReplyAudioEvent(audio, false))
			return
		}
		c.logger.Debug("Reply audio held back",
			zap.String("playback", string(s.Playback())))
	})
}
