package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/adapters"
	"github.com/satriahrh/rolecall/adapters/llm"
	"github.com/satriahrh/rolecall/adapters/tts"
	"github.com/satriahrh/rolecall/domain/entities"
	"github.com/satriahrh/rolecall/domain/repositories"
	"github.com/satriahrh/rolecall/internal/auth"
	"github.com/satriahrh/rolecall/internal/websocket"
	"github.com/satriahrh/rolecall/usecase"
)

type passthroughTranscoder struct{}

func (passthroughTranscoder) Transcode(ctx context.Context, input []byte) ([]byte, error) {
	return input, nil
}

// scriptedSTT returns the uploaded bytes as transcript, or fails on "fail"
type scriptedSTT struct{}

func (scriptedSTT) TranscribeAudio(ctx context.Context, data []byte, cfg repositories.AudioConfig) (string, error) {
	if string(data) == "fail" {
		return "", errors.New("whisper: exit status 1")
	}
	return string(data), nil
}

func setupTestServer(t *testing.T, authenticator *auth.Authenticator) *echo.Echo {
	t.Helper()
	logger := zap.NewNop()

	roles, err := adapters.NewMemoryRoleRepository(adapters.DefaultRoles()...)
	if err != nil {
		t.Fatalf("failed to create roles: %v", err)
	}

	router := llm.NewRouter(repositories.BackendMock, logger)
	router.Register(repositories.BackendMock, llm.NewMockLLM())
	pipeline := usecase.NewPipeline(
		passthroughTranscoder{},
		scriptedSTT{},
		router,
		tts.WithFallback(tts.NewMockTextToSpeech(logger), logger),
		"",
		logger,
	)

	hub := websocket.NewHub(roles, pipeline, repositories.BackendMock, []string{"*"}, logger)
	e := echo.New()
	InitRoutes(e, Dependencies{
		Hub:   hub,
		Roles: roles,
		Chat:  usecase.NewChatService(roles, pipeline, logger),
		Auth:  authenticator,
	}, logger)
	return e
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	e := setupTestServer(t, nil)
	rec := do(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if resp.Status != "ok" || resp.Sessions != 0 {
		t.Errorf("unexpected health %+v", resp)
	}
}

func TestRoles(t *testing.T) {
	e := setupTestServer(t, nil)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/roles", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var roles []entities.Role
	if err := json.Unmarshal(rec.Body.Bytes(), &roles); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(roles) != 2 || roles[0].Name != "Socrates" {
		t.Errorf("unexpected roles %+v", roles)
	}

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/api/roles/2", http.StatusOK},
		{"/api/roles/99", http.StatusNotFound},
		{"/api/roles/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := do(e, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.wantCode {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.wantCode, rec.Code)
		}
	}
}

func TestChat(t *testing.T) {
	e := setupTestServer(t, nil)

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantError string
	}{
		{name: "valid", body: `{"roleId":1,"userMessage":"hello"}`, wantCode: http.StatusOK},
		{name: "explicit backend", body: `{"roleId":1,"userMessage":"hello","backend":"mock"}`, wantCode: http.StatusOK},
		{name: "unknown role", body: `{"roleId":9,"userMessage":"hello"}`, wantCode: http.StatusBadRequest, wantError: "role_not_found"},
		{name: "unknown backend", body: `{"roleId":1,"userMessage":"hello","backend":"bard"}`, wantCode: http.StatusBadRequest, wantError: "unknown_backend"},
		{name: "empty message", body: `{"roleId":1,"userMessage":"  "}`, wantCode: http.StatusBadRequest, wantError: "empty_message"},
		{name: "malformed", body: `{"roleId":`, wantCode: http.StatusBadRequest, wantError: "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := do(e, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if tt.wantError != "" {
				if resp := decodeError(t, rec); resp.Error != tt.wantError {
					t.Errorf("expected %q, got %q", tt.wantError, resp.Error)
				}
				return
			}

			var result usecase.TurnResult
			if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			if result.UserText != "hello" || result.ReplyText == "" || result.Audio == "" {
				t.Errorf("unexpected result %+v", result)
			}
		})
	}
}

func voiceRequest(t *testing.T, roleID, audio string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if roleID != "" {
		w.WriteField("roleId", roleID)
	}
	if audio != "" {
		part, err := w.CreateFormFile("audio", "recording.webm")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write([]byte(audio))
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/voice-chat", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestVoiceChat(t *testing.T) {
	e := setupTestServer(t, nil)

	tests := []struct {
		name      string
		roleID    string
		audio     string
		wantCode  int
		wantError string
	}{
		{name: "valid", roleID: "1", audio: "what is virtue", wantCode: http.StatusOK},
		{name: "transcription failure", roleID: "1", audio: "fail", wantCode: http.StatusBadGateway, wantError: "transcription_failed"},
		{name: "unknown role", roleID: "5", audio: "hi", wantCode: http.StatusBadRequest, wantError: "role_not_found"},
		{name: "missing audio", roleID: "1", wantCode: http.StatusBadRequest, wantError: "missing_audio"},
		{name: "missing role", audio: "hi", wantCode: http.StatusBadRequest, wantError: "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, voiceRequest(t, tt.roleID, tt.audio))
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if tt.wantError != "" {
				if resp := decodeError(t, rec); resp.Error != tt.wantError {
					t.Errorf("expected %q, got %q", tt.wantError, resp.Error)
				}
				return
			}

			var result usecase.TurnResult
			if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			if result.UserText != tt.audio || result.Audio == "" {
				t.Errorf("unexpected result %+v", result)
			}
		})
	}
}

func TestAuthentication(t *testing.T) {
	authenticator := auth.NewAuthenticator("test-secret", time.Hour)
	e := setupTestServer(t, authenticator)

	token, err := authenticator.GenerateClientToken("client-1")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	other, err := auth.NewAuthenticator("other-secret", time.Hour).GenerateClientToken("client-1")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	tests := []struct {
		name      string
		path      string
		header    string
		wantCode  int
		wantError string
	}{
		{name: "health is public", path: "/health", wantCode: http.StatusOK},
		{name: "missing token", path: "/api/roles", wantCode: http.StatusUnauthorized, wantError: "missing_token"},
		{name: "bearer token", path: "/api/roles", header: "Bearer " + token, wantCode: http.StatusOK},
		{name: "query token", path: "/api/roles?token=" + token, wantCode: http.StatusOK},
		{name: "foreign token", path: "/api/roles", header: "Bearer " + other, wantCode: http.StatusUnauthorized, wantError: "invalid_token"},
		{name: "websocket without token", path: "/ws", wantCode: http.StatusUnauthorized, wantError: "missing_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := do(e, req)
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if tt.wantError != "" {
				if resp := decodeError(t, rec); resp.Error != tt.wantError {
					t.Errorf("expected %q, got %q", tt.wantError, resp.Error)
				}
			}
		})
	}
}
