package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/adapters"
	"github.com/satriahrh/rolecall/adapters/llm"
	"github.com/satriahrh/rolecall/adapters/mongo"
	"github.com/satriahrh/rolecall/adapters/postgres"
	"github.com/satriahrh/rolecall/adapters/stt"
	"github.com/satriahrh/rolecall/adapters/transcoder"
	"github.com/satriahrh/rolecall/adapters/tts"
	"github.com/satriahrh/rolecall/domain/repositories"
	"github.com/satriahrh/rolecall/internal/api"
	"github.com/satriahrh/rolecall/internal/auth"
	"github.com/satriahrh/rolecall/internal/config"
	"github.com/satriahrh/rolecall/internal/engine"
	"github.com/satriahrh/rolecall/internal/websocket"
	"github.com/satriahrh/rolecall/usecase"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a signed client token for the given client id and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *issueToken != "" {
		if !cfg.AuthEnabled() {
			fmt.Fprintln(os.Stderr, "AUTH_JWT_SECRET is not set")
			os.Exit(1)
		}
		token, err := auth.NewAuthenticator(cfg.AuthJWTSecret, 0).GenerateClientToken(*issueToken)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	// Initialize logger
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	roles, closeRoles, err := newRoleRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize role store", zap.Error(err))
	}
	defer closeRoles()

	speechToText, closeSTT, err := newSpeechToText(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize transcriber", zap.Error(err))
	}
	defer closeSTT()

	textToSpeech, err := newTextToSpeech(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize synthesizer", zap.Error(err))
	}

	router := newLanguageModelRouter(ctx, cfg, logger)

	ffmpeg := transcoder.NewFFmpeg(transcoder.Config{
		Bin:        cfg.FFmpegBin,
		Mode:       transcoder.Mode(cfg.TranscodeMode),
		Timeout:    cfg.TranscodeTimeout,
		ScratchDir: cfg.ScratchDir,
	}, logger.Named("ffmpeg"))

	janitor := engine.NewJanitor(cfg.ScratchDir, cfg.ScratchMaxAge, logger.Named("janitor"))
	janitor.Start()
	defer janitor.Stop()

	// Initialize usecase services
	pipeline := usecase.NewPipeline(
		ffmpeg,
		speechToText,
		router,
		tts.WithFallback(textToSpeech, logger.Named("tts")),
		cfg.ScratchDir,
		logger.Named("pipeline"),
	)
	chatService := usecase.NewChatService(roles, pipeline, logger.Named("chat"))

	// Initialize WebSocket hub
	hub := websocket.NewHub(roles, pipeline, router.Default(), cfg.AllowedOrigins, logger.Named("ws"))
	go hub.Run(ctx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))

	deps := api.Dependencies{Hub: hub, Roles: roles, Chat: chatService}
	if cfg.AuthEnabled() {
		deps.Auth = auth.NewAuthenticator(cfg.AuthJWTSecret, 0)
	}
	api.InitRoutes(e, deps, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("roleStore", cfg.RoleStore),
		zap.String("transcriber", cfg.Transcriber),
		zap.String("synthesizer", cfg.Synthesizer),
		zap.String("defaultBackend", string(router.Default())),
		zap.Bool("auth", cfg.AuthEnabled()))

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newRoleRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.RoleRepository, func(), error) {
	switch cfg.RoleStore {
	case config.RoleStoreMongo:
		client, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, nil, err
		}
		repo := mongo.NewRoleRepository(client.Database, logger)
		if err := repo.Seed(ctx, adapters.DefaultRoles()); err != nil {
			client.Close(context.Background())
			return nil, nil, fmt.Errorf("seed roles: %w", err)
		}
		return repo, func() { client.Close(context.Background()) }, nil

	case config.RoleStorePostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewRoleRepository(pool), pool.Close, nil

	default:
		repo, err := adapters.NewMemoryRoleRepository(adapters.DefaultRoles()...)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}

func newSpeechToText(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SpeechToText, func(), error) {
	switch cfg.Transcriber {
	case config.TranscriberGoogle:
		google, err := stt.NewGoogleSpeechToText(ctx, cfg.GoogleSpeechLanguage, logger.Named("google-stt"))
		if err != nil {
			return nil, nil, err
		}
		return google, func() { google.Close() }, nil

	case config.TranscriberMock:
		return stt.NewMockSpeechToText("", logger.Named("mock-stt")), func() {}, nil

	default:
		return stt.NewWhisperSpeechToText(stt.WhisperConfig{
			Bin:        cfg.WhisperBin,
			Model:      cfg.WhisperModel,
			Language:   cfg.WhisperLanguage,
			Timeout:    cfg.TranscribeTimeout,
			ScratchDir: cfg.ScratchDir,
		}, logger.Named("whisper")), func() {}, nil
	}
}

func newTextToSpeech(cfg *config.Config, logger *zap.Logger) (repositories.TextToSpeech, error) {
	switch cfg.Synthesizer {
	case config.SynthesizerElevenLabs:
		return tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:       cfg.ElevenLabsAPIKey,
			APIBaseURL:   cfg.ElevenLabsBaseURL,
			VoiceID:      cfg.ElevenLabsVoiceID,
			ModelID:      cfg.ElevenLabsModelID,
			OutputFormat: cfg.ElevenLabsOutputFormat,
			Timeout:      cfg.SynthesizeTimeout,
		}, logger.Named("elevenlabs"))

	case config.SynthesizerMock:
		return tts.NewMockTextToSpeech(logger.Named("mock-tts")), nil

	default:
		return tts.NewPiperTTS(tts.PiperConfig{
			Bin:          cfg.PiperBin,
			VoicesDir:    cfg.PiperVoicesDir,
			DefaultVoice: cfg.PiperDefaultVoice,
			Timeout:      cfg.SynthesizeTimeout,
			ScratchDir:   cfg.ScratchDir,
		}, logger.Named("piper")), nil
	}
}

// newLanguageModelRouter registers every backend that can be built from the
// configuration. Backends without credentials are skipped, and the mock
// backend exists only when it is the default. The router answers with an
// apology when a missing backend is selected.
func newLanguageModelRouter(ctx context.Context, cfg *config.Config, logger *zap.Logger) *llm.Router {
	router := llm.NewRouter(repositories.Backend(cfg.LLMDefaultBackend), logger.Named("llm"))

	router.Register(repositories.BackendOllama, llm.NewOllamaLLM(llm.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaModel,
		Timeout: cfg.LLMTimeout,
	}, logger.Named("ollama")))

	// The echo backend is for local runs only
	if router.Default() == repositories.BackendMock {
		router.Register(repositories.BackendMock, llm.NewMockLLM())
	}

	if cfg.OpenAIAPIKey != "" {
		openai, err := llm.NewOpenAILLM(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.LLMTimeout,
		}, logger.Named("openai"))
		if err != nil {
			logger.Warn("OpenAI backend disabled", zap.Error(err))
		} else {
			router.Register(repositories.BackendOpenAI, openai)
		}
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiLLM(ctx, llm.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		}, logger.Named("gemini"))
		if err != nil {
			logger.Warn("Gemini backend disabled", zap.Error(err))
		} else {
			router.Register(repositories.BackendGemini, gemini)
		}
	}

	if !router.Has(router.Default()) {
		logger.Warn("Default language model backend is not configured",
			zap.String("backend", string(router.Default())))
	}
	return router
}
