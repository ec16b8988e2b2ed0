package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Role store backends
const (
	RoleStoreMemory   = "memory"
	RoleStoreMongo    = "mongo"
	RoleStorePostgres = "postgres"
)

// Transcriber backends
const (
	TranscriberWhisper = "whisper"
	TranscriberGoogle  = "google"
	TranscriberMock    = "mock"
)

// Synthesizer backends
const (
	SynthesizerPiper      = "piper"
	SynthesizerElevenLabs = "elevenlabs"
	SynthesizerMock       = "mock"
)

// Transcoder modes
const (
	TranscodeModeFile = "file"
	TranscodeModePipe = "pipe"
)

type Config struct {
	Port           string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
	AuthJWTSecret  string

	RoleStore     string
	MongoURI      string
	MongoDatabase string
	PostgresDSN   string

	LLMDefaultBackend string
	OllamaURL         string
	OllamaModel       string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiModel       string
	LLMTimeout        time.Duration

	Transcriber          string
	WhisperBin           string
	WhisperModel         string
	WhisperLanguage      string
	TranscribeTimeout    time.Duration
	GoogleSpeechLanguage string

	FFmpegBin        string
	TranscodeMode    string
	TranscodeTimeout time.Duration

	Synthesizer       string
	PiperBin          string
	PiperVoicesDir    string
	PiperDefaultVoice string
	SynthesizeTimeout time.Duration

	ElevenLabsAPIKey       string
	ElevenLabsBaseURL      string
	ElevenLabsVoiceID      string
	ElevenLabsModelID      string
	ElevenLabsOutputFormat string

	ScratchDir    string
	ScratchMaxAge time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDurationEnv(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Plain integers are read as seconds
		if secs, convErr := strconv.Atoi(v); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	if d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: duration must be positive", key))
		return def
	}
	return d
}

func getEnumEnv(key, def string, allowed []string, errs *[]error) string {
	v := strings.ToLower(getEnv(key, def))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	*errs = append(*errs, fmt.Errorf("%s: %q is not one of %s", key, v, strings.Join(allowed, ", ")))
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads .env (if present) and the environment, then builds the config
func Load() (*Config, error) {
	// A missing .env is fine, the environment may be set another way
	_ = godotenv.Load()

	var errs []error

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnumEnv("LOG_FORMAT", "json", []string{"json", "console"}, &errs),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		AuthJWTSecret:  os.Getenv("AUTH_JWT_SECRET"),

		RoleStore:     getEnumEnv("ROLE_STORE", RoleStoreMemory, []string{RoleStoreMemory, RoleStoreMongo, RoleStorePostgres}, &errs),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "rolecall"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),

		LLMDefaultBackend: getEnumEnv("LLM_DEFAULT_BACKEND", "ollama", []string{"ollama", "openai", "gemini", "mock"}, &errs),
		OllamaURL:         getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "mistral"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		LLMTimeout:        getDurationEnv("LLM_TIMEOUT", 60*time.Second, &errs),

		Transcriber:          getEnumEnv("TRANSCRIBER", TranscriberWhisper, []string{TranscriberWhisper, TranscriberGoogle, TranscriberMock}, &errs),
		WhisperBin:           getEnv("WHISPER_BIN", "whisper-cli"),
		WhisperModel:         getEnv("WHISPER_MODEL", "models/ggml-base.bin"),
		WhisperLanguage:      getEnv("WHISPER_LANGUAGE", "auto"),
		TranscribeTimeout:    getDurationEnv("TRANSCRIBE_TIMEOUT", 120*time.Second, &errs),
		GoogleSpeechLanguage: getEnv("GOOGLE_SPEECH_LANGUAGE", "en-US"),

		FFmpegBin:        getEnv("FFMPEG_BIN", "ffmpeg"),
		TranscodeMode:    getEnumEnv("TRANSCODE_MODE", TranscodeModeFile, []string{TranscodeModeFile, TranscodeModePipe}, &errs),
		TranscodeTimeout: getDurationEnv("TRANSCODE_TIMEOUT", 30*time.Second, &errs),

		Synthesizer:       getEnumEnv("SYNTHESIZER", SynthesizerPiper, []string{SynthesizerPiper, SynthesizerElevenLabs, SynthesizerMock}, &errs),
		PiperBin:          getEnv("PIPER_BIN", "piper"),
		PiperVoicesDir:    getEnv("PIPER_VOICES_DIR", "voices"),
		PiperDefaultVoice: getEnv("PIPER_DEFAULT_VOICE", "en_US-libritts-high.onnx"),
		SynthesizeTimeout: getDurationEnv("SYNTHESIZE_TIMEOUT", 60*time.Second, &errs),

		ElevenLabsAPIKey:       os.Getenv("ELEVEN_LABS_API_KEY"),
		ElevenLabsBaseURL:      os.Getenv("ELEVEN_LABS_API_BASE_URL"),
		ElevenLabsVoiceID:      os.Getenv("ELEVEN_LABS_VOICE_ID"),
		ElevenLabsModelID:      os.Getenv("ELEVEN_LABS_MODEL_ID"),
		ElevenLabsOutputFormat: os.Getenv("ELEVEN_LABS_OUTPUT_FORMAT"),

		ScratchDir:    getEnv("SCRATCH_DIR", os.TempDir()),
		ScratchMaxAge: getDurationEnv("SCRATCH_MAX_AGE", time.Hour, &errs),
	}

	if cfg.RoleStore == RoleStorePostgres && cfg.PostgresDSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN must be set when ROLE_STORE=postgres"))
	}
	if cfg.Synthesizer == SynthesizerElevenLabs && cfg.ElevenLabsAPIKey == "" {
		errs = append(errs, errors.New("ELEVEN_LABS_API_KEY must be set when SYNTHESIZER=elevenlabs"))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// AuthEnabled reports whether client tokens are required
func (c *Config) AuthEnabled() bool {
	return c.AuthJWTSecret != ""
}
