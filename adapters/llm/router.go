package llm

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain/repositories"
)

// Apology is the reply used whenever no backend produced usable text
const Apology = "Sorry, I can't answer right now."

// Router dispatches turns to the selected backend and never fails:
// any backend error is logged and replaced by Apology
type Router struct {
	backends map[repositories.Backend]repositories.LanguageModel
	fallback repositories.Backend
	logger   *zap.Logger
}

// NewRouter creates a router; fallback is used for requests without a backend
func NewRouter(fallback repositories.Backend, logger *zap.Logger) *Router {
	return &Router{
		backends: make(map[repositories.Backend]repositories.LanguageModel),
		fallback: fallback,
		logger:   logger,
	}
}

// Register binds a backend implementation
func (r *Router) Register(backend repositories.Backend, model repositories.LanguageModel) {
	r.backends[backend] = model
}

// Has reports whether a backend is available
func (r *Router) Has(backend repositories.Backend) bool {
	_, ok := r.backends[backend]
	return ok
}

// Default returns the backend used when a request names none
func (r *Router) Default() repositories.Backend {
	return r.fallback
}

// Chat implements repositories.LanguageModel
func (r *Router) Chat(ctx context.Context, req repositories.ChatRequest) (string, error) {
	backend := req.Backend
	if backend == "" {
		backend = r.fallback
	}

	model, ok := r.backends[backend]
	if !ok {
		r.logger.Error("Language model backend not configured", zap.String("backend", string(backend)))
		return Apology, nil
	}

	reply, err := model.Chat(ctx, req)
	if err != nil {
		r.logger.Error("Language model call failed",
			zap.String("backend", string(backend)),
			zap.Error(err))
		return Apology, nil
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		r.logger.Warn("Language model returned empty reply", zap.String("backend", string(backend)))
		return Apology, nil
	}
	return reply, nil
}
