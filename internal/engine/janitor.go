package engine

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Janitor removes scratch directories left behind by killed processes
type Janitor struct {
	root     string
	maxAge   time.Duration
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewJanitor creates a new scratch janitor
func NewJanitor(root string, maxAge time.Duration, logger *zap.Logger) *Janitor {
	if root == "" {
		root = os.TempDir()
	}
	interval := maxAge / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Janitor{
		root:     root,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the background sweep loop
func (j *Janitor) Start() {
	go j.loop()
	j.logger.Info("Scratch janitor started",
		zap.String("root", j.root),
		zap.Duration("maxAge", j.maxAge))
}

// Stop gracefully stops the janitor
func (j *Janitor) Stop() {
	close(j.stopChan)
	<-j.doneChan
	j.logger.Info("Scratch janitor stopped")
}

func (j *Janitor) loop() {
	defer close(j.doneChan)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Sweep once right away to clear leftovers from a previous run
	j.Sweep(time.Now())

	for {
		select {
		case <-j.stopChan:
			return
		case now := <-ticker.C:
			j.Sweep(now)
		}
	}
}

// Sweep removes scratch directories older than maxAge and returns how many were removed
func (j *Janitor) Sweep(now time.Time) int {
	entries, err := os.ReadDir(j.root)
	if err != nil {
		j.logger.Error("Failed to list scratch root", zap.String("root", j.root), zap.Error(err))
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !IsScratchName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < j.maxAge {
			continue
		}

		path := filepath.Join(j.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			j.logger.Warn("Failed to remove stale scratch dir", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("Removed stale scratch dirs", zap.Int("count", removed))
	}
	return removed
}
