package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScratchPrefix starts the name of every scratch directory
const ScratchPrefix = "rolecall-"

// Scratch is a uniquely named directory owned by a single engine invocation
type Scratch struct {
	dir string
}

// NewScratch creates a scratch directory under root (os.TempDir when empty).
// Callers must Close it, typically with defer.
func NewScratch(root, purpose string) (*Scratch, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch root: %w", err)
	}

	name := fmt.Sprintf("%s%s-%d-%s", ScratchPrefix, purpose, time.Now().UnixNano(), uuid.NewString()[:8])
	dir := filepath.Join(root, name)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

// Dir returns the directory path
func (s *Scratch) Dir() string {
	return s.dir
}

// Path returns the path of a file inside the scratch directory
func (s *Scratch) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// WriteFile writes data to a file inside the scratch directory
func (s *Scratch) WriteFile(name string, data []byte) (string, error) {
	p := s.Path(name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", err
	}
	return p, nil
}

// Close removes the directory and everything in it
func (s *Scratch) Close() error {
	return os.RemoveAll(s.dir)
}

// IsScratchName reports whether a directory entry name belongs to a scratch directory
func IsScratchName(name string) bool {
	return strings.HasPrefix(name, ScratchPrefix)
}
