package transcoder

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/rolecall/internal/audio"
	"github.com/satriahrh/rolecall/internal/engine"
)

// fakeFFmpeg copies its input to its output, through files or pipes
const fakeFFmpeg = `#!/bin/sh
in=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -i) in="$2"; shift 2; continue;;
  esac
  out="$1"
  shift
done
if [ "$out" = "pipe:1" ]; then
  cat
else
  cat "$in" > "$out"
fi
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFFmpeg_Transcode(t *testing.T) {
	bin := writeScript(t, fakeFFmpeg)

	for _, mode := range []Mode{ModeFile, ModePipe} {
		t.Run(string(mode), func(t *testing.T) {
			scratchRoot := t.TempDir()
			f := NewFFmpeg(Config{Bin: bin, Mode: mode, ScratchDir: scratchRoot}, zaptest.NewLogger(t))

			input := []byte("webm-bytes-in-order")
			pcm, err := f.Transcode(context.Background(), input)
			if err != nil {
				t.Fatalf("Transcode failed: %v", err)
			}
			if !bytes.Equal(pcm, input) {
				t.Errorf("Expected %q, got %q", input, pcm)
			}

			entries, _ := os.ReadDir(scratchRoot)
			if len(entries) != 0 {
				t.Errorf("Expected scratch cleanup, found %d entries", len(entries))
			}
		})
	}
}

func TestFFmpeg_SkipsCanonicalWAV(t *testing.T) {
	// A binary that always fails proves ffmpeg is never started
	f := NewFFmpeg(Config{Bin: writeScript(t, "#!/bin/sh\nexit 1\n")}, zaptest.NewLogger(t))

	pcm := []byte{1, 0, 2, 0}
	got, err := f.Transcode(context.Background(), audio.EncodeWAV(pcm, audio.SpeechFormat))
	if err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("Expected raw pcm, got %v", got)
	}
}

func TestFFmpeg_Errors(t *testing.T) {
	tests := []struct {
		name        string
		script      string
		input       []byte
		timeout     time.Duration
		wantTimeout bool
		wantErr     error
	}{
		{
			name:    "empty input",
			script:  fakeFFmpeg,
			wantErr: ErrEmptyInput,
		},
		{
			name:   "decoder failure",
			script: "#!/bin/sh\necho 'Invalid data found when processing input' >&2\nexit 1\n",
			input:  []byte("garbage"),
		},
		{
			name:        "timeout",
			script:      "#!/bin/sh\nsleep 5\n",
			input:       []byte("slow"),
			timeout:     50 * time.Millisecond,
			wantTimeout: true,
		},
		{
			name:   "no output",
			script: "#!/bin/sh\nexit 0\n",
			input:  []byte("silence"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scratchRoot := t.TempDir()
			f := NewFFmpeg(Config{Bin: writeScript(t, tt.script), Timeout: tt.timeout, ScratchDir: scratchRoot}, zaptest.NewLogger(t))

			_, err := f.Transcode(context.Background(), tt.input)
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if engine.IsTimeout(err) != tt.wantTimeout {
				t.Errorf("IsTimeout() = %v, want %v (%v)", engine.IsTimeout(err), tt.wantTimeout, err)
			}

			entries, _ := os.ReadDir(scratchRoot)
			if len(entries) != 0 {
				t.Errorf("Expected scratch cleanup, found %d entries", len(entries))
			}
		})
	}
}
