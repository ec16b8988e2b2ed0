// Package engine runs external speech and audio engines (ffmpeg, whisper.cpp,
// piper) as subprocesses with bounded run time and scoped scratch space.
package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"
)

// maxStderr bounds how much engine diagnostics are kept on failure.
const maxStderr = 8 << 10

// waitDelay is how long Run waits for output pipes after the process is killed.
const waitDelay = 2 * time.Second

// Command describes one engine invocation
type Command struct {
	// Engine is a short name used in errors and logs, e.g. "ffmpeg"
	Engine string
	// Path is the executable, resolved through PATH when not absolute
	Path    string
	Args    []string
	Dir     string
	Stdin   io.Reader
	Timeout time.Duration
}

// Error describes a failed engine invocation
type Error struct {
	Engine   string
	Op       string
	TimedOut bool
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Engine)
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if e.TimedOut {
		b.WriteString(": timed out")
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Stderr != "" {
		b.WriteString(": ")
		b.WriteString(e.Stderr)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is an engine invocation that ran out of time
func IsTimeout(err error) bool {
	var engErr *Error
	return errors.As(err, &engErr) && engErr.TimedOut
}

// IsExit reports whether err is an engine that ran and exited non-zero
func IsExit(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// Run executes the command and returns its stdout.
// A non-zero exit, a failed start, or an expired timeout yields an *Error.
func Run(ctx context.Context, c Command) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		engErr := &Error{
			Engine: c.Engine,
			Op:     "run",
			Stderr: tail(stderr.String()),
			Err:    err,
		}
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			engErr.TimedOut = true
			engErr.Err = context.DeadlineExceeded
		case errors.Is(ctx.Err(), context.Canceled):
			engErr.Err = context.Canceled
		}
		return stdout.Bytes(), engErr
	}

	return stdout.Bytes(), nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = strings.TrimSpace(s[len(s)-maxStderr:])
	}
	return s
}

// Wrap attaches engine context to a non-subprocess failure such as
// preparing scratch files
func Wrap(engine, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Engine: engine, Op: op, Err: err}
}
