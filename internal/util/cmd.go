package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CmdSpec describes a subprocess to run.
type CmdSpec struct {
	Path string   // Binary path
	Args []string // Arguments
	Env  []string // Optional environment variables (KEY=VALUE). If nil, inherit.
	Dir  string   // Working directory; empty = inherit.
}

// CmdResult contains captured output and exit status.
type CmdResult struct {
	Stdout []byte
	Stderr []byte
	Code   int
	Err    error
}

// CmdRunner abstracts subprocess execution so pipelines can be tested with a
// fake runner instead of real yt-dlp/ffmpeg binaries.
type CmdRunner interface {
	Run(ctx context.Context, spec CmdSpec) (CmdResult, error)
}

// DefaultRunner executes commands with os/exec.
type DefaultRunner struct{}

// NewDefaultRunner returns a runner backed by os/exec.
func NewDefaultRunner() *DefaultRunner {
	return &DefaultRunner{}
}

// Run executes the command, capturing stdout and stderr. On non-zero exit it
// returns an error describing the exit code while still populating CmdResult.
func (DefaultRunner) Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	waitErr := cmd.Run()

	code := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}

	res := CmdResult{
		Stdout: stdoutBuf.Bytes(),
		Stderr: stderrBuf.Bytes(),
		Code:   code,
		Err:    waitErr,
	}
	if waitErr != nil {
		return res, fmt.Errorf("command failed (exit %d): %w: %s", code, waitErr, firstLine(stderrBuf.Bytes()))
	}
	return res, nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const max = 200
	if len(s) > max {
		s = s[:max]
	}
	return s
}
