//go:build linux

package chroot

import (
	"io"
	"time"
)

// RunOption adjusts how [Chroot.Run] spawns the inner command.
type RunOption func(*runOptions)

type runOptions struct {
	capture bool
	check   bool
	timeout time.Duration
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// CaptureOutput collects the command's stdout and stderr into the returned
// [Result] instead of inheriting the session's streams.
func CaptureOutput() RunOption {
	return func(o *runOptions) { o.capture = true }
}

// CheckExit promotes a non-zero exit status to a [*ExitError] instead of
// returning it as a normal [Result].
func CheckExit() RunOption {
	return func(o *runOptions) { o.check = true }
}

// WithTimeout bounds the inner command's execution. The timeout applies to
// command execution only, never to the mount lifecycle.
func WithTimeout(d time.Duration) RunOption {
	return func(o *runOptions) { o.timeout = d }
}

// WithStdin supplies the command's standard input. The default is the
// process's stdin.
func WithStdin(r io.Reader) RunOption {
	return func(o *runOptions) { o.stdin = r }
}

// WithStdout redirects the command's standard output. Ignored when
// [CaptureOutput] is set.
func WithStdout(w io.Writer) RunOption {
	return func(o *runOptions) { o.stdout = w }
}

// WithStderr redirects the command's standard error. Ignored when
// [CaptureOutput] is set.
func WithStderr(w io.Writer) RunOption {
	return func(o *runOptions) { o.stderr = w }
}
