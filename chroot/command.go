//go:build linux

package chroot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
)

// Result is the outcome of a completed in-chroot command. The exit code is
// that of the wrapping chroot process, which propagates the inner command's
// status.
type Result struct {
	ExitCode int

	// Stdout and Stderr are populated only when [CaptureOutput] was set.
	Stdout []byte
	Stderr []byte
}

// Command constructs an unstarted [exec.Cmd] that would run argv inside the
// chroot as `chroot <root> sh -c "<quoted tokens>"`.
//
// argv is a sequence of discrete tokens, never a pre-joined string. Tokens
// that are literally ">", "<", or "|" are rejected with a [*ChrootError]:
// they are shell metacharacters with no defined sandbox semantics, and
// forwarding host-side redirection into the jail would be ambiguous. Every
// remaining token is quoted into a single un-splittable shell word, so a
// token containing spaces or shell-special characters survives the inner
// shell's re-parse intact while callers can still join tokens into compound
// expressions.
//
// The inner invocation goes through `sh -c` rather than a direct exec
// because chroot's argument model hands off to an in-chroot interpreter;
// that is what makes compound commands possible at all.
//
// The returned command carries the session environment and is NOT started;
// callers may set Stdin/Stdout/Stderr and then Run/Start/Wait.
func (c *Chroot) Command(ctx context.Context, argv []string) (*exec.Cmd, error) {
	line, err := buildShellLine(argv)
	if err != nil {
		return nil, err
	}

	if c.debugf != nil {
		c.debugf("chroot(run): chroot %s sh -c %q", c.Path, line)
	}

	cmd := exec.CommandContext(ctx, "chroot", c.Path, "sh", "-c", line)
	cmd.Env = slices.Clone(c.envSlice)

	return cmd, nil
}

// buildShellLine validates and quotes argv into the single shell line handed
// to the in-chroot `sh -c`. Rejection happens before any subprocess is
// spawned, so an invalid command has no partial side effect.
func buildShellLine(argv []string) (string, error) {
	if len(argv) == 0 {
		return "", &ChrootError{Op: "prepare command", Err: errors.New("no command provided")}
	}

	quoted := make([]string, 0, len(argv))

	for _, token := range argv {
		switch token {
		case ">", "<", "|":
			return "", &ChrootError{
				Op:  "prepare command",
				Err: fmt.Errorf("output redirects and pipes are not supported (token %q in %q)", token, argv),
			}
		}

		q, err := shellQuote(token)
		if err != nil {
			return "", &ChrootError{
				Op:  "prepare command",
				Err: fmt.Errorf("cannot quote token %q: %w", token, err),
			}
		}

		quoted = append(quoted, q)
	}

	return strings.Join(quoted, " "), nil
}

// Run executes argv inside the chroot and waits for completion.
//
// By default the command inherits the process's standard streams and a
// non-zero exit status is surfaced as a normal [Result]. Spawn behavior is
// adjusted with options: [CaptureOutput], [CheckExit], [WithTimeout],
// [WithStdin], [WithStdout], [WithStderr].
//
// A missing chroot executable on the host propagates as the underlying
// [exec.ErrNotFound]-wrapping error, unwrapped by this package: it is a host
// environment problem the caller must fix, not a sandbox condition.
func (c *Chroot) Run(ctx context.Context, argv []string, opts ...RunOption) (*Result, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	cmd, err := c.Command(ctx, argv)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdin = os.Stdin
	if o.stdin != nil {
		cmd.Stdin = o.stdin
	}

	switch {
	case o.capture:
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	default:
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if o.stdout != nil {
			cmd.Stdout = o.stdout
		}

		if o.stderr != nil {
			cmd.Stderr = o.stderr
		}
	}

	runErr := cmd.Run()

	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// Startup failure (e.g. chroot not installed on the host).
			return nil, runErr
		}

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("command %q timed out: %w", strings.Join(argv, " "), ctx.Err())
		}

		res.ExitCode = exitErr.ExitCode()

		if o.check {
			return nil, &ExitError{
				Argv:   slices.Clone(argv),
				Code:   res.ExitCode,
				Stdout: res.Stdout,
				Stderr: res.Stderr,
			}
		}
	}

	return res, nil
}

// Shell runs an interactive shell inside the chroot, or `/bin/bash -c
// command` when command is non-empty. The shell inherits the process's
// standard streams and the session environment. The returned int is the
// shell's exit code.
//
// A missing chroot executable on the host propagates as the underlying
// lookup error.
func (c *Chroot) Shell(ctx context.Context, command string) (int, error) {
	args := []string{c.Path, "/bin/bash"}
	if command != "" {
		args = append(args, "-c", command)
	}

	if c.debugf != nil {
		c.debugf("chroot(shell): chroot %s", strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, "chroot", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = slices.Clone(c.envSlice)

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}

		return -1, err
	}

	return 0, nil
}
