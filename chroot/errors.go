//go:build linux

package chroot

import (
	"fmt"
	"strings"
)

// ChrootError reports a sandbox- or configuration-level failure: a disallowed
// shell metacharacter in a command token, a token that cannot be safely
// quoted, an invalid mount profile, or missing architecture configuration.
//
// ChrootError is detected before any subprocess is spawned, so a returned
// ChrootError guarantees no partial side effect on the host.
type ChrootError struct {
	// Op names the operation that rejected its input (e.g. "prepare command").
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *ChrootError) Error() string {
	if e.Op == "" {
		return "chroot: " + e.Err.Error()
	}

	return "chroot: " + e.Op + ": " + e.Err.Error()
}

func (e *ChrootError) Unwrap() error { return e.Err }

// MountError reports a failed step of the mount phase: a mount subprocess
// exiting non-zero, the mount table being unreadable, or the emulation
// binary copy failing.
//
// Unmount failures are never surfaced as MountError; teardown is best-effort
// and reports through the configured Debugf only.
type MountError struct {
	// Step describes the failed step (e.g. "mount", "stage emulation binary").
	Step string

	// Target is the absolute mount point or file the step was operating on.
	Target string

	// Output is the captured stderr of the external tool, if any.
	Output string

	// Err is the underlying cause.
	Err error
}

func (e *MountError) Error() string {
	msg := fmt.Sprintf("chroot: %s %s: %v", e.Step, e.Target, e.Err)

	out := strings.TrimSpace(e.Output)
	if out != "" {
		msg += ": " + out
	}

	return msg
}

func (e *MountError) Unwrap() error { return e.Err }

// ExitError reports a command that ran inside the chroot and exited non-zero.
// It is returned from [Chroot.Run] only when the caller opted in via
// [CheckExit]; otherwise a non-zero exit is a normal [Result].
type ExitError struct {
	// Argv is the caller-supplied command tokens.
	Argv []string

	// Code is the exit status of the wrapping chroot process, which mirrors
	// the inner command's status.
	Code int

	// Stdout and Stderr hold captured output when [CaptureOutput] was set.
	Stdout []byte
	Stderr []byte
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("chroot: command %q exited with status %d", strings.Join(e.Argv, " "), e.Code)
}
