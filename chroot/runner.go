//go:build linux

package chroot

import (
	"bytes"
	"os/exec"
	"strings"
)

// commandRunner abstracts the external mount/umount invocations so the mount
// manager can be exercised hermetically in tests.
type commandRunner interface {
	// run executes name with args, returning the tool's captured stderr.
	run(name string, args ...string) (stderr []byte, err error)
}

// execRunner runs real subprocesses. stdout is inherited (mount and umount
// are quiet on success), stderr is captured for error reporting.
type execRunner struct {
	debugf Debugf
}

func (r *execRunner) run(name string, args ...string) ([]byte, error) {
	if r.debugf != nil {
		r.debugf("chroot(exec): %s %s", name, strings.Join(args, " "))
	}

	var stderr bytes.Buffer

	cmd := exec.Command(name, args...)
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stderr.Bytes(), err
}
