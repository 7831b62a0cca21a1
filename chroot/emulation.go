//go:build linux

package chroot

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// EmulationBinary describes a statically linked interpreter staged into the
// chroot so the kernel's binfmt_misc handler can run foreign-architecture
// binaries. The convention is fixed: /usr/bin/qemu-<arch>-static on the
// host, staged to the identical relative path inside the root.
type EmulationBinary struct {
	// Source is the absolute host path of the interpreter.
	Source string

	// Dest is the staging path relative to the chroot root. The mount
	// manager resolves it against the root at construction.
	Dest string
}

// detectEmulation interprets the two architecture configuration signals.
//
// It returns the emulation binary to stage (nil when none), and whether the
// full bind-mount profile should be selected. A target architecture without
// a host architecture is a configuration error.
//
// This runs exactly once, at mount-manager construction, before any mount.
func detectEmulation(targetArch, hostArch string) (*EmulationBinary, bool, error) {
	switch {
	case targetArch == "" && hostArch == "":
		return nil, false, nil

	case hostArch == "":
		return nil, false, &ChrootError{
			Op:  "detect emulation",
			Err: fmt.Errorf("target architecture %q configured without a host architecture", targetArch),
		}

	case targetArch == "" || targetArch == hostArch:
		// A declared host architecture selects the full profile even when no
		// interpreter needs staging.
		return nil, true, nil
	}

	interpreter := fmt.Sprintf("/usr/bin/qemu-%s-static", targetArch)

	return &EmulationBinary{
		Source: interpreter,
		Dest:   interpreter[1:],
	}, true, nil
}

// checkInterpreter probes the staged interpreter for executability. The probe
// is advisory: a missing or non-executable interpreter still fails hard at
// staging time, this just surfaces the problem through the debug channel
// before any mount happens.
func checkInterpreter(path string, debugf Debugf) {
	if debugf == nil {
		return
	}

	err := unix.Access(path, unix.X_OK)
	if errors.Is(err, unix.ENOENT) {
		debugf("chroot(emulation): interpreter %s does not exist on the host", path)
	} else if err != nil {
		debugf("chroot(emulation): interpreter %s is not executable: %v", path, err)
	}
}
