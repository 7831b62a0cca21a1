//go:build linux

// Package chroot manages the lifecycle of a chroot execution environment on a
// Linux host: it mounts the special filesystems (`proc`, `sys`, `dev/pts`,
// optional bind mounts) that make a chroot usable as a near-complete OS
// environment, runs commands inside it, and tears the mounts down in reverse
// order when the session ends.
//
// The package has two moving parts:
//
//   - [MountManager] tracks which mounts a profile requires, which are already
//     present in the host mount table, mounts the rest in declared order, and
//     unmounts what it owns in exact reverse order on teardown.
//
//   - [Chroot] owns one MountManager for a resolved root, establishes a fixed
//     base environment, and constructs sandboxed command lines of the form
//     `chroot <root> sh -c "<quoted argv>"`.
//
// # Planning vs Execution
//
// Construction is eager: creating a [Chroot] (or a [MountManager] directly)
// mounts everything the profile requires before returning. There is no
// separate prepare step. Construction can therefore fail with a [*MountError]
// describing the mount step that failed.
//
// Teardown is explicit and scoped: callers must arrange for [Chroot.Close] to
// run on every exit path, typically with defer. The [Mounted] helper wraps
// the construct/run/teardown cycle for callers that want that guarantee in
// one call.
//
// # Platform / Dependencies
//
// This package is Linux-only (see the build tag above) and shells out to the
// host's `mount`, `umount`, and `chroot` executables, which must be in PATH
// at runtime. Mounting and chrooting require root privileges.
//
// # Security Note
//
// A classic chroot jail plus bind-mounted kernel filesystems is not a
// namespace container: there is no PID, network, or user isolation, and no
// cgroup resource limiting. The sandbox boundary enforced here is mount
// targets staying under the root and argv tokens being quoted into single
// shell words before the inner `sh -c` re-parses them.
package chroot
