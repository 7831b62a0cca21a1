//go:build linux

package chroot

import "slices"

// MountKind selects the mechanism used to attach one profile entry.
//
// The zero value is invalid; [validateProfile] rejects it at construction so
// mount dispatch can switch exhaustively over the known kinds.
type MountKind int

const (
	// MountTypeFS mounts a virtual filesystem by type
	// (`mount -t <type> <type> <target>`).
	MountTypeFS MountKind = iota + 1

	// MountBind bind-mounts an existing host path
	// (`mount --bind <source> <target>`).
	MountBind
)

// MountSpec is one entry of a [Profile].
type MountSpec struct {
	// Kind selects the mount mechanism.
	Kind MountKind

	// Source is the filesystem-type label for MountTypeFS (used both as the
	// mount source token and the -t switch), or an absolute host path for
	// MountBind.
	Source string

	// Target is the mount point relative to the chroot root (e.g. "proc",
	// "dev/pts"). It must not escape the root: absolute paths and ".."
	// segments are rejected. This is the sandbox boundary.
	Target string
}

// TypeMount returns a spec that mounts a virtual filesystem of fsType at
// relTarget inside the root.
func TypeMount(fsType, relTarget string) MountSpec {
	return MountSpec{Kind: MountTypeFS, Source: fsType, Target: relTarget}
}

// BindMount returns a spec that bind-mounts hostPath at relTarget inside the
// root.
func BindMount(hostPath, relTarget string) MountSpec {
	return MountSpec{Kind: MountBind, Source: hostPath, Target: relTarget}
}

// Profile is an ordered list of mounts to attach inside a chroot root.
//
// Order is significant and is preserved exactly: mounts are attached in
// declared order and detached in exact reverse order. Entries must be
// declared parent before child (e.g. "dev" before "dev/pts") or the kernel
// will refuse the nested teardown.
//
// Profiles are copied when a session is constructed; extending a session
// (for example with the binfmt_misc bind) never mutates the caller's value.
type Profile struct {
	Specs []MountSpec
}

// MinimalProfile returns the default profile: the virtual filesystems a
// chroot needs for most package and build tooling to function.
func MinimalProfile() *Profile {
	return &Profile{Specs: []MountSpec{
		TypeMount("proc", "proc"),
		TypeMount("sysfs", "sys"),
		TypeMount("devpts", "dev/pts"),
	}}
}

// FullProfile returns the bind-mount profile used when the chroot should
// share the host's device and runtime state, e.g. under cross-architecture
// emulation.
func FullProfile() *Profile {
	return &Profile{Specs: []MountSpec{
		BindMount("/proc", "proc"),
		BindMount("/sys", "sys"),
		BindMount("/dev", "dev"),
		BindMount("/dev/pts", "dev/pts"),
		BindMount("/run", "run"),
	}}
}

// binfmtMiscPath is the kernel's binary-format handler registry, bind-mounted
// into the chroot when foreign-architecture execution is configured.
const binfmtMiscPath = "/proc/sys/fs/binfmt_misc"

func (p *Profile) clone() *Profile {
	if p == nil {
		return nil
	}

	return &Profile{Specs: slices.Clone(p.Specs)}
}

// withBinfmtMisc returns a copy of p with the binfmt_misc bind appended.
func (p *Profile) withBinfmtMisc() *Profile {
	out := p.clone()
	out.Specs = append(out.Specs, BindMount(binfmtMiscPath, "proc/sys/fs/binfmt_misc"))

	return out
}
