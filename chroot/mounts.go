//go:build linux

package chroot

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// MountManager attaches a profile's mounts under a single chroot root and
// reverses them on teardown.
//
// A MountManager is single-threaded: mounts on one root must be strictly
// ordered (filesystem nesting), and there is exactly one manager
// per chroot session. Concurrent managers over the same root from multiple
// processes are unsupported; the only cross-process coordination is the
// idempotent "skip if already mounted" check against the live mount table.
type MountManager struct {
	root  string
	specs []MountSpec

	// state is parallel to specs. owned records whether THIS manager
	// performed the mount; pre-existing mount points are recorded as present
	// but never owned, so teardown cannot unmount something the manager did
	// not mount.
	state []mountState

	emulation *EmulationBinary
	staged    bool

	mountTable string
	debugf     Debugf

	exec       commandRunner
	copyFile   func(src, dst string) error
	removeFile func(path string) error
}

type mountState struct {
	// target is the resolved absolute mount point (root + relative target).
	target string

	// owned is set when this manager mounted the target, and cleared by
	// Unmount regardless of unmount success.
	owned bool
}

// NewMountManager resolves root, applies architecture-emulation detection to
// the profile selection, and eagerly mounts everything. There is no separate
// prepare phase: a returned manager has its profile fully mounted.
//
// On a mount failure the error is a [*MountError] and no manager is
// returned. Mounts that succeeded before the failure are left in place:
// partial state is recoverable (a later session over the same root skips
// them as already mounted, without taking ownership), and cleaning it up is
// an explicit `umount` decision for the operator, not something construction
// second-guesses.
func NewMountManager(root string, cfg *Config, env Environment) (*MountManager, error) {
	m, err := newMountManager(root, cfg, env)
	if err != nil {
		return nil, err
	}

	err = m.Mount()
	if err != nil {
		return nil, err
	}

	return m, nil
}

// newMountManager builds the manager without mounting.
func newMountManager(root string, cfg *Config, env Environment) (*MountManager, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	env = cloneEnvironment(env)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &ChrootError{Op: "resolve root", Err: err}
	}

	emulation, wantFull, err := detectEmulation(cfg.TargetArch, cfg.HostArch)
	if err != nil {
		return nil, err
	}

	profile := cfg.Profile.clone()
	if profile == nil {
		if wantFull {
			profile = FullProfile()
		} else {
			profile = MinimalProfile()
		}
	}

	if emulation != nil {
		profile = profile.withBinfmtMisc()
	}

	err = validateProfile(profile)
	if err != nil {
		return nil, &ChrootError{Op: "validate profile", Err: err}
	}

	state := make([]mountState, len(profile.Specs))
	for i, spec := range profile.Specs {
		state[i] = mountState{target: filepath.Join(absRoot, spec.Target)}
	}

	if emulation != nil {
		emulation.Dest = filepath.Join(absRoot, emulation.Dest)
		checkInterpreter(emulation.Source, cfg.Debugf)
	}

	if cfg.Debugf != nil && unix.Geteuid() != 0 {
		cfg.Debugf("chroot(mount): not running as root, mount operations will likely fail")
	}

	return &MountManager{
		root:       absRoot,
		specs:      profile.Specs,
		state:      state,
		emulation:  emulation,
		mountTable: env.MountTable,
		debugf:     cfg.Debugf,
		exec:       &execRunner{debugf: cfg.Debugf},
		copyFile:   copyFile,
		removeFile: os.Remove,
	}, nil
}

// Root returns the resolved absolute chroot root.
func (m *MountManager) Root() string { return m.root }

// MountPoints returns the resolved absolute mount points in mount order.
func (m *MountManager) MountPoints() []string {
	points := make([]string, len(m.state))
	for i, st := range m.state {
		points[i] = st.target
	}

	return points
}

// Mount attaches every profile entry in declared order.
//
// Targets already present in the mount table are skipped without error and
// without taking ownership. The first failing mount aborts the operation
// with a [*MountError]; earlier mounts stay in place and keep their
// ownership, so the caller may retry Mount or tear down with Unmount.
//
// After all entries are mounted, a configured emulation binary is copied
// into the root; a copy failure is fatal.
func (m *MountManager) Mount() error {
	for i, spec := range m.specs {
		st := &m.state[i]

		mounted, err := IsMounted(m.mountTable, st.target)
		if err != nil {
			return &MountError{Step: "query mount table for", Target: st.target, Err: err}
		}

		if mounted || st.owned {
			m.logf("chroot(mount): %s already mounted, skipping", st.target)

			continue
		}

		var args []string

		switch spec.Kind {
		case MountTypeFS:
			args = []string{"-t", spec.Source, spec.Source, st.target}
		case MountBind:
			args = []string{"--bind", spec.Source, st.target}
		default:
			// validateProfile makes this unreachable.
			return &MountError{Step: "mount", Target: st.target, Err: fmt.Errorf("unknown mount kind %d", spec.Kind)}
		}

		stderr, err := m.exec.run("mount", args...)
		if err != nil {
			return &MountError{Step: "mount", Target: st.target, Output: string(stderr), Err: err}
		}

		st.owned = true
	}

	if m.emulation != nil && !m.staged {
		err := m.copyFile(m.emulation.Source, m.emulation.Dest)
		if err != nil {
			return &MountError{Step: "stage emulation binary", Target: m.emulation.Dest, Err: err}
		}

		m.staged = true
	}

	return nil
}

// Unmount detaches everything this manager owns, in exact reverse mount
// order so nested mounts come off before their parents. A staged emulation
// binary is removed first; a file that is already absent counts as removed.
//
// Unmount is best-effort and idempotent: failures are reported through the
// debug channel only, every remaining target is still attempted, ownership
// is cleared unconditionally, and a second call is a no-op. Teardown
// commonly runs during cleanup of some other failure and must not mask it.
func (m *MountManager) Unmount() {
	if m.staged {
		err := m.removeFile(m.emulation.Dest)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logf("chroot(unmount): removing emulation binary %s: %v", m.emulation.Dest, err)
		}

		m.staged = false
	}

	for i := len(m.specs) - 1; i >= 0; i-- {
		st := &m.state[i]
		if !st.owned {
			continue
		}

		st.owned = false

		stderr, err := m.exec.run("umount", "-f", st.target)
		if err != nil {
			m.logf("chroot(unmount): umount %s: %v: %s", st.target, err, stderr)
		}
	}
}

// Close unmounts and always returns nil; the error return exists so Close
// can sit directly in a defer chain alongside other closers.
func (m *MountManager) Close() error {
	m.Unmount()

	return nil
}

func (m *MountManager) logf(format string, args ...any) {
	if m.debugf != nil {
		m.debugf(format, args...)
	}
}

// copyFile copies src to dst, creating or truncating dst with src's
// permission bits. Used to stage emulation binaries into the root.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)

	closeErr := out.Close()
	if err != nil {
		return err
	}

	return closeErr
}
