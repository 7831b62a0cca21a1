//go:build linux

package chroot

import (
	"maps"
	"path/filepath"
	"sort"
)

// defaultPath is the PATH established inside every chroot session.
const defaultPath = "/usr/local/sbin:/usr/local/bin:/sbin:/bin:/usr/bin:/usr/sbin"

// Config configures a chroot session.
//
// Config is intentionally independent from any config-file loading or CLI
// flag parsing; callers produce a final Config before constructing a
// session. In particular the architecture signals are plain values here:
// reading them from ambient environment variables is the outermost caller's
// job (see cmd/chroot-run).
//
// The zero value is a usable default: minimal profile, base environment
// only, no emulation, no debug output.
type Config struct {
	// Env is overlaid onto the session's fixed base environment
	// (HOME=/root, TERM inherited from the host, LC_ALL=C, and a fixed
	// PATH). On key collision the override wins.
	Env map[string]string

	// Profile selects the mounts to attach. Nil means the minimal profile,
	// or the full profile when architecture signals call for it. The value
	// is copied at construction; later mutation has no effect on the
	// session.
	Profile *Profile

	// TargetArch and HostArch are the declared build-target and host
	// architectures. When both are set and differ, the session stages a
	// qemu user-mode interpreter and bind-mounts binfmt_misc. TargetArch
	// without HostArch is a configuration error.
	TargetArch string
	HostArch   string

	// Debugf receives diagnostics, including every constructed command line.
	Debugf Debugf
}

// cloneConfig returns a deep copy of cfg so subsequent caller mutation does
// not affect the session.
func cloneConfig(cfg *Config) Config {
	out := *cfg

	out.Profile = cfg.Profile.clone()

	if cfg.Env != nil {
		out.Env = make(map[string]string, len(cfg.Env))
		maps.Copy(out.Env, cfg.Env)
	}

	return out
}

// Chroot is a mounted chroot session: a resolved root with its profile
// mounts attached and a fixed environment for commands run inside it.
//
// Construction mounts eagerly and can fail with a [*MountError]. Callers own
// teardown: arrange for Close to run on every exit path, typically
//
//	c, err := chroot.New("/srv/buildroot", nil)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
// or use [Mounted], which wires that up for you.
//
// A Chroot is not safe for concurrent use.
type Chroot struct {
	// Path is the canonical absolute root of the chroot.
	Path string

	envSlice []string
	mounts   *MountManager
	debugf   Debugf
}

// New constructs a session over root using an [Environment] derived from the
// current process. See [NewWithEnvironment].
func New(root string, cfg *Config) (*Chroot, error) {
	return NewWithEnvironment(root, cfg, DefaultEnvironment())
}

// NewWithEnvironment constructs a session over root with an explicit host
// environment.
//
// The root is resolved to its canonical absolute form (symlinks followed);
// a root that does not exist is an error. The session environment is the
// fixed base set overlaid with cfg.Env. Construction mounts the profile
// immediately.
func NewWithEnvironment(root string, cfg *Config, env Environment) (*Chroot, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	cloned := cloneConfig(cfg)
	env = cloneEnvironment(env)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &ChrootError{Op: "resolve root", Err: err}
	}

	resolved, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, &ChrootError{Op: "resolve root", Err: err}
	}

	mounts, err := NewMountManager(resolved, &cloned, env)
	if err != nil {
		return nil, err
	}

	return &Chroot{
		Path:     resolved,
		envSlice: envMapToSliceSorted(sessionEnv(cloned.Env, env.HostEnv)),
		mounts:   mounts,
		debugf:   cloned.Debugf,
	}, nil
}

// Mounted runs fn against a freshly constructed session and guarantees
// teardown on every exit path, including a panic inside fn. It is the
// scoped-acquisition form of New + defer Close.
func Mounted(root string, cfg *Config, fn func(*Chroot) error) error {
	c, err := New(root, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(c)
}

// Close tears down the session's mounts. It is idempotent and best-effort;
// it never masks an in-flight error with teardown noise, so it always
// returns nil.
func (c *Chroot) Close() error {
	return c.mounts.Close()
}

// Mounts exposes the session's mount manager, mainly for callers that want
// to inspect resolved mount points.
func (c *Chroot) Mounts() *MountManager { return c.mounts }

// sessionEnv builds the session environment: the fixed base set, TERM
// inherited from the host, then caller overrides on top.
func sessionEnv(overrides, hostEnv map[string]string) map[string]string {
	env := map[string]string{
		"HOME":   "/root",
		"TERM":   hostEnv["TERM"],
		"LC_ALL": "C",
		"PATH":   defaultPath,
	}

	maps.Copy(env, overrides)

	return env
}

// envMapToSliceSorted converts a map env to a sorted KEY=VALUE slice.
//
// Sorting improves determinism in tests and makes debug output stable.
func envMapToSliceSorted(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}

	return out
}
