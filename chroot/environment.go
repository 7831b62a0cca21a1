//go:build linux

package chroot

import (
	"maps"
	"os"
	"strings"
)

// procMounts is the kernel's live mount table.
const procMounts = "/proc/mounts"

// Environment describes the host state a session is resolved against.
//
// All ambient reads happen in [DefaultEnvironment] (or in the caller); the
// rest of the package only ever consults an explicit Environment value, so
// tests never need to manipulate the process environment.
type Environment struct {
	// HostEnv is a snapshot of host environment variables. The session's
	// base environment inherits TERM from it.
	HostEnv map[string]string

	// MountTable is the path of the mount table consulted by mount-state
	// queries. Empty means /proc/mounts.
	MountTable string
}

// DefaultEnvironment returns an Environment derived from the current process.
// Invalid KEY=VALUE entries in os.Environ are ignored.
func DefaultEnvironment() Environment {
	hostEnv := make(map[string]string, len(os.Environ()))

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}

		hostEnv[key] = value
	}

	return Environment{HostEnv: hostEnv, MountTable: procMounts}
}

// cloneEnvironment returns a deep copy of env with defaults applied.
func cloneEnvironment(env Environment) Environment {
	out := env

	if env.HostEnv == nil {
		out.HostEnv = map[string]string{}
	} else {
		out.HostEnv = make(map[string]string, len(env.HostEnv))
		maps.Copy(out.HostEnv, env.HostEnv)
	}

	if out.MountTable == "" {
		out.MountTable = procMounts
	}

	return out
}

// Debugf receives diagnostic messages, including every constructed command
// line before it is executed. A nil Debugf disables the channel; it is never
// required for correctness.
//
// The function should be safe to call from any goroutine.
type Debugf func(format string, args ...any)
