//go:build linux

package chroot

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func Test_SessionEnv_Overlays_Overrides_On_Base(t *testing.T) {
	t.Parallel()

	env := sessionEnv(
		map[string]string{"LC_ALL": "en_US.UTF-8", "DEBIAN_FRONTEND": "noninteractive"},
		map[string]string{"TERM": "xterm-256color", "SHELL": "/bin/zsh"},
	)

	want := map[string]string{
		"HOME":            "/root",
		"TERM":            "xterm-256color",
		"LC_ALL":          "en_US.UTF-8",
		"PATH":            defaultPath,
		"DEBIAN_FRONTEND": "noninteractive",
	}

	if diff := cmp.Diff(want, env); diff != "" {
		t.Fatalf("session env mismatch (-want +got):\n%s", diff)
	}
}

func Test_SessionEnv_Never_Inherits_Host_Env_Wholesale(t *testing.T) {
	t.Parallel()

	env := sessionEnv(nil, map[string]string{"TERM": "vt100", "LD_PRELOAD": "/evil.so"})

	if _, ok := env["LD_PRELOAD"]; ok {
		t.Fatal("host environment leaked into the session beyond TERM")
	}
}

func Test_EnvMapToSliceSorted_Is_Deterministic(t *testing.T) {
	t.Parallel()

	got := envMapToSliceSorted(map[string]string{"B": "2", "A": "1", "C": "3"})

	want := []string{"A=1", "B=2", "C=3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("env slice mismatch (-want +got):\n%s", diff)
	}
}

func Test_Command_Builds_Chroot_Shell_Invocation(t *testing.T) {
	t.Parallel()

	c := &Chroot{Path: "/srv/buildroot", envSlice: []string{"HOME=/root", "LC_ALL=C"}}

	cmd, err := c.Command(t.Context(), []string{"apt-get", "install", "-y", "build essential"})
	if err != nil {
		t.Fatalf("Command: %v", err)
	}

	want := []string{"chroot", "/srv/buildroot", "sh", "-c", "apt-get install -y 'build essential'"}
	if diff := cmp.Diff(want, cmd.Args); diff != "" {
		t.Fatalf("argv mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"HOME=/root", "LC_ALL=C"}, cmd.Env); diff != "" {
		t.Fatalf("env mismatch (-want +got):\n%s", diff)
	}
}

func Test_Command_Rejects_Bad_Tokens_Before_Spawning(t *testing.T) {
	t.Parallel()

	c := &Chroot{Path: "/srv/buildroot"}

	_, err := c.Command(t.Context(), []string{"ls", ">", "/etc/passwd"})

	var chrootErr *ChrootError
	if !errors.As(err, &chrootErr) {
		t.Fatalf("expected *ChrootError, got %v", err)
	}
}

