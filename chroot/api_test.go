//go:build linux

package chroot_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tkldev/chroot/chroot"
)

func Test_DefaultProfiles_Return_Fresh_Copies(t *testing.T) {
	t.Parallel()

	first := chroot.MinimalProfile()
	first.Specs = append(first.Specs, chroot.BindMount("/run", "run"))

	second := chroot.MinimalProfile()
	if len(second.Specs) != 3 {
		t.Fatalf("MinimalProfile leaked state across calls: %+v", second.Specs)
	}

	full := chroot.FullProfile()
	full.Specs[0].Source = "/tmp"

	if chroot.FullProfile().Specs[0].Source != "/proc" {
		t.Fatal("FullProfile leaked state across calls")
	}
}

func Test_IsMounted_Reads_Table_From_File(t *testing.T) {
	t.Parallel()

	table := filepath.Join(t.TempDir(), "mounts")
	if err := os.WriteFile(table, []byte("proc /srv/root/proc proc rw 0 0\n"), 0o644); err != nil {
		t.Fatalf("writing mount table: %v", err)
	}

	got, err := chroot.IsMounted(table, "/srv/root/proc")
	if err != nil {
		t.Fatalf("IsMounted: %v", err)
	}

	if !got {
		t.Fatal("expected /srv/root/proc to report mounted")
	}

	got, err = chroot.IsMounted(table, "/srv/root/sys")
	if err != nil {
		t.Fatalf("IsMounted: %v", err)
	}

	if got {
		t.Fatal("expected /srv/root/sys to report unmounted")
	}
}

func Test_IsMounted_Errors_On_Missing_Table(t *testing.T) {
	t.Parallel()

	_, err := chroot.IsMounted(t.TempDir()+"/missing", "/proc")
	if err == nil {
		t.Fatal("expected an error for a missing mount table")
	}
}

func Test_NewWithEnvironment_Rejects_Missing_Root(t *testing.T) {
	t.Parallel()

	_, err := chroot.NewWithEnvironment(t.TempDir()+"/does-not-exist", nil, chroot.Environment{})

	var chrootErr *chroot.ChrootError
	if !errors.As(err, &chrootErr) {
		t.Fatalf("expected *ChrootError, got %v", err)
	}
}

func Test_Mounted_Propagates_Construction_Error_Without_Calling_Fn(t *testing.T) {
	t.Parallel()

	called := false

	err := chroot.Mounted(t.TempDir()+"/does-not-exist", nil, func(*chroot.Chroot) error {
		called = true

		return nil
	})
	if err == nil {
		t.Fatal("expected a construction error")
	}

	if called {
		t.Fatal("fn must not run when construction fails")
	}
}
