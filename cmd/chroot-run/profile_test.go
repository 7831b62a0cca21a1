package main

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tkldev/chroot/chroot"
)

func Test_LoadProfileFile_Preserves_Declared_Order(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profile.yaml")
	mustWriteFile(t, path, []byte(`
mounts:
  - type: proc
    target: proc
  - bind: /dev
    target: dev
  - bind: /dev/pts
    target: dev/pts
`))

	profile, err := LoadProfileFile(path)
	if err != nil {
		t.Fatalf("LoadProfileFile: %v", err)
	}

	want := &chroot.Profile{Specs: []chroot.MountSpec{
		chroot.TypeMount("proc", "proc"),
		chroot.BindMount("/dev", "dev"),
		chroot.BindMount("/dev/pts", "dev/pts"),
	}}

	if diff := cmp.Diff(want, profile); diff != "" {
		t.Fatalf("profile mismatch (-want +got):\n%s", diff)
	}
}

func Test_LoadProfileFile_Rejects_Ambiguous_Entries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		yaml string
	}{
		{"both type and bind", "mounts:\n  - type: proc\n    bind: /proc\n    target: proc\n"},
		{"neither type nor bind", "mounts:\n  - target: proc\n"},
		{"no mounts", "mounts: []\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "profile.yaml")
			mustWriteFile(t, path, []byte(tc.yaml))

			_, err := LoadProfileFile(path)
			if err == nil {
				t.Fatalf("expected an error for %s", tc.name)
			}
		})
	}
}

func Test_LoadProfileFile_Errors_On_Missing_File(t *testing.T) {
	t.Parallel()

	_, err := LoadProfileFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing profile file")
	}
}
