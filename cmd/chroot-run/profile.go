package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tkldev/chroot/chroot"
)

// profileFile is the YAML representation of a mount profile.
//
// Each entry is either a virtual-filesystem mount (type) or a bind mount
// (bind), never both:
//
//	mounts:
//	  - type: proc
//	    target: proc
//	  - bind: /dev
//	    target: dev
type profileFile struct {
	Mounts []profileMount `yaml:"mounts"`
}

type profileMount struct {
	// Type is a virtual filesystem type (proc, sysfs, devpts, ...).
	Type string `yaml:"type,omitempty"`

	// Bind is an absolute host path to bind-mount.
	Bind string `yaml:"bind,omitempty"`

	// Target is the mount point relative to the chroot root.
	Target string `yaml:"target"`
}

// LoadProfileFile reads a YAML mount profile. Entry order in the file is the
// mount order.
func LoadProfileFile(path string) (*chroot.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}

	var pf profileFile

	err = yaml.Unmarshal(data, &pf)
	if err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}

	if len(pf.Mounts) == 0 {
		return nil, fmt.Errorf("profile %s declares no mounts", path)
	}

	specs := make([]chroot.MountSpec, 0, len(pf.Mounts))

	for i, m := range pf.Mounts {
		switch {
		case m.Type != "" && m.Bind != "":
			return nil, fmt.Errorf("profile %s: mount %d sets both type and bind", path, i)
		case m.Type == "" && m.Bind == "":
			return nil, fmt.Errorf("profile %s: mount %d sets neither type nor bind", path, i)
		case m.Type != "":
			specs = append(specs, chroot.TypeMount(m.Type, m.Target))
		default:
			specs = append(specs, chroot.BindMount(m.Bind, m.Target))
		}
	}

	return &chroot.Profile{Specs: specs}, nil
}
