//go:build linux

package chroot

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// validateProfile validates a profile before any mount is attempted.
//
// This is the input boundary for the mount phase: the rest of the package
// assumes validated specs satisfy their invariants (relative targets that
// stay under the root, known kinds, absolute bind sources).
func validateProfile(p *Profile) error {
	if p == nil || len(p.Specs) == 0 {
		return errors.New("profile has no mounts")
	}

	var errs []error

	for i, spec := range p.Specs {
		errs = append(errs, validateTarget(i, spec.Target)...)

		switch spec.Kind {
		case MountTypeFS:
			if strings.TrimSpace(spec.Source) == "" {
				errs = append(errs, fmt.Errorf("mount %d has empty filesystem type", i))
			} else if strings.Contains(spec.Source, "/") {
				errs = append(errs, fmt.Errorf("mount %d filesystem type %q must not contain '/'", i, spec.Source))
			}

		case MountBind:
			if strings.TrimSpace(spec.Source) == "" {
				errs = append(errs, fmt.Errorf("mount %d has empty bind source", i))
			} else if !filepath.IsAbs(spec.Source) {
				errs = append(errs, fmt.Errorf("mount %d bind source %q is not absolute", i, spec.Source))
			}

		default:
			errs = append(errs, fmt.Errorf("mount %d has unknown kind %d", i, spec.Kind))
		}
	}

	return errors.Join(errs...)
}

// validateTarget enforces the sandbox boundary: targets are relative paths
// that resolve to a point under the root.
func validateTarget(i int, target string) []error {
	var errs []error

	if strings.TrimSpace(target) == "" {
		return append(errs, fmt.Errorf("mount %d has empty target", i))
	}

	if filepath.IsAbs(target) {
		errs = append(errs, fmt.Errorf("mount %d target %q must be relative to the root", i, target))
	}

	for _, segment := range strings.Split(filepath.Clean(target), "/") {
		if segment == ".." {
			errs = append(errs, fmt.Errorf("mount %d target %q escapes the root", i, target))

			break
		}
	}

	return errs
}
