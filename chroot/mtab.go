//go:build linux

package chroot

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// IsMounted reports whether path appears as a mount point in the mount table
// at tablePath (defaults to /proc/mounts when empty).
//
// The table is space-delimited with one `source mountpoint options...` record
// per line; only the second field is interpreted, and the match is an exact
// byte comparison against path. This is a point-in-time check with no
// caching: mount state can change out of band (a previous crashed run may
// have left the root mounted), so every orchestration step re-queries the
// live table.
func IsMounted(tablePath, path string) (bool, error) {
	if tablePath == "" {
		tablePath = procMounts
	}

	f, err := os.Open(tablePath)
	if err != nil {
		return false, fmt.Errorf("open mount table: %w", err)
	}
	defer f.Close()

	return isMountedIn(f, []byte(path))
}

// isMountedIn scans mount-table records from r. Comparing raw bytes keeps
// text and byte path representations equivalent: the queried path is matched
// in exactly the encoding the table uses.
func isMountedIn(r io.Reader, path []byte) (bool, error) {
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		fields := bytes.SplitN(scanner.Bytes(), []byte(" "), 3)
		if len(fields) < 2 {
			continue
		}

		if bytes.Equal(fields[1], path) {
			return true, nil
		}
	}

	err := scanner.Err()
	if err != nil {
		return false, fmt.Errorf("read mount table: %w", err)
	}

	return false, nil
}
