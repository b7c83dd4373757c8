// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2016 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

// Package osutil collects the small filesystem and process primitives
// the composer needs: existence checks, mount-table lookups, and the
// unlinked-fd dance used to hand data to the container helper.
package osutil

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// FileExists returns true if the given path exists, regardless of
// what kind of file it is.
func FileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsDirectory returns true if the path exists and is a directory.
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsSymlink returns true if the path exists and is a symbolic link.
func IsSymlink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}

var isMountedImpl = isMountedLinux

// IsMounted reports whether path is itself a mount point, by scanning
// /proc/self/mountinfo. Used by the document portal to decide whether
// its fuse mount is already active (Activate is otherwise a no-op).
func IsMounted(path string) (bool, error) {
	return isMountedImpl(path)
}

// MockIsMounted replaces the mountinfo-scanning implementation, for
// tests that cannot rely on a real mount existing.
func MockIsMounted(f func(path string) (bool, error)) (restore func()) {
	old := isMountedImpl
	isMountedImpl = f
	return func() { isMountedImpl = old }
}

func isMountedLinux(path string) (bool, error) {
	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return false, fmt.Errorf("cannot open /proc/self/mountinfo: %w", err)
	}
	defer f.Close()

	clean := cleanPath(path)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		// mountinfo format: ID PARENT-ID MAJOR:MINOR ROOT MOUNT-POINT ...
		if len(fields) < 5 {
			continue
		}
		if fields[4] == clean {
			return true, nil
		}
	}
	return false, scanner.Err()
}

func cleanPath(path string) string {
	if path == "" {
		return path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}
