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

package osutil

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MemfdFile creates an anonymous, unlinked, cloexec-cleared file
// backed by the given contents and rewound to offset 0, ready to be
// transferred to a child process as --bind-data/--file/--args fd.
// name only shows up in /proc/self/fd/<n> -> memfd:name for
// debugging; it has no path on disk.
func MemfdFile(name string, contents []byte) (*os.File, error) {
	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot create memfd %s: %w", name, err)
	}
	f := os.NewFile(uintptr(fd), "/memfd:"+name)
	if _, err := f.Write(contents); err != nil {
		f.Close()
		return nil, fmt.Errorf("cannot write memfd %s: %w", name, err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("cannot rewind memfd %s: %w", name, err)
	}
	return f, nil
}

// ClearCloexec clears FD_CLOEXEC on f's descriptor, the inheritance
// path used right before handing an fd number to the helper's argv;
// every other fd the composer opened stays close-on-exec.
func ClearCloexec(f *os.File) error {
	fd := int(f.Fd())
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return fmt.Errorf("cannot read fd flags: %w", err)
	}
	flags &^= unix.FD_CLOEXEC
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags); err != nil {
		return fmt.Errorf("cannot clear close-on-exec: %w", err)
	}
	return nil
}

// SetCloexec sets FD_CLOEXEC on f's descriptor, used on the
// read end of the proxy supervisor's own copy of the sync pipe so it
// is not accidentally inherited by a later exec on the same path.
func SetCloexec(f *os.File) error {
	fd := int(f.Fd())
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return fmt.Errorf("cannot read fd flags: %w", err)
	}
	flags |= unix.FD_CLOEXEC
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags); err != nil {
		return fmt.Errorf("cannot set close-on-exec: %w", err)
	}
	return nil
}
