// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2018 Canonical Ltd
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

package composer

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/flatrun/flatrun/errkinds"
	"github.com/flatrun/flatrun/osutil"
)

// argvByteBudget is the point past which the remainder of the logical
// argv is handed to the helper through a file descriptor instead of
// the real command line, per spec.md §4.3 "Long argv handoff". 128KiB
// leaves comfortable headroom under Linux's MAX_ARG_STRLEN/execve
// limits even once the shell or helper's own argv0 is added back in.
const argvByteBudget = 128 * 1024

// finalizeArgv decides whether the application's own argv (the custom
// command, if any, followed by the caller-supplied argv) fits as a
// normal command line tail, or must be handed off via --args <fd>.
// When handed off, it returns nil: the caller's argv no longer needs
// appending to the exec'd command line.
func finalizeArgv(p *plan, customCommand string, argv []string) ([]string, error) {
	full := argv
	if customCommand != "" {
		full = append([]string{customCommand}, argv...)
	}

	size := 0
	for _, a := range full {
		size += len(a) + 1
	}
	if size <= argvByteBudget {
		return full, nil
	}

	contents := []byte(strings.Join(full, "\x00") + "\x00")
	f, err := osutil.MemfdFile("args", contents)
	if err != nil {
		return nil, &errkinds.ResourceError{Step: "create args fd", Err: err}
	}
	p.add("--args")
	if err := p.addFile(f); err != nil {
		return nil, &errkinds.ResourceError{Step: "prepare long argv handoff", Err: err}
	}
	return nil, nil
}

// execHelper replaces the calling process image with the container
// helper, per the "Execution" step of spec.md §4.3: once exec'd, the
// helper becomes the application and this call never returns on
// success. extraFiles are dup2'd into fd 3, 4, 5, … first, matching
// the numbering finalizeArgv/plan.resolveArgv already baked into argv
// (os/exec's ExtraFiles convention, reproduced here for a real
// execve since syscall.Exec does not renumber inherited fds itself).
var execHelper = func(path string, argv []string, extraFiles []*os.File, envv []string) error {
	for i, f := range extraFiles {
		target := 3 + i
		if int(f.Fd()) == target {
			continue
		}
		if err := unix.Dup2(int(f.Fd()), target); err != nil {
			return err
		}
	}
	return unix.Exec(path, argv, envv)
}
