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
	"path/filepath"

	"github.com/flatrun/flatrun/dirs"
	"github.com/flatrun/flatrun/osutil"
)

// libDirCandidates is the fixed set of top-level library/binary
// directories the runtime tree may carry, each promoted to a root
// symlink when present (spec.md §4.3 base skeleton).
var libDirCandidates = []string{"lib", "lib32", "lib64", "bin", "sbin"}

// addBaseSkeleton emits the always-present argument prefix of spec.md
// §4.3: namespace unshares, dev/proc/tmp scaffolding, the synthesized
// /etc/passwd and /etc/group, the machine-id and resolv.conf symlink,
// the runtime/app read-only trees, and the app-private data dirs.
func addBaseSkeleton(p *plan, dep AppDeployment, runtimeRef string) error {
	p.add("--unshare-pid", "--unshare-user")
	p.add("--dev", "/dev")
	p.add("--proc", "/proc")
	p.add("--dir", "/tmp")
	p.add("--dir", "/run/host")
	p.add("--dir", p.xdgRuntime)
	p.setenv("XDG_RUNTIME_DIR", p.xdgRuntime)

	p.add("--symlink", "/tmp", "/var/tmp")
	p.add("--symlink", "/run", "/var/run")

	for _, d := range []string{"block", "bus", "class", "dev", "devices"} {
		path := "/sys/" + d
		p.add("--ro-bind", path, path)
	}

	if err := p.bindData("passwd", osutil.SynthesizePasswd(p.identity), "/etc/passwd"); err != nil {
		return err
	}
	if err := p.bindData("group", osutil.SynthesizeGroup(p.identity), "/etc/group"); err != nil {
		return err
	}

	machineID := dirs.HostMachineIDPath
	if !osutil.FileExists(machineID) {
		machineID = dirs.DbusMachineIDPath
	}
	if osutil.FileExists(machineID) {
		p.add("--ro-bind", machineID, "/etc/machine-id")
	}

	p.add("--symlink", "/run/host/monitor/resolv.conf", "/etc/resolv.conf")
	p.add("--symlink", "/run/host/monitor/localtime", "/etc/localtime")

	p.add("--dir", p.home)

	for _, d := range libDirCandidates {
		if osutil.IsDirectory(filepath.Join(dep.RuntimeFilesPath, d)) {
			p.add("--symlink", "usr/"+d, "/"+d)
		}
	}

	p.add("--ro-bind", dep.RuntimeFilesPath, "/usr")
	p.add("--lock-file", "/usr/.ref")
	p.add("--ro-bind", dep.FilesPath, "/app")
	p.add("--lock-file", "/app/.ref")

	appData := dirs.AppPersistentDir(p.home, dep.AppID, "")
	for _, sub := range []string{"cache", "data", "config"} {
		dst := map[string]string{"cache": "/var/cache", "data": "/var/data", "config": "/var/config"}[sub]
		src := filepath.Join(appData, sub)
		p.add("--bind", src, dst)
	}
	p.add("--bind", appData, appData)

	return nil
}
