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
	"path/filepath"
	"strconv"

	"github.com/miekg/dns"

	"github.com/flatrun/flatrun/dbusutil"
	"github.com/flatrun/flatrun/desktop/portal"
	"github.com/flatrun/flatrun/dirs"
	"github.com/flatrun/flatrun/logging"
	"github.com/flatrun/flatrun/osutil"
)

const monitorDst = "/run/host/monitor"

// addMonitorPath populates /run/host/monitor (spec.md §4.3 "Monitor
// path"); the skeleton already symlinks /etc/resolv.conf and
// /etc/localtime to their counterparts under this directory
// unconditionally. If the session helper's RequestMonitor method is
// reachable, the host directory it returns is bound wholesale;
// otherwise the entries are populated directly from the host's own
// resolv.conf/localtime.
func addMonitorPath(p *plan) {
	p.add("--dir", monitorDst)

	if requestMonitor(p) {
		return
	}

	if osutil.FileExists(dirs.HostResolvConfPath) {
		warnIfNoNameservers(dirs.HostResolvConfPath)
		p.add("--ro-bind", dirs.HostResolvConfPath, monitorDst+"/resolv.conf")
	}
	addLocaltimeMirror(p)
}

// requestMonitor reports whether the session helper's monitor
// directory was bound at monitorDst; its caller falls back to the
// host's own resolv.conf/localtime only when it returns false.
func requestMonitor(p *plan) bool {
	conn, err := dbusutil.SessionBus()
	if err != nil {
		logging.Noticef("session bus unavailable for monitor path: %v", err)
		return false
	}
	hostDir, err := portal.RequestMonitor(conn)
	if err != nil {
		logging.Noticef("session helper monitor path unavailable: %v", err)
		return false
	}
	p.add("--ro-bind", hostDir, monitorDst)
	return true
}

// warnIfNoNameservers is a diagnostic-only check: the host's
// resolv.conf is bound unmodified regardless of what this parse
// finds, but an empty nameserver list is worth a log line since it
// usually means the sandbox will see a dead DNS configuration too.
func warnIfNoNameservers(path string) {
	cfg, err := dns.ClientConfigFromFile(path)
	if err != nil {
		logging.Debugf("cannot parse %s: %v", path, err)
		return
	}
	if len(cfg.Servers) == 0 {
		logging.Noticef("%s declares no nameservers", path)
	}
}

// addLocaltimeMirror reproduces /etc/localtime under
// /run/host/monitor, preserving a symlink's target rather than
// resolving it (so a later host timezone change via the same zoneinfo
// symlink convention is still picked up if the zoneinfo tree itself is
// bound elsewhere), and falling back to a plain read-only bind for
// hosts that ship /etc/localtime as a regular file.
func addLocaltimeMirror(p *plan) {
	localtime := dirs.HostLocaltimePath
	if !osutil.FileExists(localtime) {
		return
	}
	if osutil.IsSymlink(localtime) {
		if target, err := os.Readlink(localtime); err == nil {
			p.add("--symlink", target, monitorDst+"/localtime")
			return
		}
	}
	p.add("--ro-bind", localtime, monitorDst+"/localtime")
}

// addDocumentPortal binds the document portal's per-app view into the
// sandbox's runtime directory, best-effort (spec.md §4.3 "Document
// portal").
func addDocumentPortal(p *plan, appID string) {
	doc := &portal.Document{}
	if err := doc.Activate(); err != nil {
		logging.Noticef("document portal not activated: %v", err)
		return
	}
	mount := portal.DocumentMountPath(strconv.Itoa(p.uid))
	src := filepath.Join(mount, "by-app", appID)
	if !osutil.IsDirectory(src) {
		return
	}
	dst := filepath.Join(p.xdgRuntime, "doc")
	p.add("--bind", src, dst)
}

// addFontPaths binds the system and, if present, user font
// directories for the sandboxed application (spec.md §4.3
// "Font paths").
func addFontPaths(p *plan) {
	if osutil.IsDirectory(dirs.HostFontsDir) {
		p.add("--ro-bind", dirs.HostFontsDir, "/run/host/fonts")
	}

	candidates := []string{
		filepath.Join(p.home, ".local/share/fonts"),
		filepath.Join(p.home, ".fonts"),
	}
	for _, c := range candidates {
		if osutil.IsDirectory(c) {
			p.add("--ro-bind", c, "/run/host/user-fonts")
			return
		}
	}
}
