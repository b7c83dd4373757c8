// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2021 Canonical Ltd
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

// Package portal talks to the user's xdg-desktop-portal: activating
// the document portal's fuse mount, and requesting files/URIs be
// opened through its open-URI portal.
package portal

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/godbus/dbus"

	"github.com/flatrun/flatrun/dbusutil"
	"github.com/flatrun/flatrun/dirs"
	"github.com/flatrun/flatrun/osutil"
)

const (
	documentPortalBusName    = "org.freedesktop.portal.Documents"
	documentPortalObjectPath = "/org/freedesktop/portal/documents"
	documentPortalIface      = "org.freedesktop.portal.Documents"
)

var (
	userCurrent        = user.Current
	osutilIsMounted    = osutil.IsMounted
	dbusutilSessionBus = dbusutil.SessionBus
)

func documentMountPath(uid string) string {
	return filepath.Join(dirs.XdgRuntimeDirBase, uid, "doc")
}

// DocumentMountPath returns the path at which the document portal's
// fuse filesystem is (or will be) mounted for uid, for callers that
// need to bind a subdirectory of it into a sandbox once Activate has
// run.
func DocumentMountPath(uid string) string {
	return documentMountPath(uid)
}

// Document represents the document portal's fuse mount, lazily
// activated the first time a sandboxed process needs access to
// portal-exposed files.
type Document struct{}

// Activate ensures the document portal's fuse filesystem is mounted
// at $XDG_RUNTIME_DIR/doc, calling the portal's GetMountPoint method
// if it is not already. An unreachable session bus, or a ServiceUnknown
// reply from GetMountPoint (which also leaves a sentinel file so later
// calls skip the portal), is treated as "no portal available" and
// returns nil. Any other failure, including a failed user lookup or a
// mount point other than the expected one, is returned as an error.
func (d *Document) Activate() error {
	u, err := userCurrent()
	if err != nil {
		return fmt.Errorf("cannot determine current user: %w", err)
	}

	docPath := documentMountPath(u.Uid)

	mounted, err := osutilIsMounted(docPath)
	if err == nil && mounted {
		return nil
	}

	sentinel := filepath.Join(filepath.Dir(docPath), ".portals-unavailable")
	if osutil.FileExists(sentinel) {
		return nil
	}

	conn, err := dbusutilSessionBus()
	if err != nil {
		// No session bus reachable: nothing to activate, and
		// nothing for the caller to act on either.
		return nil
	}

	obj := conn.Object(documentPortalBusName, dbus.ObjectPath(documentPortalObjectPath))
	var mountPoint []byte
	if err := obj.Call(documentPortalIface+".GetMountPoint", 0).Store(&mountPoint); err != nil {
		if dbusErr, ok := err.(dbus.Error); ok && dbusErr.Name == "org.freedesktop.DBus.Error.ServiceUnknown" {
			markPortalsUnavailable(sentinel)
			return nil
		}
		return err
	}

	got := string(mountPoint)
	if got != docPath {
		return fmt.Errorf("Expected portal at %s, got %q", docPath, got)
	}
	return nil
}

func markPortalsUnavailable(sentinel string) {
	f, err := os.OpenFile(sentinel, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return
	}
	f.Close()
}
