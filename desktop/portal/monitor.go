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

package portal

import (
	"fmt"

	"github.com/godbus/dbus"
)

const (
	sessionHelperBusName    = "org.freedesktop.portal.Flatpak"
	sessionHelperObjectPath = "/org/freedesktop/portal/Flatpak"
	sessionHelperIface      = "org.freedesktop.portal.Flatpak.SessionHelper"
)

// RequestMonitor calls the session helper's RequestMonitor method and
// returns the host-side directory it hands back, used by the
// composer's monitor path in place of a synthesised resolv.conf/
// localtime mirror when the session helper is reachable.
func RequestMonitor(conn *dbus.Conn) (string, error) {
	obj := conn.Object(sessionHelperBusName, dbus.ObjectPath(sessionHelperObjectPath))
	var path string
	if err := obj.Call(sessionHelperIface+".RequestMonitor", 0).Store(&path); err != nil {
		return "", fmt.Errorf("cannot reach session helper monitor path: %w", err)
	}
	if path == "" {
		return "", fmt.Errorf("session helper returned an empty monitor path")
	}
	return path, nil
}
