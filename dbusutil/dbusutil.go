// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2020 Canonical Ltd
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

// Package dbusutil wraps dialing the session and system buses so that
// tests can substitute a private connection instead, and so that
// accidental use of the wrong bus in a test panics loudly instead of
// quietly reaching a real daemon.
package dbusutil

import (
	"fmt"
	"os"

	"github.com/godbus/dbus"

	"github.com/flatrun/flatrun/dirs"
	"github.com/flatrun/flatrun/osutil"
)

var (
	onlySessionBusAvailable bool
	onlySystemBusAvailable  bool

	mockedSessionBus *dbus.Conn
	mockedSystemBus  *dbus.Conn
)

// SessionBus returns a shared connection to the D-Bus session bus, or
// an error if none is reachable.
func SessionBus() (*dbus.Conn, error) {
	if onlySystemBusAvailable {
		panic("DBus session bus should not have been used")
	}
	if mockedSessionBus != nil {
		return mockedSessionBus, nil
	}
	if !IsSessionBusLikelyPresent() {
		return nil, fmt.Errorf("cannot find session bus")
	}
	return dbus.SessionBus()
}

// SystemBus returns a shared connection to the D-Bus system bus, or
// an error if none is reachable.
func SystemBus() (*dbus.Conn, error) {
	if onlySessionBusAvailable {
		panic("DBus system bus should not have been used")
	}
	if mockedSystemBus != nil {
		return mockedSystemBus, nil
	}
	return dbus.SystemBus()
}

// IsSessionBusLikelyPresent does a cheap, non-blocking check for
// whether a session bus is likely to exist, without actually dialing
// it. This lets callers skip D-Bus-dependent setup (most notably the
// portal and proxy wiring) entirely in stripped-down containers
// instead of waiting out a dial timeout.
func IsSessionBusLikelyPresent() bool {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") != "" {
		return true
	}
	base := fmt.Sprintf("%s/%d", dirs.XdgRuntimeDirBase, os.Getuid())
	if osutil.FileExists(base + "/dbus-session") {
		return true
	}
	if osutil.FileExists(base + "/bus") {
		return true
	}
	return false
}

// MockOnlySessionBusAvailable forces SessionBus to return conn and
// SystemBus to panic, for tests that must prove a code path never
// touches the system bus.
func MockOnlySessionBusAvailable(conn *dbus.Conn) (restore func()) {
	oldConn, oldFlag := mockedSessionBus, onlySessionBusAvailable
	mockedSessionBus = conn
	onlySessionBusAvailable = true
	return func() {
		mockedSessionBus = oldConn
		onlySessionBusAvailable = oldFlag
	}
}

// MockOnlySystemBusAvailable is MockOnlySessionBusAvailable's system
// bus twin.
func MockOnlySystemBusAvailable(conn *dbus.Conn) (restore func()) {
	oldConn, oldFlag := mockedSystemBus, onlySystemBusAvailable
	mockedSystemBus = conn
	onlySystemBusAvailable = true
	return func() {
		mockedSystemBus = oldConn
		onlySystemBusAvailable = oldFlag
	}
}
