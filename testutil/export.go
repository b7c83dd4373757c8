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

package testutil

import "os/exec"

var runDbusLaunchImpl = func() (string, error) {
	out, err := exec.Command("dbus-launch").Output()
	return string(out), err
}

func runDbusLaunch() (string, error) {
	return runDbusLaunchImpl()
}

// MockDbusLaunch replaces the dbus-launch invocation, for environments
// (and CI containers) where no message bus binary is installed but the
// wiring around DBusTest still needs exercising.
func MockDbusLaunch(f func() (string, error)) (restore func()) {
	old := runDbusLaunchImpl
	runDbusLaunchImpl = f
	return func() { runDbusLaunchImpl = old }
}
