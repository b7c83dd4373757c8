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

package scope

import (
	"time"

	godbus "github.com/godbus/dbus"
)

var PrivateSocketPath = privateSocketPath

func MockDialPrivateBus(f func(path string) (*godbus.Conn, error)) (restore func()) {
	old := dialPrivateBus
	dialPrivateBus = f
	return func() { dialPrivateBus = old }
}

func MockRegistrationTimeout(d time.Duration) (restore func()) {
	old := registrationTimeout
	registrationTimeout = d
	return func() { registrationTimeout = old }
}
