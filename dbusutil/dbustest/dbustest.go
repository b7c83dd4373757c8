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

// Package dbustest spins up a private, throwaway D-Bus daemon for
// tests that need a real *dbus.Conn but don't want to share a bus
// with any other test or the host session.
package dbustest

import (
	"bufio"
	"fmt"
	"os/exec"
	"strings"

	"github.com/godbus/dbus"
)

// StubConnection launches a private dbus-daemon via dbus-launch and
// returns a connection to it. Closing the returned connection does
// not kill the daemon; callers that need the daemon torn down should
// use testutil.DBusTest instead, which tracks the daemon's pid.
func StubConnection() (*dbus.Conn, error) {
	cmd := exec.Command("dbus-launch")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("cannot launch private message bus: %w", err)
	}

	address := ""
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "DBUS_SESSION_BUS_ADDRESS=") {
			address = strings.TrimPrefix(line, "DBUS_SESSION_BUS_ADDRESS=")
		}
	}
	if address == "" {
		return nil, fmt.Errorf("dbus-launch did not report a bus address")
	}

	conn, err := dbus.Dial(address)
	if err != nil {
		return nil, fmt.Errorf("cannot dial private message bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cannot authenticate to private message bus: %w", err)
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cannot say hello to private message bus: %w", err)
	}
	return conn, nil
}
