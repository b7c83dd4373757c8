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

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/godbus/dbus"
	. "gopkg.in/check.v1"
)

// DBusTest gives a suite a private session bus and a private "system"
// bus (in practice a second private bus, since nothing outside this
// process can tell the difference) for the duration of the suite, so
// its tests never contend with, or pollute, a real bus.
type DBusTest struct {
	SessionBus *dbus.Conn
	SystemBus  *dbus.Conn

	sessionBusPID int
	systemBusPID  int
}

// SetUpSuite launches both private buses. Call once per suite.
func (s *DBusTest) SetUpSuite(c *C) {
	conn, pid, err := launchPrivateBus()
	c.Assert(err, IsNil)
	s.SessionBus = conn
	s.sessionBusPID = pid

	conn, pid, err = launchPrivateBus()
	c.Assert(err, IsNil)
	s.SystemBus = conn
	s.systemBusPID = pid
}

// TearDownSuite closes both connections and kills the private daemons.
func (s *DBusTest) TearDownSuite(c *C) {
	if s.SessionBus != nil {
		s.SessionBus.Close()
		s.SessionBus = nil
	}
	if s.SystemBus != nil {
		s.SystemBus.Close()
		s.SystemBus = nil
	}
	killPID(s.sessionBusPID)
	killPID(s.systemBusPID)
}

// SetUpTest is a no-op placeholder so embedding suites can always
// call s.DBusTest.SetUpTest(c) uniformly, even though per-suite reset
// of bus state (name ownership, exported objects) is the suite's own
// responsibility.
func (s *DBusTest) SetUpTest(c *C) {}

func launchPrivateBus() (conn *dbus.Conn, pid int, err error) {
	out, err := runDbusLaunch()
	if err != nil {
		return nil, 0, err
	}

	var address string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "DBUS_SESSION_BUS_ADDRESS="):
			address = strings.TrimPrefix(line, "DBUS_SESSION_BUS_ADDRESS=")
		case strings.HasPrefix(line, "DBUS_SESSION_BUS_PID="):
			pid, _ = strconv.Atoi(strings.TrimPrefix(line, "DBUS_SESSION_BUS_PID="))
		}
	}
	if address == "" {
		return nil, 0, fmt.Errorf("dbus-launch did not report a bus address")
	}

	conn, err = dbus.Dial(address)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot dial private message bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, 0, fmt.Errorf("cannot authenticate to private message bus: %w", err)
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, 0, fmt.Errorf("cannot say hello to private message bus: %w", err)
	}
	return conn, pid, nil
}

func killPID(pid int) {
	if pid == 0 {
		return
	}
	if proc, err := os.FindProcess(pid); err == nil {
		proc.Kill()
	}
}
