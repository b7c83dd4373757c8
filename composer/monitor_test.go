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

package composer_test

import (
	"os"
	"path/filepath"

	. "gopkg.in/check.v1"

	"github.com/flatrun/flatrun/composer"
	"github.com/flatrun/flatrun/dirs"
)

type monitorSuite struct{}

var _ = Suite(&monitorSuite{})

func (s *monitorSuite) SetUpTest(c *C) {
	dirs.SetRootDir(c.MkDir())
}

func (s *monitorSuite) TearDownTest(c *C) {
	dirs.SetRootDir("/")
}

// With no session helper reachable (there is no session bus in the
// test environment), addMonitorPath must fall back to binding the
// host's own resolv.conf and mirroring localtime, never leaving
// /run/host/monitor empty.
func (s *monitorSuite) TestAddMonitorPathFallsBackWithoutSessionHelper(c *C) {
	c.Assert(os.MkdirAll(filepath.Dir(dirs.HostResolvConfPath), 0755), IsNil)
	c.Assert(os.WriteFile(dirs.HostResolvConfPath, []byte("nameserver 127.0.0.1\n"), 0644), IsNil)
	c.Assert(os.WriteFile(dirs.HostLocaltimePath, []byte("TZif"), 0644), IsNil)

	p := composer.NewTestPlan(c.MkDir(), 1000, filepath.Join(c.MkDir(), "xdgrun"))
	defer p.CloseFiles()

	composer.AddMonitorPath(p)

	argv := p.ResolveArgv()
	c.Check(containsSubsequence(argv, []string{"--dir", composer.MonitorDst}), Equals, true)
	c.Check(containsSubsequence(argv, []string{"--ro-bind", dirs.HostResolvConfPath, composer.MonitorDst + "/resolv.conf"}), Equals, true)
	c.Check(containsSubsequence(argv, []string{"--ro-bind", dirs.HostLocaltimePath, composer.MonitorDst + "/localtime"}), Equals, true)
}
