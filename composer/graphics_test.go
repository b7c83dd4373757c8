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
)

type graphicsSuite struct{}

var _ = Suite(&graphicsSuite{})

func (s *graphicsSuite) TestParseDisplayNumber(c *C) {
	n, ok := composer.ParseDisplayNumber(":0")
	c.Check(ok, Equals, true)
	c.Check(n, Equals, 0)

	n, ok = composer.ParseDisplayNumber(":12.0")
	c.Check(ok, Equals, true)
	c.Check(n, Equals, 12)
}

func (s *graphicsSuite) TestParseDisplayNumberRejectsRemoteAndEmpty(c *C) {
	_, ok := composer.ParseDisplayNumber("remotehost:0")
	c.Check(ok, Equals, false)

	_, ok = composer.ParseDisplayNumber("")
	c.Check(ok, Equals, false)
}

func (s *graphicsSuite) TestAddX11SkippedWithoutDisplay(c *C) {
	old := os.Getenv("DISPLAY")
	defer os.Setenv("DISPLAY", old)
	os.Unsetenv("DISPLAY")

	home := c.MkDir()
	p := composer.NewTestPlan(home, 1000, filepath.Join(home, "xdgrun"))
	composer.AddX11(p)
	c.Check(p.ResolveArgv(), HasLen, 0)
}

func (s *graphicsSuite) TestAddWaylandSkippedWithoutSocket(c *C) {
	home := c.MkDir()
	xdgRuntime := filepath.Join(home, "xdgrun")
	p := composer.NewTestPlan(home, 1000, xdgRuntime)
	composer.AddWayland(p)
	c.Check(p.ResolveArgv(), HasLen, 0)
}

func (s *graphicsSuite) TestAddWaylandBindsSocketWhenPresent(c *C) {
	home := c.MkDir()
	xdgRuntime := c.MkDir()
	c.Assert(os.WriteFile(filepath.Join(xdgRuntime, "wayland-0"), nil, 0600), IsNil)

	p := composer.NewTestPlan(home, 1000, xdgRuntime)
	composer.AddWayland(p)

	socket := filepath.Join(xdgRuntime, "wayland-0")
	c.Check(p.ResolveArgv(), DeepEquals, []string{"--ro-bind", socket, socket})
	c.Check(p.Env()["WAYLAND_DISPLAY"], Equals, "wayland-0")
}

func (s *graphicsSuite) TestAddPulseAudioSkippedWithoutSocket(c *C) {
	home := c.MkDir()
	p := composer.NewTestPlan(home, 1000, filepath.Join(home, "xdgrun"))
	composer.AddPulseAudio(p)
	c.Check(p.ResolveArgv(), HasLen, 0)
}
