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
	"path/filepath"

	. "gopkg.in/check.v1"

	"github.com/flatrun/flatrun/composer"
	"github.com/flatrun/flatrun/policy"
)

type devicesSuite struct{}

var _ = Suite(&devicesSuite{})

func (s *devicesSuite) TestAddNetworkIPCUnsharesBothByDefault(c *C) {
	home := c.MkDir()
	p := composer.NewTestPlan(home, 1000, filepath.Join(home, "xdgrun"))
	pol := policy.New()

	composer.AddNetworkIPC(p, pol, composer.Flags{})
	c.Check(p.ResolveArgv(), DeepEquals, []string{"--unshare-ipc", "--unshare-net"})
}

func (s *devicesSuite) TestAddNetworkIPCHonoursGrantedShares(c *C) {
	home := c.MkDir()
	p := composer.NewTestPlan(home, 1000, filepath.Join(home, "xdgrun"))
	pol := policy.New()
	pol.SetShare(policy.ShareNetwork, true)
	pol.SetShare(policy.ShareIPC, true)

	composer.AddNetworkIPC(p, pol, composer.Flags{})
	c.Check(p.ResolveArgv(), HasLen, 0)
}

func (s *devicesSuite) TestAddDevicesSkippedWithoutDRIGrant(c *C) {
	home := c.MkDir()
	p := composer.NewTestPlan(home, 1000, filepath.Join(home, "xdgrun"))
	pol := policy.New()

	composer.AddDevices(p, pol)
	c.Check(p.ResolveArgv(), HasLen, 0)
}
