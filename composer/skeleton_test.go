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

type skeletonSuite struct{}

var _ = Suite(&skeletonSuite{})

func (s *skeletonSuite) SetUpTest(c *C) {
	dirs.SetRootDir(c.MkDir())
}

func (s *skeletonSuite) TearDownTest(c *C) {
	dirs.SetRootDir("/")
}

func (s *skeletonSuite) TestAddBaseSkeletonBindsRuntimeAndAppTrees(c *C) {
	root := dirs.RootDir
	runtimeFiles := filepath.Join(root, "runtime-files")
	appFiles := filepath.Join(root, "app-files")
	c.Assert(os.MkdirAll(runtimeFiles, 0755), IsNil)
	c.Assert(os.MkdirAll(appFiles, 0755), IsNil)

	home := c.MkDir()
	p := composer.NewTestPlan(home, 1000, filepath.Join(home, "xdgrun"))
	defer p.CloseFiles()

	dep := composer.AppDeployment{
		AppID:            "org.example.App",
		RuntimeFilesPath: runtimeFiles,
		FilesPath:        appFiles,
	}

	c.Assert(composer.AddBaseSkeleton(p, dep, "org.example.Runtime/x86_64/stable"), IsNil)

	argv := p.ResolveArgv()
	c.Check(containsSubsequence(argv, []string{"--ro-bind", runtimeFiles, "/usr"}), Equals, true)
	c.Check(containsSubsequence(argv, []string{"--ro-bind", appFiles, "/app"}), Equals, true)
	c.Check(containsSubsequence(argv, []string{"--symlink", "/run/host/monitor/resolv.conf", "/etc/resolv.conf"}), Equals, true)
	c.Check(containsSubsequence(argv, []string{"--symlink", "/run/host/monitor/localtime", "/etc/localtime"}), Equals, true)
}

func containsSubsequence(haystack, needle []string) bool {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
