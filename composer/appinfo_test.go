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
	"fmt"
	"path/filepath"

	. "gopkg.in/check.v1"

	"github.com/flatrun/flatrun/composer"
	"github.com/flatrun/flatrun/policy"
)

type appinfoSuite struct{}

var _ = Suite(&appinfoSuite{})

func (s *appinfoSuite) TestAddApplicationInfoDeliversFile(c *C) {
	home := c.MkDir()
	xdgRuntime := filepath.Join(home, "xdgrun")
	p := composer.NewTestPlan(home, 1000, xdgRuntime)
	defer p.CloseFiles()

	dep := composer.AppDeployment{AppID: "org.example.App", FilesPath: "/deploy/app/files"}
	pol := policy.New()

	c.Assert(composer.AddApplicationInfo(p, dep, "org.example.Runtime/x86_64/stable", pol), IsNil)

	argv := p.ResolveArgv()
	c.Assert(argv, HasLen, 3)
	c.Check(argv[0], Equals, "--file")
	c.Check(argv[2], Equals, filepath.Join(xdgRuntime, "xdg-app-info"))
}

type fakeExtensionResolver struct {
	calls int
	path  string
	err   error
}

func (f *fakeExtensionResolver) ResolveExtension(ext composer.Extension) (string, error) {
	f.calls++
	return f.path, f.err
}

func (s *appinfoSuite) TestAddExtensionsBindsAtAppOrUsrPrefix(c *C) {
	home := c.MkDir()
	p := composer.NewTestPlan(home, 1000, filepath.Join(home, "xdgrun"))

	resolver := &fakeExtensionResolver{path: "/deploy/ext-1"}
	dep := composer.AppDeployment{
		AppID: "org.example.App",
		Extensions: []composer.Extension{
			{ID: "org.example.App.Plugin", Directory: "extensions/plugin", AppExtension: true},
		},
	}

	c.Assert(composer.AddExtensions(p, dep, resolver), IsNil)
	c.Check(resolver.calls, Equals, 1)
	c.Check(p.ResolveArgv(), DeepEquals, []string{
		"--bind", "/deploy/ext-1/files", "/app/extensions/plugin",
		"--lock-file", "/app/extensions/plugin/.ref",
	})
}

func (s *appinfoSuite) TestAddExtensionsPropagatesResolverError(c *C) {
	home := c.MkDir()
	p := composer.NewTestPlan(home, 1000, filepath.Join(home, "xdgrun"))

	resolver := &fakeExtensionResolver{err: fmt.Errorf("boom")}
	dep := composer.AppDeployment{
		Extensions: []composer.Extension{{ID: "org.example.App.Plugin"}},
	}

	err := composer.AddExtensions(p, dep, resolver)
	c.Assert(err, ErrorMatches, ".*boom.*")
}

func (s *appinfoSuite) TestDefaultResolverRejectsAnyExtension(c *C) {
	_, err := composer.DefaultResolver().ResolveExtension(composer.Extension{ID: "org.example.App.Plugin"})
	c.Assert(err, ErrorMatches, "no extension resolver configured.*")
}

func (s *appinfoSuite) TestBoltExtensionResolverCachesAcrossCalls(c *C) {
	dbPath := filepath.Join(c.MkDir(), "extensions.db")
	inner := &fakeExtensionResolver{path: "/deploy/ext-1"}

	resolver, err := composer.OpenBoltExtensionResolver(dbPath, inner)
	c.Assert(err, IsNil)
	defer resolver.Close()

	ext := composer.Extension{ID: "org.example.App.Plugin", RuntimeRef: "org.example.Runtime/x86_64/stable"}

	path1, err := resolver.ResolveExtension(ext)
	c.Assert(err, IsNil)
	c.Check(path1, Equals, "/deploy/ext-1")
	c.Check(inner.calls, Equals, 1)

	path2, err := resolver.ResolveExtension(ext)
	c.Assert(err, IsNil)
	c.Check(path2, Equals, "/deploy/ext-1")
	c.Check(inner.calls, Equals, 1, Commentf("second lookup should hit the cache, not the inner resolver"))
}
