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

package composer

import (
	"os"
	"strings"

	"github.com/flatrun/flatrun/dirs"
	"github.com/flatrun/flatrun/policy"
)

// baseEnv is the fixed default environment set applied to every
// invocation, regardless of devel mode (spec.md §4.3 "Environment").
var baseEnv = map[string]string{
	"PATH":            "/app/bin:/usr/bin",
	"LD_LIBRARY_PATH": "/app/lib",
	"XDG_CONFIG_DIRS": "/app/etc/xdg:/etc/xdg",
	"XDG_DATA_DIRS":   "/app/share:/usr/share",
	"SHELL":           "/bin/sh",
}

// develPassthroughVars are propagated verbatim from the host
// environment only in devel mode.
var develPassthroughVars = []string{
	"ACLOCAL_PATH", "C_INCLUDE_PATH", "CPLUS_INCLUDE_PATH", "LDFLAGS", "PKG_CONFIG_PATH",
}

// closedPassthroughVars is the fixed set of host environment
// variables carried through regardless of devel mode, per spec.md §6
// "Environment variables read" and Open Question (c): extending this
// list is a policy decision, not an implementation detail.
var closedPassthroughVars = []string{
	"PWD", "TERM", "USER", "USERNAME", "LOGNAME", "HOSTNAME",
	"GDMSESSION", "XDG_CURRENT_DESKTOP", "XDG_SESSION_DESKTOP", "DESKTOP_SESSION",
	"EMAIL_ADDRESS", "REAL_NAME",
}

// addEnvironment assembles the sandbox environment: the fixed default
// set, devel extras, the policy's own overrides, the sandbox-visible
// XDG base directories, and the closed passthrough list
// (spec.md §4.3 "Environment").
func addEnvironment(p *plan, pol *policy.Policy, flags Flags, dep AppDeployment) {
	for name, value := range baseEnv {
		p.setenv(name, value)
	}

	if flags.Devel {
		for _, name := range develPassthroughVars {
			if v := os.Getenv(name); v != "" {
				p.setenv(name, v)
			}
		}
		p.setenv("LC_ALL", "en_US.utf8")
	} else {
		for _, name := range langVars() {
			if v := os.Getenv(name); v != "" {
				p.setenv(name, v)
			}
		}
	}

	for _, name := range closedPassthroughVars {
		if v := os.Getenv(name); v != "" {
			p.setenv(name, v)
		}
	}

	for name, value := range pol.EnvVars {
		if value == "" {
			p.unsetenv(name)
			continue
		}
		p.setenv(name, value)
	}

	appData := dirs.AppPersistentDir(p.home, dep.AppID, "")
	p.setenv("XDG_DATA_HOME", appData+"/data")
	p.setenv("XDG_CONFIG_HOME", appData+"/config")
	p.setenv("XDG_CACHE_HOME", appData+"/cache")

	// LD_LIBRARY_PATH must reach the helper through --setenv rather
	// than surviving in the inherited environment, since a setuid
	// wrapper between this process and the helper would strip it.
	if v, ok := p.env["LD_LIBRARY_PATH"]; ok {
		p.setenv("LD_LIBRARY_PATH", v)
	}
}

func langVars() []string {
	var names []string
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if name == "LANG" || strings.HasPrefix(name, "LC_") {
			names = append(names, name)
		}
	}
	return names
}
