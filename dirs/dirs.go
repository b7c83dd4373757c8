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

// Package dirs centralises every root-relative path the composer, the
// proxy supervisor and the scope registrar need, so tests can redirect
// the whole path table into a throwaway directory with SetRootDir.
package dirs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// RootDir is prepended to every path below. Empty means "/".
	RootDir string

	// AppDataDir is not set by SetRootDir and stays empty; the
	// per-application persistent store path is computed from a home
	// directory by AppPersistentDir.
	AppDataDir string

	// XdgRuntimeDirBase is the parent of every user's runtime
	// directory, normally /run/user.
	XdgRuntimeDirBase string

	// DbusProxySocketDir is where the proxy supervisor creates its
	// randomly-suffixed Unix sockets, under a user's runtime dir.
	DbusProxySocketDir string

	// SystemdUserPrivateSocketDir is the directory holding the
	// per-uid systemd --user private control socket.
	SystemdUserPrivateSocketDir string

	// HostMachineIDPath and DbusMachineIDPath are the candidate
	// files the composer binds read-only at /etc/machine-id; the
	// rest are host files and directories it binds into the sandbox.
	HostMachineIDPath    string
	DbusMachineIDPath    string
	HostResolvConfPath   string
	HostLocaltimePath    string
	HostFontsDir         string
	HostEtcPath          string
)

func init() {
	SetRootDir("")
}

// SetRootDir re-derives every path in this package relative to root.
// An empty root means "/".
func SetRootDir(root string) {
	if root == "" {
		root = "/"
	}
	RootDir = root

	XdgRuntimeDirBase = filepath.Join(root, "/run/user")
	DbusProxySocketDir = "bus-proxy"
	SystemdUserPrivateSocketDir = filepath.Join(root, "/run/user")
	HostMachineIDPath = filepath.Join(root, "/etc/machine-id")
	DbusMachineIDPath = filepath.Join(root, "/var/lib/dbus/machine-id")
	HostResolvConfPath = filepath.Join(root, "/etc/resolv.conf")
	HostLocaltimePath = filepath.Join(root, "/etc/localtime")
	HostFontsDir = filepath.Join(root, "/usr/share/fonts")
	HostEtcPath = filepath.Join(root, "/etc")
}

// StripRootDir removes the global root directory from the specified
// path and returns an absolute path (i.e. the path that would be
// absolute if the global root directory were "/"). It panics if the
// path is not absolute or if the path is not related to the global
// root directory.
func StripRootDir(dir string) string {
	if !filepath.IsAbs(dir) {
		panic(fmt.Sprintf("supplied path is not absolute %q", dir))
	}
	if RootDir == "" || RootDir == "/" {
		return filepath.Clean(dir)
	}
	if !strings.HasPrefix(dir, RootDir) {
		panic(fmt.Sprintf("supplied path is not related to global root %q", dir))
	}
	stripped, err := filepath.Rel(RootDir, dir)
	if err != nil {
		panic(err)
	}
	return "/" + stripped
}

// UserXdgRuntimeDir returns /run/user/<uid> under the current root.
func UserXdgRuntimeDir(uid int) string {
	return filepath.Join(XdgRuntimeDirBase, fmt.Sprintf("%d", uid))
}

// UserSystemdPrivateSocket returns the path of the systemd --user
// private control socket for uid.
func UserSystemdPrivateSocket(uid int) string {
	return filepath.Join(UserXdgRuntimeDir(uid), "systemd/private")
}

// AppPersistentDir returns $HOME/.var/app/<app-id>/<rel> on the host,
// the location persistent paths are mirrored into when neither host
// nor home filesystem access is granted.
func AppPersistentDir(home, appID, rel string) string {
	return filepath.Join(home, ".var/app", appID, rel)
}

// CurrentHomeDir returns $HOME, or an error if it is unset; the user
// database is not consulted.
func CurrentHomeDir() (string, error) {
	if home := os.Getenv("HOME"); home != "" {
		return home, nil
	}
	return "", fmt.Errorf("cannot determine home directory: $HOME is unset")
}
