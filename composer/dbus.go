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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flatrun/flatrun/dbusproxy"
	"github.com/flatrun/flatrun/dirs"
	"github.com/flatrun/flatrun/errkinds"
	"github.com/flatrun/flatrun/policy"
)

// sessionSocketDst and systemSocketDst are the fixed in-sandbox paths
// every bus connection, real or proxied, is bound at, per spec.md
// §4.3 "D-Bus" and the "Session bus restricted" scenario.
const (
	sessionSocketDst = "bus"
	systemSocketDst  = "system-bus-socket"
)

func busRules(restrictions map[string]policy.BusLevel) []dbusproxy.Rule {
	var rules []dbusproxy.Rule
	for name, level := range restrictions {
		rules = append(rules, dbusproxy.Rule{Name: name, Level: level})
	}
	return rules
}

// addDBus wires the session and system bus into the sandbox
// (spec.md §4.3 "D-Bus"): an unrestricted socket is bound directly;
// otherwise the proxy supervisor is used and its socket is bound in
// the real bus's place.
func addDBus(p *plan, pol *policy.Policy, proxies *dbusproxy.Supervisor, flags Flags) error {
	if err := addOneBus(p, proxies, busSpec{
		name:          "session",
		unrestricted:  pol.Sockets.Get(policy.SocketSessionBus),
		realAddr:      os.Getenv("DBUS_SESSION_BUS_ADDRESS"),
		restrictions:  pol.SessionBusPolicy,
		grantOwnAppID: true,
		log:           flags.LogSessionBus,
		dst:           sessionSocketDst,
		envVar:        "DBUS_SESSION_BUS_ADDRESS",
	}); err != nil {
		return err
	}

	return addOneBus(p, proxies, busSpec{
		name:         "system",
		unrestricted: pol.Sockets.Get(policy.SocketSystemBus),
		realAddr:     "unix:path=/run/dbus/system_bus_socket",
		restrictions: pol.SystemBusPolicy,
		log:          flags.LogSystemBus,
		dst:          systemSocketDst,
		envVar:       "DBUS_SYSTEM_BUS_ADDRESS",
	})
}

type busSpec struct {
	name          string
	unrestricted  bool
	realAddr      string
	restrictions  map[string]policy.BusLevel
	grantOwnAppID bool
	log           bool
	dst           string
	envVar        string
}

func addOneBus(p *plan, proxies *dbusproxy.Supervisor, spec busSpec) error {
	if spec.realAddr == "" {
		return nil
	}
	dst := filepath.Join(p.xdgRuntime, spec.dst)

	if spec.unrestricted && len(spec.restrictions) == 0 {
		realSocket, err := busAddressSocketPath(spec.realAddr)
		if err != nil {
			return &errkinds.EnvironmentError{Step: spec.name + " bus", Reason: err.Error()}
		}
		p.add("--ro-bind", realSocket, dst)
		p.setenv(spec.envVar, "unix:path="+dst)
		return nil
	}

	socket, err := tempSocketPath(p.uid, spec.name+"-bus-proxy-")
	if err != nil {
		return &errkinds.ResourceError{Step: "reserve " + spec.name + " bus proxy socket", Err: err}
	}

	cfg := dbusproxy.ProxyConfig{
		BusAddress: spec.realAddr,
		Socket:     socket,
		Rules:      busRules(spec.restrictions),
		Log:        spec.log,
	}
	if spec.grantOwnAppID {
		cfg.AppID = p.appID
	}
	if err := proxies.AddProxy(cfg); err != nil {
		return err
	}

	p.add("--bind", socket, dst)
	p.setenv(spec.envVar, "unix:path="+dst)
	return nil
}

// tempSocketPath reserves a unique path under the per-user bus-proxy
// directory for a proxy to bind as a Unix socket; the placeholder
// file created to reserve the name is removed immediately, since the
// proxy itself must be the one to create the socket inode.
func tempSocketPath(uid int, prefix string) (string, error) {
	dir := filepath.Join(dirs.UserXdgRuntimeDir(uid), dirs.DbusProxySocketDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("cannot create bus proxy directory: %w", err)
	}
	f, err := os.CreateTemp(dir, prefix+"*")
	if err != nil {
		return "", fmt.Errorf("cannot reserve bus proxy socket path: %w", err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)
	return path, nil
}

// busAddressSocketPath extracts the filesystem path out of a
// "unix:path=..." D-Bus address; abstract-socket addresses have no
// path to bind and are rejected as unsupported for direct binding.
func busAddressSocketPath(addr string) (string, error) {
	for _, part := range strings.Split(addr, ";") {
		if rest, ok := strings.CutPrefix(part, "unix:path="); ok {
			if i := strings.IndexByte(rest, ','); i >= 0 {
				rest = rest[:i]
			}
			return rest, nil
		}
	}
	return "", fmt.Errorf("bus address %q has no bindable unix:path= socket", addr)
}
