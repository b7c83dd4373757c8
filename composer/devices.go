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
	"github.com/vishvananda/netns"

	"github.com/flatrun/flatrun/logging"
	"github.com/flatrun/flatrun/osutil"
	"github.com/flatrun/flatrun/policy"
)

// addNetworkIPC emits --unshare-ipc/--unshare-net unless the policy
// explicitly grants the corresponding share (spec.md §4.3 "Network/
// IPC").
func addNetworkIPC(p *plan, pol *policy.Policy, flags Flags) {
	if !pol.Shares.Get(policy.ShareIPC) {
		p.add("--unshare-ipc")
	}
	if !pol.Shares.Get(policy.ShareNetwork) {
		p.add("--unshare-net")
		if flags.Devel {
			logNetworkNamespace()
		}
	}
}

// logNetworkNamespace best-effort logs the composing process's
// current network namespace handle, purely as a devel-mode diagnostic
// alongside the --unshare-net decision; it never creates or enters a
// namespace itself.
func logNetworkNamespace() {
	h, err := netns.Get()
	if err != nil {
		logging.Debugf("cannot read current network namespace: %v", err)
		return
	}
	defer h.Close()
	logging.Debugf("composing with --unshare-net; calling process network namespace: %s", h.String())
}

// addDevices binds /dev/dri and, when present, the nvidia device
// nodes, iff devices.dri is granted (spec.md §4.3 "Devices").
func addDevices(p *plan, pol *policy.Policy) {
	if !pol.Devices.Get(policy.DeviceDRI) {
		return
	}
	if !osutil.FileExists("/dev/dri") {
		return
	}
	p.add("--dev-bind", "/dev/dri", "/dev/dri")

	if osutil.FileExists("/dev/nvidiactl") {
		p.add("--dev-bind", "/dev/nvidiactl", "/dev/nvidiactl")
		p.add("--dev-bind", "/dev/nvidia0", "/dev/nvidia0")
	}
}
