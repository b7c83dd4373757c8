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
	"strconv"
	"strings"

	"github.com/flatrun/flatrun/logging"
	"github.com/flatrun/flatrun/osutil"
	"github.com/flatrun/flatrun/x11auth"
)

// sandboxDisplayNumber is the fixed X11 display number every sandbox
// sees regardless of the host's real one, per spec.md §4.3 "Graphical
// sockets".
const sandboxDisplayNumber = 99

// addGraphicalSockets wires X11, Wayland and PulseAudio into the
// sandbox when the corresponding host resource is present
// (spec.md §4.3 "Graphical sockets").
func addGraphicalSockets(p *plan) {
	addX11(p)
	addWayland(p)
	addPulseAudio(p)
}

func addX11(p *plan) {
	display := os.Getenv("DISPLAY")
	num, ok := parseDisplayNumber(display)
	if !ok {
		return
	}

	src := fmt.Sprintf("/tmp/.X11-unix/X%d", num)
	if !osutil.FileExists(src) {
		return
	}
	dst := fmt.Sprintf("/tmp/.X11-unix/X%d", sandboxDisplayNumber)
	p.add("--ro-bind", src, dst)
	p.setenv("DISPLAY", fmt.Sprintf(":%d.0", sandboxDisplayNumber))

	entries, err := x11auth.ReadEntries(x11auth.Path())
	if err != nil {
		logging.Noticef("cannot read Xauthority: %v", err)
		return
	}
	hostname, err := os.Hostname()
	if err != nil {
		logging.Noticef("cannot determine hostname for Xauthority filtering: %v", err)
		return
	}
	filtered := x11auth.FilterLocal(entries, hostname, sandboxDisplayNumber)
	if len(filtered) == 0 {
		return
	}
	if err := p.bindData("Xauthority", x11auth.Encode(filtered), filepath.Join(p.xdgRuntime, "Xauthority")); err != nil {
		logging.Noticef("cannot deliver Xauthority: %v", err)
		return
	}
	p.setenv("XAUTHORITY", filepath.Join(p.xdgRuntime, "Xauthority"))
}

// parseDisplayNumber extracts the bare number out of a $DISPLAY value
// shaped like ":0" or ":0.0"; a remote display ("host:0") is never a
// local Unix-socket display and is rejected.
func parseDisplayNumber(display string) (int, bool) {
	if !strings.HasPrefix(display, ":") {
		return 0, false
	}
	rest := strings.TrimPrefix(display, ":")
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		rest = rest[:i]
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func addWayland(p *plan) {
	src := filepath.Join(p.xdgRuntime, "wayland-0")
	if !osutil.FileExists(src) {
		return
	}
	// The sandboxed $XDG_RUNTIME_DIR is always the same path as the
	// host's, per the base skeleton.
	p.add("--ro-bind", src, src)
	p.setenv("WAYLAND_DISPLAY", "wayland-0")
}

func addPulseAudio(p *plan) {
	src := filepath.Join(p.xdgRuntime, "pulse", "native")
	if !osutil.FileExists(src) {
		return
	}
	dst := filepath.Join(p.xdgRuntime, "pulse", "native")
	p.add("--ro-bind", src, dst)

	cfg := []byte("enable-shm=no\n")
	cfgDst := filepath.Join(p.xdgRuntime, "pulse", "config")
	if err := p.bindData("pulse-client.conf", cfg, cfgDst); err != nil {
		logging.Noticef("cannot deliver PulseAudio client config: %v", err)
		return
	}
	p.setenv("PULSE_SERVER", "unix:"+dst)
	p.setenv("PULSE_CLIENTCONFIG", cfgDst)
}
