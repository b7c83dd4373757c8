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

// Package scope registers the about-to-be-spawned sandbox pid as a
// transient systemd scope unit, so every descendant the helper later
// forks lands in the right cgroup before the proxies and the helper
// itself are started.
package scope

import (
	"context"
	"fmt"
	"os"
	"time"

	sdbus "github.com/coreos/go-systemd/dbus"
	godbus "github.com/godbus/dbus"
	"gopkg.in/tomb.v2"

	"github.com/flatrun/flatrun/dirs"
)

// registrationTimeout bounds how long Register waits for JobRemoved
// before giving up on an otherwise-healthy private bus connection.
var registrationTimeout = 30 * time.Second

var dialPrivateBus = func(path string) (*godbus.Conn, error) {
	conn, err := godbus.Dial("unix:path=" + path)
	if err != nil {
		return nil, err
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// privateSocketPath is the user service manager's private socket, per
// the systemd --user convention.
func privateSocketPath(uid int) string {
	return dirs.UserSystemdPrivateSocket(uid)
}

// Handle is the transient scope record: it exists only to make the
// registration's private main loop's lifetime explicit, and carries no
// further state once Register returns.
type Handle struct {
	unitName string
}

// UnitName returns the name of the registered scope unit, e.g.
// "xdg-app-org.example.App-1234.scope".
func (h *Handle) UnitName() string {
	return h.unitName
}

// Register connects to the calling user's service manager, starts a
// transient scope named "xdg-app-<appID>-<pid>.scope" containing pid,
// and blocks until the registration job completes. It fails the whole
// composition (per spec's ordering guarantees, this must happen before
// any proxy or helper is spawned) if no user session is available or
// if the job does not complete within registrationTimeout.
func Register(appID string, pid int) (*Handle, error) {
	uid := os.Getuid()
	sockPath := privateSocketPath(uid)
	if _, err := os.Stat(sockPath); err != nil {
		return nil, fmt.Errorf("no user session available: %w", err)
	}

	conn, err := sdbus.NewConnection(func() (*godbus.Conn, error) {
		return dialPrivateBus(sockPath)
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to user service manager: %w", err)
	}
	defer conn.Close()

	unitName := fmt.Sprintf("xdg-app-%s-%d.scope", appID, pid)
	properties := []sdbus.Property{
		{
			Name:  "PIDs",
			Value: godbus.MakeVariant([]uint32{uint32(pid)}),
		},
	}

	var t tomb.Tomb
	results := make(chan string, 1)
	t.Go(func() error {
		ctx := t.Context(context.Background())
		select {
		case result := <-results:
			if result != "done" {
				return fmt.Errorf("scope registration job finished with result %q", result)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if _, err := conn.StartTransientUnit(unitName, "fail", properties, results); err != nil {
		t.Kill(nil)
		return nil, fmt.Errorf("cannot start transient scope unit: %w", err)
	}

	select {
	case <-t.Dead():
	case <-time.After(registrationTimeout):
		t.Kill(fmt.Errorf("timeout waiting for scope registration job"))
	}
	if err := t.Wait(); err != nil {
		return nil, fmt.Errorf("scope registration failed: %w", err)
	}

	return &Handle{unitName: unitName}, nil
}
