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

// Package dbusproxy spawns and supervises one xdg-dbus-proxy child per
// filtered bus connection a sandbox is given, and coordinates the
// single readiness pipe shared across all of them so the composer
// never execs the container helper before every proxy has bound its
// socket.
package dbusproxy

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"gopkg.in/retry.v1"

	"github.com/flatrun/flatrun/policy"
)

const proxyBinaryEnvVar = "FLATRUN_DBUS_PROXY"

const defaultProxyBinary = "/usr/bin/xdg-dbus-proxy"

// proxyBinary resolves the proxy executable: the environment variable
// if set, the well-known default otherwise.
func proxyBinary() string {
	if path := os.Getenv(proxyBinaryEnvVar); path != "" {
		return path
	}
	return defaultProxyBinary
}

// Rule is one bus-name policy entry to pass on to the proxy.
type Rule struct {
	Name  string
	Level policy.BusLevel
}

// ProxyConfig describes a single filtered bus connection.
type ProxyConfig struct {
	// BusAddress is the real bus address the proxy connects to
	// upstream (e.g. the value of $DBUS_SESSION_BUS_ADDRESS).
	BusAddress string
	// Socket is the path, under the user's runtime directory, the
	// proxy binds as the filtered bus the sandbox will see.
	Socket string
	// AppID, if non-empty, is granted own rights over its own
	// name and every name under its namespace.
	AppID string
	Rules []Rule
	Log   bool
}

// buildArgs assembles the xdg-dbus-proxy argument vector for cfg,
// per the rule-assembly contract: global deny-by-default, then the
// application's own names, then every bus-policy entry at or above
// "see", then an optional logging flag.
func buildArgs(cfg ProxyConfig, syncWriteFD uintptr) []string {
	args := []string{cfg.BusAddress, cfg.Socket, "--filter"}
	if cfg.AppID != "" {
		args = append(args, "--own="+cfg.AppID, "--own="+cfg.AppID+".*")
	}
	for _, r := range cfg.Rules {
		if r.Level < policy.BusSee {
			continue
		}
		args = append(args, "--"+r.Level.String()+"="+r.Name)
	}
	if cfg.Log {
		args = append(args, "--log")
	}
	args = append(args, "--fd="+strconv.FormatUint(uint64(syncWriteFD), 10))
	return args
}

// Supervisor queues one xdg-dbus-proxy child per AddProxy call and
// spawns every queued child together on SpawnAll, sharing a single
// readiness pipe across all of them. Queueing is split from spawning
// so a caller can register every proxy's configuration while still
// composing the sandbox and only fork the real child processes once
// the app's own scope/cgroup has been established — a proxy spawned
// beforehand inherits whatever cgroup the parent was in at fork time
// and is never retroactively moved when the parent joins a new one.
type Supervisor struct {
	binary string

	configs []ProxyConfig

	readFile  *os.File
	writeFile *os.File
	cmds      []*exec.Cmd
}

// NewSupervisor returns a Supervisor that spawns proxyBinary()'s
// resolved executable.
func NewSupervisor() *Supervisor {
	return &Supervisor{binary: proxyBinary()}
}

// spawnStrategy bounds how many times a transient spawn failure
// (ENOENT racing a package upgrade, ETXTBSY) is retried before giving
// up; a proxy that starts but cannot bind its socket is never
// retried.
var spawnStrategy = retry.LimitCount(3, retry.Exponential{
	Initial: 10 * time.Millisecond,
	Factor:  2,
})

func (s *Supervisor) ensurePipe() error {
	if s.readFile != nil {
		return nil
	}
	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("cannot create proxy readiness pipe: %w", err)
	}
	s.readFile = r
	s.writeFile = w
	return nil
}

// AddProxy queues cfg to be spawned by SpawnAll. It does not itself
// start any process, so it is safe to call while the sandbox is still
// being assembled, before the app's scope has been registered.
func (s *Supervisor) AddProxy(cfg ProxyConfig) error {
	if err := s.ensurePipe(); err != nil {
		return err
	}
	s.configs = append(s.configs, cfg)
	return nil
}

// SpawnAll starts every proxy queued by AddProxy so far. Call it only
// once the caller's own process has joined the scope/cgroup the
// proxies must run under: each child inherits that membership at
// fork time and nothing here moves it afterward. The child's
// sync-write fd is inherited via ExtraFiles, which Go arranges to
// survive the child's exec regardless of the parent's own
// close-on-exec flag.
func (s *Supervisor) SpawnAll() error {
	for _, cfg := range s.configs[len(s.cmds):] {
		// Each child gets only the write end in ExtraFiles, so it is
		// always fd 3 on the child's side.
		childFD := uintptr(3)
		args := buildArgs(cfg, childFD)

		var cmd *exec.Cmd
		var startErr error
		for a := retry.Start(spawnStrategy, nil); a.Next(); {
			cmd = exec.Command(s.binary, args...)
			cmd.ExtraFiles = []*os.File{s.writeFile}
			startErr = cmd.Start()
			if startErr == nil {
				break
			}
			if !a.More() {
				s.killAll()
				return fmt.Errorf("cannot start dbus proxy: %w", startErr)
			}
		}
		if startErr != nil {
			s.killAll()
			return fmt.Errorf("cannot start dbus proxy: %w", startErr)
		}

		s.cmds = append(s.cmds, cmd)
	}
	return nil
}

// AwaitReady blocks until every proxy spawned so far has written its
// readiness byte. A failed read kills every spawned proxy and is
// fatal to the composition.
func (s *Supervisor) AwaitReady() error {
	if len(s.cmds) == 0 {
		return nil
	}
	buf := make([]byte, len(s.cmds))
	if _, err := io.ReadFull(s.readFile, buf); err != nil {
		s.killAll()
		return fmt.Errorf("dbus proxy failed to signal readiness: %w", err)
	}
	return nil
}

// ReadEndFile returns the readiness pipe's read end, for the composer
// to pass to the container helper as --sync-fd.
func (s *Supervisor) ReadEndFile() *os.File {
	return s.readFile
}

// killAll terminates every spawned proxy; closing the pipe is not by
// itself enough since each proxy has its own open copy of the write
// end via ExtraFiles.
func (s *Supervisor) killAll() {
	for _, cmd := range s.cmds {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}
}

// Close releases the readiness pipe. Call once the helper has been
// exec'd (or composition has failed) and nothing further needs it.
func (s *Supervisor) Close() {
	if s.writeFile != nil {
		s.writeFile.Close()
		s.writeFile = nil
	}
	if s.readFile != nil {
		s.readFile.Close()
		s.readFile = nil
	}
}
