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

// Package policy is the merge-capable, serialisable permission model
// for one application invocation: what it may share with the host
// namespaces, which graphical/audio/bus sockets it can see, which
// devices, filesystems and persistent paths it can touch, and its
// per-bus-name D-Bus access policy.
package policy

// Share bits, over the shares tri-state.
const (
	ShareNetwork uint = 1 << iota
	ShareIPC
)

// Socket bits, over the sockets tri-state.
const (
	SocketX11 uint = 1 << iota
	SocketWayland
	SocketPulseAudio
	SocketSessionBus
	SocketSystemBus
)

// Device bits, over the devices tri-state.
const (
	DeviceDRI uint = 1 << iota
)

// Audio bits, over the audio tri-state. This is the supplemental bit
// resolving Open Question (b): whether PulseAudio shared-memory
// transport is permitted, instead of the hard-coded share_shm=false.
const (
	AudioShareShm uint = 1 << iota
)

// Policy is the merge-capable, serialisable runtime permission set of
// one application invocation. See package doc for the field list;
// zero value is the empty policy every invocation starts from.
type Policy struct {
	Shares  TriState
	Sockets TriState
	Devices TriState
	Audio   TriState

	// EnvVars maps name to value; an empty value means "unset in
	// sandbox" rather than "not mentioned".
	EnvVars map[string]string

	// Persistent is the set of home-relative paths mirrored into
	// an app-private store when neither host nor home filesystem
	// access is granted.
	Persistent map[string]bool

	Filesystems *FsMap

	SessionBusPolicy map[string]BusLevel
	SystemBusPolicy  map[string]BusLevel
}

// New returns an empty policy, ready to be populated by repeated
// Merge calls or direct setters.
func New() *Policy {
	return &Policy{
		EnvVars:          map[string]string{},
		Persistent:       map[string]bool{},
		Filesystems:      NewFsMap(),
		SessionBusPolicy: map[string]BusLevel{},
		SystemBusPolicy:  map[string]BusLevel{},
	}
}

// SetShare records an explicit share/unshare decision.
func (p *Policy) SetShare(bit uint, enabled bool) { p.Shares.Set(bit, enabled) }

// SetSocket records an explicit socket exposure decision.
func (p *Policy) SetSocket(bit uint, enabled bool) { p.Sockets.Set(bit, enabled) }

// SetDevice records an explicit device exposure decision.
func (p *Policy) SetDevice(bit uint, enabled bool) { p.Devices.Set(bit, enabled) }

// SetAudio records an explicit audio-transport decision.
func (p *Policy) SetAudio(bit uint, enabled bool) { p.Audio.Set(bit, enabled) }

// SetEnv sets name to value in the sandbox environment. An empty
// value means "unset this variable inside the sandbox".
func (p *Policy) SetEnv(name, value string) {
	p.EnvVars[name] = value
}

// UnsetEnv is sugar for SetEnv(name, "").
func (p *Policy) UnsetEnv(name string) {
	p.SetEnv(name, "")
}

// SetPersistent adds a home-relative path to the persistent set.
func (p *Policy) SetPersistent(path string) {
	p.Persistent[path] = true
}

// CheckInvariant reports whether every tri-state field in p satisfies
// Enabled &^ Valid == 0 — the property spec.md §8 requires hold after
// any sequence of operations.
func (p *Policy) CheckInvariant() bool {
	return p.Shares.CheckInvariant() && p.Sockets.CheckInvariant() &&
		p.Devices.CheckInvariant() && p.Audio.CheckInvariant()
}

// Merge applies src on top of p ("merge, not replace"): bitmask
// fields merge per TriState.Merge, map fields have src's keys
// overwrite p's, and the filesystem map preserves insertion order
// across the merge (Open Question (a)).
func (p *Policy) Merge(src *Policy) {
	p.Shares.Merge(src.Shares)
	p.Sockets.Merge(src.Sockets)
	p.Devices.Merge(src.Devices)
	p.Audio.Merge(src.Audio)

	for k, v := range src.EnvVars {
		p.EnvVars[k] = v
	}
	for k := range src.Persistent {
		p.Persistent[k] = true
	}
	p.Filesystems.MergeFrom(src.Filesystems)
	for k, v := range src.SessionBusPolicy {
		p.SessionBusPolicy[k] = v
	}
	for k, v := range src.SystemBusPolicy {
		p.SystemBusPolicy[k] = v
	}
}
