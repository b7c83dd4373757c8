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

package policy

import (
	"strings"

	"github.com/flatrun/flatrun/errkinds"
)

var shareNames = map[string]uint{
	"network": ShareNetwork,
	"ipc":     ShareIPC,
}

var socketNames = map[string]uint{
	"x11":         SocketX11,
	"wayland":     SocketWayland,
	"pulseaudio":  SocketPulseAudio,
	"session-bus": SocketSessionBus,
	"system-bus":  SocketSystemBus,
}

var deviceNames = map[string]uint{
	"dri": DeviceDRI,
}

// ParseShareName maps a share token to its bit, or a ConfigError
// naming the offending token.
func ParseShareName(name string) (uint, error) {
	if bit, ok := shareNames[name]; ok {
		return bit, nil
	}
	return 0, &errkinds.ConfigError{Offending: name, Reason: "Unknown share type"}
}

// ParseSocketName maps a socket token to its bit, or a ConfigError.
func ParseSocketName(name string) (uint, error) {
	if bit, ok := socketNames[name]; ok {
		return bit, nil
	}
	return 0, &errkinds.ConfigError{Offending: name, Reason: "Unknown socket type"}
}

// ParseDeviceName maps a device token to its bit, or a ConfigError.
func ParseDeviceName(name string) (uint, error) {
	if bit, ok := deviceNames[name]; ok {
		return bit, nil
	}
	return 0, &errkinds.ConfigError{Offending: name, Reason: "Unknown device type"}
}

// AddFilesystem parses token (an optional :ro/:rw suffix over one of
// the recognised forms from spec.md §3) and records it in p's
// filesystem map. Returns a ConfigError for any token matching none
// of the recognised shapes.
func (p *Policy) AddFilesystem(rawToken string) error {
	base, mode := splitSuffix(rawToken)
	if !validTokenShape(base) {
		return &errkinds.ConfigError{Offending: rawToken, Reason: "Unknown filesystem location"}
	}
	p.Filesystems.Set(base, mode)
	return nil
}

// RemoveFilesystem strips any :ro/:rw suffix from token, validates
// its shape, and records a suppression sentinel under the stripped
// key — overriding whatever mode a previous AddFilesystem recorded
// for the same key.
func (p *Policy) RemoveFilesystem(rawToken string) error {
	base, _ := splitSuffix(rawToken)
	if !validTokenShape(base) {
		return &errkinds.ConfigError{Offending: rawToken, Reason: "Unknown filesystem location"}
	}
	p.Filesystems.Suppress(base)
	return nil
}

// isValidBusNameSegment reports whether seg is a legal D-Bus
// well-known name segment: at least one character, drawn from
// [A-Za-z0-9_-], not starting with a digit.
func isValidBusNameSegment(seg string) bool {
	if seg == "" {
		return false
	}
	if seg[0] >= '0' && seg[0] <= '9' {
		return false
	}
	for _, r := range seg {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// ValidateBusName reports whether name is a legal D-Bus well-known
// name, optionally suffixed ".*" to mark a namespace-prefix rule. It
// rejects unique names (those starting with ':').
func ValidateBusName(name string) error {
	if name == "" || strings.HasPrefix(name, ":") {
		return &errkinds.ConfigError{Offending: name, Reason: "Not a well-known D-Bus name"}
	}
	body := strings.TrimSuffix(name, ".*")
	segs := strings.Split(body, ".")
	if len(segs) < 2 {
		return &errkinds.ConfigError{Offending: name, Reason: "Not a well-known D-Bus name"}
	}
	for _, seg := range segs {
		if !isValidBusNameSegment(seg) {
			return &errkinds.ConfigError{Offending: name, Reason: "Not a well-known D-Bus name"}
		}
	}
	return nil
}

// BusLevel is the D-Bus access level granted to a well-known name,
// ordered by increasing privilege: None < See < Talk < Own.
type BusLevel int

const (
	BusNone BusLevel = iota
	BusSee
	BusTalk
	BusOwn
)

var busLevelNames = map[string]BusLevel{
	"none": BusNone,
	"see":  BusSee,
	"talk": BusTalk,
	"own":  BusOwn,
}

// String renders the level the way the proxy rule assembler does:
// lower-case, as used in --see=/--talk=/--own= flags.
func (l BusLevel) String() string {
	for name, lvl := range busLevelNames {
		if lvl == l {
			return name
		}
	}
	return "none"
}

// ParseBusLevel maps a policy-level name to its BusLevel, or a
// ConfigError naming the offending string.
func ParseBusLevel(name string) (BusLevel, error) {
	if lvl, ok := busLevelNames[name]; ok {
		return lvl, nil
	}
	return 0, &errkinds.ConfigError{Offending: name, Reason: "Unknown D-Bus policy level"}
}

// SetSessionBusPolicy validates name and level and records the rule,
// overwriting any prior rule for the same name.
func (p *Policy) SetSessionBusPolicy(name string, level BusLevel) error {
	if err := ValidateBusName(name); err != nil {
		return err
	}
	p.SessionBusPolicy[name] = level
	return nil
}

// SetSystemBusPolicy is SetSessionBusPolicy's system-bus twin.
func (p *Policy) SetSystemBusPolicy(name string, level BusLevel) error {
	if err := ValidateBusName(name); err != nil {
		return err
	}
	p.SystemBusPolicy[name] = level
	return nil
}

// MatchesBusName reports whether pattern (a well-known name, or a
// well-known name suffixed ".*" to mean "this name or any child of
// this namespace") matches candidate. Namespace-prefix matching is
// done with doublestar so "org.example.*" matches
// "org.example.Sub.Thing" but not "org.example2.Thing".
func MatchesBusName(pattern, candidate string) bool {
	if pattern == candidate {
		return true
	}
	if !strings.HasSuffix(pattern, ".*") {
		return false
	}
	return matchNamespacePrefix(pattern, candidate)
}
