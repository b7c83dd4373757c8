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

// Package errkinds gives the four composer error kinds from the error
// handling design a concrete, wrappable Go type each, so callers can
// tell them apart with errors.As without parsing strings.
package errkinds

import "fmt"

// ConfigError is returned by the policy model for any malformed input:
// an unknown share/socket/device name, a bad filesystem token, an
// unrecognised bus policy level.
type ConfigError struct {
	// Offending carries the exact string that failed to parse, so
	// callers can report it back to the user verbatim.
	Offending string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %q", e.Reason, e.Offending)
}

// EnvironmentError means the sandboxing environment itself is
// unusable: no user service manager, no session bus. There is no
// fallback for these.
type EnvironmentError struct {
	Step   string
	Reason string
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("sandboxing not available: %s: %s", e.Step, e.Reason)
}

// ResourceError covers failures to acquire or manipulate an OS
// resource needed mid-composition: a pipe, a temp fd, a missing
// binary.
type ResourceError struct {
	Step string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("cannot %s: %v", e.Step, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// ReadinessError means a spawned proxy exited before writing its
// readiness byte.
type ReadinessError struct {
	Bus string
	Err error
}

func (e *ReadinessError) Error() string {
	return fmt.Sprintf("failed to sync with dbus proxy for %s bus: %v", e.Bus, e.Err)
}

func (e *ReadinessError) Unwrap() error { return e.Err }
