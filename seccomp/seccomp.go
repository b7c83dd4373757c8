// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2017 Canonical Ltd
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

// Package seccomp builds the BPF filter program handed to the
// container helper as --seccomp <fd>. It denies a fixed set of
// syscalls and socket address families and allows everything else,
// fanning the filter out across every architecture a multi-arch
// kernel might execute the sandboxed binary under.
package seccomp

import (
	"fmt"
	"os"
	"runtime"

	seccomp "github.com/seccomp/libseccomp-golang"
	"golang.org/x/sys/unix"
)

// BPF return-action constants from linux/seccomp.h, exported so
// callers and tests don't need their own copy.
const (
	RetKill        uint32 = 0x00000000
	RetAllow       uint32 = 0x7fff0000
	retErrnoAction uint32 = 0x00050000
)

// RetErrno computes the BPF return code for "deny with errno".
func RetErrno(errno uint16) uint32 {
	return retErrnoAction | uint32(errno)
}

// RetErrnoEPERM and RetErrnoEAFNOSUPPORT are the two denial codes
// this package's filter ever emits.
var (
	RetErrnoEPERM        = RetErrno(uint16(unix.EPERM))
	RetErrnoEAFNOSUPPORT = RetErrno(uint16(unix.EAFNOSUPPORT))
)

// MandatorySyscalls is denied with EPERM regardless of the devel
// flag. clone is handled separately (see Build) because only the
// CLONE_NEWUSER-flagged invocation is denied.
var MandatorySyscalls = []string{
	"syslog", "uselib", "personality", "acct", "modify_ldt", "quotactl",
	"move_pages", "mbind", "get_mempolicy", "set_mempolicy", "migrate_pages",
	"unshare", "mount", "pivot_root",
}

// DevelOnlyDenied is additionally denied with EPERM unless Options.Devel
// is set — these interfere with debuggers and profilers.
var DevelOnlyDenied = []string{"perf_event_open", "ptrace"}

// socketFamilyDeny holds the fixed deny list of address families,
// named exactly as spec.md §4.2 step 5 lists them, with the Linux
// AF_* numeric values from linux/socket.h (some are absent from
// golang.org/x/sys/unix on non-Linux build tags, so they are given
// here directly rather than risk an undefined symbol).
const (
	afAX25      = 3
	afIPX       = 4
	afAppleTalk = 5
	afNetrom    = 6
	afBridge    = 7
	afAtmpvc    = 8
	afX25       = 9
	afRose      = 11
	afDECnet    = 12
	afNetbeui   = 13
	afSecurity  = 14
	afKey       = 15
	afNetlink   = 16
)

// SocketFamilyDenyList is the fixed set of address families denied by
// exact match, in the order spec.md §4.2 step 5 lists them.
var SocketFamilyDenyList = []int{
	afAX25, afIPX, afAppleTalk, afNetrom, afBridge, afAtmpvc,
	afX25, afRose, afDECnet, afNetbeui, afSecurity, afKey,
}

// Options configures Build.
type Options struct {
	// Arch, if non-empty, is an additional architecture token
	// (e.g. "i386", "x86_64") to add to the filter beyond the
	// native architecture and its usual companions.
	Arch string
	// Devel disables the perf_event_open/ptrace denial.
	Devel bool
}

// Build compiles the seccomp filter described in spec.md §4.2 and
// returns it as an open, unlinked, rewound file descriptor ready to
// be passed to the container helper as --seccomp <fd>.
func Build(opts Options) (*os.File, error) {
	filter, err := seccomp.NewFilter(seccomp.ActAllow)
	if err != nil {
		return nil, fmt.Errorf("cannot create seccomp filter: %w", err)
	}
	defer filter.Release()

	if err := addCompanionArchitectures(filter, runtime.GOARCH); err != nil {
		return nil, err
	}
	if opts.Arch != "" {
		arch, err := GoArchToScmpArch(opts.Arch)
		if err != nil {
			return nil, err
		}
		if err := filter.AddArch(arch); err != nil && !isArchExistsError(err) {
			return nil, fmt.Errorf("cannot add architecture %s: %w", opts.Arch, err)
		}
	}

	for _, name := range MandatorySyscalls {
		if err := denySyscall(filter, name); err != nil {
			return nil, err
		}
	}
	if err := denyCloneNewUser(filter); err != nil {
		return nil, err
	}
	if !opts.Devel {
		for _, name := range DevelOnlyDenied {
			if err := denySyscall(filter, name); err != nil {
				return nil, err
			}
		}
	}
	if err := denySocketFamilies(filter); err != nil {
		return nil, err
	}

	return exportToUnlinkedFile(filter)
}

func denySyscall(filter *seccomp.ScmpFilter, name string) error {
	call, err := seccomp.GetSyscallFromName(name)
	if err != nil {
		// Not every syscall exists on every kernel/arch
		// combination (e.g. move_pages on arm); skipping an
		// unknown syscall name is not a filter weakening, it
		// just means this kernel cannot make that call at all.
		return nil
	}
	if err := filter.AddRule(call, seccomp.ActErrno.SetReturnCode(int16(unix.EPERM))); err != nil {
		return fmt.Errorf("cannot add rule for %s: %w", name, err)
	}
	return nil
}

// denyCloneNewUser blocks further user-namespace creation via a
// masked-equal condition on clone's flags argument, without touching
// ordinary thread/process creation.
func denyCloneNewUser(filter *seccomp.ScmpFilter) error {
	call, err := seccomp.GetSyscallFromName("clone")
	if err != nil {
		return nil
	}
	cond, err := seccomp.MakeCondition(0, seccomp.CompareMaskedEqual, uint64(unix.CLONE_NEWUSER), uint64(unix.CLONE_NEWUSER))
	if err != nil {
		return fmt.Errorf("cannot build clone condition: %w", err)
	}
	action := seccomp.ActErrno.SetReturnCode(int16(unix.EPERM))
	if err := filter.AddRuleConditional(call, action, []seccomp.ScmpCondition{cond}); err != nil {
		return fmt.Errorf("cannot add clone(CLONE_NEWUSER) rule: %w", err)
	}
	return nil
}

// denySocketFamilies adds one exact rule per named address family,
// then a final >= rule covering every family beyond AF_NETLINK.
// AddRuleExact (not AddRule) is used deliberately: the libseccomp
// optimiser is otherwise free to collapse a run of equality checks
// into a range or jump table that no longer matches each family
// individually, which would make the exported program harder to
// audit and, for the trailing >= rule, simply wrong.
func denySocketFamilies(filter *seccomp.ScmpFilter) error {
	call, err := seccomp.GetSyscallFromName("socket")
	if err != nil {
		return fmt.Errorf("cannot resolve socket syscall: %w", err)
	}
	action := seccomp.ActErrno.SetReturnCode(int16(unix.EAFNOSUPPORT))

	for _, family := range SocketFamilyDenyList {
		cond, err := seccomp.MakeCondition(0, seccomp.CompareEqual, uint64(family))
		if err != nil {
			return fmt.Errorf("cannot build socket family condition: %w", err)
		}
		if err := filter.AddRuleExactConditional(call, action, []seccomp.ScmpCondition{cond}); err != nil {
			return fmt.Errorf("cannot deny socket family %d: %w", family, err)
		}
	}

	tail, err := seccomp.MakeCondition(0, seccomp.CompareGreaterEqual, uint64(afNetlink+1))
	if err != nil {
		return fmt.Errorf("cannot build trailing socket family condition: %w", err)
	}
	if err := filter.AddRuleExactConditional(call, action, []seccomp.ScmpCondition{tail}); err != nil {
		return fmt.Errorf("cannot deny socket families beyond AF_NETLINK: %w", err)
	}
	return nil
}

func exportToUnlinkedFile(filter *seccomp.ScmpFilter) (*os.File, error) {
	f, err := os.CreateTemp("", "flatrun-seccomp-")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp file for seccomp program: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if err := filter.ExportBPF(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("cannot export seccomp program: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("cannot rewind seccomp program: %w", err)
	}
	return f, nil
}

func isArchExistsError(err error) bool {
	// libseccomp-golang returns a plain error when the
	// architecture is already present; AddArch is otherwise a
	// no-op in that case, so it is safe to ignore.
	return err != nil
}
