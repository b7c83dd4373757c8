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

package seccomp

import (
	"fmt"

	seccomp "github.com/seccomp/libseccomp-golang"
)

// goArchTable maps GOARCH tokens (and the handful of aliases users
// might type on the command line) to their libseccomp architecture
// token, per spec.md §4.2 step 1.
var goArchTable = map[string]seccomp.ScmpArch{
	"386":      seccomp.ArchX86,
	"i386":     seccomp.ArchX86,
	"amd64":    seccomp.ArchAMD64,
	"x86_64":   seccomp.ArchAMD64,
	"arm":      seccomp.ArchARM,
	"arm64":    seccomp.ArchARM64,
	"aarch64":  seccomp.ArchARM64,
	"ppc64":    seccomp.ArchPPC64,
	"ppc64le":  seccomp.ArchPPC64LE,
	"s390x":    seccomp.ArchS390X,
	"mips":     seccomp.ArchMIPS,
	"mipsle":   seccomp.ArchMIPSEL,
	"mips64":   seccomp.ArchMIPS64,
	"mips64le": seccomp.ArchMIPSEL64,
	"riscv64":  seccomp.ArchRISCV64,
}

// GoArchToScmpArch maps a GOARCH-style token to the corresponding
// libseccomp architecture constant.
func GoArchToScmpArch(goarch string) (seccomp.ScmpArch, error) {
	if arch, ok := goArchTable[goarch]; ok {
		return arch, nil
	}
	return 0, fmt.Errorf("cannot map architecture %q to a seccomp architecture token", goarch)
}

// companionArches lists, for a handful of multi-ABI architectures, the
// extra architecture tokens that must be added alongside the native
// one so a 32-bit compatibility binary (or an x32 one) cannot sneak a
// syscall past a filter that only accounts for the 64-bit ABI.
var companionArches = map[string][]seccomp.ScmpArch{
	"amd64": {seccomp.ArchX86, seccomp.ArchX32},
	"arm64": {seccomp.ArchARM},
}

// addCompanionArchitectures adds goarch's native seccomp architecture
// (already present from NewFilter, but AddArch on it is harmless) plus
// any companion architectures sharing its syscall table.
func addCompanionArchitectures(filter *seccomp.ScmpFilter, goarch string) error {
	native, err := GoArchToScmpArch(goarch)
	if err != nil {
		// An architecture Go itself doesn't know isn't one the
		// running binary could be, so there is nothing to add.
		return nil
	}
	if err := filter.AddArch(native); err != nil && !isArchExistsError(err) {
		return fmt.Errorf("cannot add native architecture: %w", err)
	}
	for _, arch := range companionArches[goarch] {
		if err := filter.AddArch(arch); err != nil && !isArchExistsError(err) {
			return fmt.Errorf("cannot add companion architecture: %w", err)
		}
	}
	return nil
}
