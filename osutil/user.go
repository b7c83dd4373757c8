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

package osutil

import (
	"fmt"
	"os"
	"os/user"
)

// InvokingIdentity describes the uid/gid/name/home of the process
// composing the sandbox, everything needed to synthesize /etc/passwd
// and /etc/group for the container helper.
type InvokingIdentity struct {
	Uid      int
	Gid      int
	Username string
	RealName string
	Home     string
}

var currentUserImpl = user.Current

// MockCurrentUser replaces the os/user.Current lookup, for tests that
// cannot rely on a real passwd entry.
func MockCurrentUser(f func() (*user.User, error)) (restore func()) {
	old := currentUserImpl
	currentUserImpl = f
	return func() { currentUserImpl = old }
}

// CurrentIdentity resolves the invoking user's identity via os/user,
// falling back to raw uid/gid syscalls plus $HOME when no passwd
// database entry exists (common inside minimal containers).
func CurrentIdentity() (*InvokingIdentity, error) {
	u, err := currentUserImpl()
	if err != nil {
		home := os.Getenv("HOME")
		if home == "" {
			return nil, fmt.Errorf("cannot determine invoking identity: %w", err)
		}
		return &InvokingIdentity{
			Uid:      os.Getuid(),
			Gid:      os.Getgid(),
			Username: fmt.Sprintf("user%d", os.Getuid()),
			RealName: "",
			Home:     home,
		}, nil
	}

	var uid, gid int
	if _, err := fmt.Sscanf(u.Uid, "%d", &uid); err != nil {
		return nil, fmt.Errorf("cannot parse uid %q: %w", u.Uid, err)
	}
	if _, err := fmt.Sscanf(u.Gid, "%d", &gid); err != nil {
		return nil, fmt.Errorf("cannot parse gid %q: %w", u.Gid, err)
	}
	return &InvokingIdentity{
		Uid:      uid,
		Gid:      gid,
		Username: u.Username,
		RealName: u.Name,
		Home:     u.HomeDir,
	}, nil
}

// SynthesizePasswd builds the two-entry /etc/passwd content described
// in the composer's base skeleton: the invoking user, and nfsnobody.
func SynthesizePasswd(id *InvokingIdentity) []byte {
	return []byte(fmt.Sprintf(
		"%s:x:%d:%d:%s:%s:/bin/sh\n"+
			"nfsnobody:x:65534:65534:Unmapped user:/:/sbin/nologin\n",
		id.Username, id.Uid, id.Gid, id.RealName, id.Home))
}

// SynthesizeGroup builds the two-entry /etc/group content: the
// invoking user's primary gid, and nfsnobody.
func SynthesizeGroup(id *InvokingIdentity) []byte {
	return []byte(fmt.Sprintf(
		"%s:x:%d:\n"+
			"nfsnobody:x:65534:\n",
		id.Username, id.Gid))
}
