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
	"strings"

	"github.com/flatrun/flatrun/dirs"
	"github.com/flatrun/flatrun/osutil"
	"github.com/flatrun/flatrun/policy"
)

// rootExclusionList is skipped when binding the "host" token's
// enumeration of "/", since every one of these is already covered by
// the base skeleton or would shadow it (spec.md §4.3 "Filesystems").
var rootExclusionList = map[string]bool{
	".": true, "..": true, "lib": true, "lib32": true, "lib64": true,
	"bin": true, "sbin": true, "usr": true, "boot": true, "root": true,
	"tmp": true, "etc": true, "app": true, "run": true, "proc": true,
	"sys": true, "dev": true, "var": true,
}

func bindMode(mode policy.FsMode) string {
	if mode == policy.FsReadOnly {
		return "--ro-bind"
	}
	return "--bind"
}

// xdgUserDir resolves a bare xdg-* token to its host directory, using
// the $HOME/<Default Name> convention xdg-user-dirs falls back to
// when no user-dirs.dirs override exists. Per the xdg-user-dirs
// convention, a directory that resolves to exactly $HOME means the
// corresponding default is disabled.
func xdgUserDir(home, token string) string {
	defaults := map[string]string{
		"xdg-desktop":      "Desktop",
		"xdg-documents":    "Documents",
		"xdg-download":     "Downloads",
		"xdg-music":        "Music",
		"xdg-pictures":     "Pictures",
		"xdg-public-share": "Public",
		"xdg-templates":    "Templates",
		"xdg-videos":       "Videos",
	}
	name, ok := defaults[token]
	if !ok {
		return ""
	}
	return filepath.Join(home, name)
}

// resolveToken expands a filesystem token (xdg-run/<suffix>, ~/<sub>,
// or an absolute path) to a host path. host/home are handled by their
// own dedicated passes and never reach here.
func resolveToken(home, token string) string {
	if rest, ok := strings.CutPrefix(token, "xdg-run/"); ok {
		return filepath.Join(dirs.UserXdgRuntimeDir(os.Getuid()), rest)
	}
	if rest, ok := strings.CutPrefix(token, "~/"); ok {
		return filepath.Join(home, rest)
	}
	if strings.HasPrefix(token, "/") {
		return token
	}
	return xdgUserDir(home, token)
}

// addFilesystems implements spec.md §4.3 "Filesystems" and "XDG
// user-dirs": the host/home passes, the per-token pass, and the
// synthesized or copied user-dirs.dirs delivery.
func addFilesystems(p *plan, pol *policy.Policy) error {
	entries := pol.Filesystems.Entries()

	homeMode, homeGranted := lookupMode(entries, "home")

	if hostMode, ok := lookupMode(entries, "host"); ok && hostMode != policy.FsSuppressed {
		if err := bindHost(p, hostMode); err != nil {
			return err
		}
		if osutil.IsDirectory("/run/media") {
			p.add(bindMode(hostMode), "/run/media", "/run/media")
		}
	}
	if homeGranted && homeMode != policy.FsSuppressed {
		p.add(bindMode(homeMode), p.home, p.home)
		p.boundHome = true
	}

	usedXdgToken := false
	for _, e := range entries {
		if e.Token == "host" || e.Token == "home" {
			continue
		}
		if e.Mode == policy.FsSuppressed {
			continue
		}
		path := resolveToken(p.home, e.Token)
		if path == "" {
			continue
		}
		isXdgUserToken := strings.HasPrefix(e.Token, "xdg-") && !strings.HasPrefix(e.Token, "xdg-run/")
		if isXdgUserToken && path == p.home {
			// xdg-user-dirs convention for "disabled".
			continue
		}
		if !osutil.FileExists(path) {
			continue
		}
		if isXdgUserToken {
			usedXdgToken = true
		}
		p.add(bindMode(e.Mode), path, path)
	}
	p.boundXdgToken = usedXdgToken

	return addUserDirsFile(p, p.boundHome, usedXdgToken)
}

func lookupMode(entries []policy.FsEntry, token string) (policy.FsMode, bool) {
	for _, e := range entries {
		if e.Token == token {
			return e.Mode, true
		}
	}
	return 0, false
}

// bindHost enumerates "/" and binds every entry not on the root
// exclusion list (spec.md §4.3 "Filesystems"); /run/media is bound by
// the caller, not here.
func bindHost(p *plan, mode policy.FsMode) error {
	entries, err := os.ReadDir("/")
	if err != nil {
		return fmt.Errorf("cannot enumerate host root: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if rootExclusionList[name] {
			continue
		}
		path := "/" + name
		p.add(bindMode(mode), path, path)
	}
	return nil
}

// addUserDirsFile delivers user-dirs.dirs per spec.md §4.3 "XDG
// user-dirs": a real read-only copy when home access was granted, a
// synthesized one otherwise — and only if some xdg token was used.
func addUserDirsFile(p *plan, homeGranted bool, usedXdgToken bool) error {
	if !usedXdgToken {
		return nil
	}
	dst := filepath.Join(p.home, ".config/user-dirs.dirs")

	if homeGranted {
		real := filepath.Join(p.home, ".config/user-dirs.dirs")
		if osutil.FileExists(real) {
			p.add("--ro-bind", real, dst)
		}
		return nil
	}

	content := synthesizeUserDirs(p.home)
	return p.file("user-dirs.dirs", content, dst)
}

func synthesizeUserDirs(home string) []byte {
	var b strings.Builder
	b.WriteString("# This file is written by flatrun, do not edit manually.\n")
	for token, name := range map[string]string{
		"xdg-desktop":      "DESKTOP",
		"xdg-documents":    "DOCUMENTS",
		"xdg-download":     "DOWNLOAD",
		"xdg-music":        "MUSIC",
		"xdg-pictures":     "PICTURES",
		"xdg-public-share": "PUBLICSHARE",
		"xdg-templates":    "TEMPLATES",
		"xdg-videos":       "VIDEOS",
	} {
		dir := xdgUserDir(home, token)
		fmt.Fprintf(&b, "XDG_%s_DIR=\"%s\"\n", name, dir)
	}
	return []byte(b.String())
}

// addPersistentPaths mirrors each entry of pol.Persistent into the
// app-private store and binds it into the sandboxed $HOME, but only
// when neither "host" nor "home" filesystem access was granted
// (spec.md §4.3 "Persistent paths").
func addPersistentPaths(p *plan, pol *policy.Policy, appID string) error {
	if p.boundHome {
		return nil
	}
	if mode, ok := lookupMode(pol.Filesystems.Entries(), "host"); ok && mode != policy.FsSuppressed {
		return nil
	}

	for rel := range pol.Persistent {
		hostPath := dirs.AppPersistentDir(p.home, appID, rel)
		if err := os.MkdirAll(hostPath, 0755); err != nil {
			return fmt.Errorf("cannot create persistent path %s: %w", hostPath, err)
		}
		p.add("--bind", hostPath, filepath.Join(p.home, rel))
	}
	return nil
}
