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

	"github.com/bmatcuk/doublestar/v4"
)

// matchNamespacePrefix turns a dot-separated bus name pattern like
// "org.example.*" into a slash-separated doublestar pattern
// "org/example/**" so the existing segment-glob matcher can be reused
// for D-Bus namespace-prefix rules without writing a second matcher.
func matchNamespacePrefix(pattern, candidate string) bool {
	prefix := strings.TrimSuffix(pattern, ".*")
	globPattern := strings.ReplaceAll(prefix, ".", "/") + "/**"
	globCandidate := strings.ReplaceAll(candidate, ".", "/")
	ok, err := doublestar.Match(globPattern, globCandidate)
	if err != nil {
		return false
	}
	return ok
}

// LookupBusPolicy returns the matching rule for name in table: an
// exact entry always wins over a namespace-prefix entry, and among
// several matching namespace-prefix entries the highest level wins.
func LookupBusPolicy(table map[string]BusLevel, name string) (BusLevel, bool) {
	if lvl, ok := table[name]; ok {
		return lvl, true
	}
	best := BusLevel(-1)
	found := false
	for pattern, lvl := range table {
		if !strings.HasSuffix(pattern, ".*") {
			continue
		}
		if matchNamespacePrefix(pattern, name) {
			if !found || lvl > best {
				best = lvl
				found = true
			}
		}
	}
	return best, found
}
