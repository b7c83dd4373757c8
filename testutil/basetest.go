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

// Package testutil collects the gocheck suite embeddings shared
// across the module's test files: a cleanup stack (BaseTest) and a
// private D-Bus session/system bus pair (DBusTest).
package testutil

import (
	. "gopkg.in/check.v1"
)

// BaseTest offers LIFO cleanup registration, the way every suite in
// this module expects to undo mocks and scratch directories.
type BaseTest struct {
	cleanups []func()
}

// SetUpTest resets the cleanup stack. Suites embedding BaseTest
// alongside another base must call this explicitly from their own
// SetUpTest.
func (b *BaseTest) SetUpTest(c *C) {
	b.cleanups = nil
}

// TearDownTest runs every registered cleanup in reverse order.
func (b *BaseTest) TearDownTest(c *C) {
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		b.cleanups[i]()
	}
	b.cleanups = nil
}

// AddCleanup registers f to run at TearDownTest, LIFO. For the common
// "mock something, get a restore func back" pattern the restore func
// itself can be passed straight in.
func (b *BaseTest) AddCleanup(f func()) {
	b.cleanups = append(b.cleanups, f)
}
